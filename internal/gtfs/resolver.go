package gtfs

// Entity names, shared by the resolver, progress events and import summaries.
const (
	ServicePeriods    = "service_periods"
	ServiceExceptions = "service_exceptions"
	Stops             = "stops"
	Routes            = "routes"
	Trips             = "trips"
	Pickups           = "pickups"
)

// Resolver maps feed ids to generated store ids for one import run.
// A repeated feed id overwrites the earlier mapping.
type Resolver struct {
	ids map[string]map[string]int64
}

func NewResolver() *Resolver {
	return &Resolver{ids: map[string]map[string]int64{
		ServicePeriods: {},
		Stops:          {},
		Routes:         {},
		Trips:          {},
	}}
}

// Put records the generated id for an entity's feed id.
func (r *Resolver) Put(entity, externalID string, id int64) {
	m, ok := r.ids[entity]
	if !ok {
		m = make(map[string]int64)
		r.ids[entity] = m
	}
	m[externalID] = id
}

// Lookup returns the generated id for externalID, or an *UnresolvedError.
func (r *Resolver) Lookup(entity, externalID string) (int64, error) {
	id, ok := r.ids[entity][externalID]
	if !ok {
		return 0, &UnresolvedError{Entity: entity, ExternalID: externalID}
	}
	return id, nil
}

// Len returns the number of feed ids recorded for entity.
func (r *Resolver) Len(entity string) int {
	return len(r.ids[entity])
}

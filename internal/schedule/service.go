package schedule

import (
	"context"
	"time"

	"transitdb/internal/gtfstime"
	"transitdb/internal/storage"
)

// CurrentServicePeriod returns the service period controlling today, or nil.
func (e *Engine) CurrentServicePeriod(ctx context.Context) (*storage.ServicePeriod, error) {
	return e.ServicePeriodOn(ctx, e.Now())
}

// ServicePeriodOn returns the service period controlling day, or nil.
//
// An exception recorded for the date wins outright and names the period. Added
// exceptions are preferred over removed ones, lowest id first. Without an exception,
// the lowest-id period whose weekday mask and date range both include day is used.
func (e *Engine) ServicePeriodOn(ctx context.Context, day time.Time) (*storage.ServicePeriod, error) {
	exs, err := e.db.ServiceExceptionsOn(ctx, gtfstime.FormatDate(day))
	if err != nil {
		return nil, err
	}
	if ex := pickException(exs); ex != nil {
		return e.db.ServicePeriod(ctx, ex.ServicePeriodID)
	}

	periods, err := e.db.ServicePeriods(ctx)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		if periods[i].RunsOn(day) {
			return &periods[i], nil
		}
	}
	return nil, nil
}

// pickException expects exs in id order.
func pickException(exs []storage.ServiceException) *storage.ServiceException {
	if len(exs) == 0 {
		return nil
	}
	for i := range exs {
		if exs[i].ExceptionType == storage.ExceptionAdded {
			return &exs[i]
		}
	}
	return &exs[0]
}

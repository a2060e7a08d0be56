package gtfs

import (
	"log/slog"
	"time"
)

// Event marks one record processed while importing an entity file.
// Index counts from 1.
type Event struct {
	Entity string
	Index  int
	Total  int
}

// Progress observes an import. Implementations must be cheap; Step runs once per record.
type Progress interface {
	Begin(entity string, total int)
	Step(ev Event)
	Finish(entity string, count int, elapsed time.Duration)
}

// NopProgress discards every event.
type NopProgress struct{}

func (NopProgress) Begin(string, int)                 {}
func (NopProgress) Step(Event)                        {}
func (NopProgress) Finish(string, int, time.Duration) {}

// LogProgress writes progress to a logger, one line every Every records.
type LogProgress struct {
	Logger *slog.Logger
	Every  int
}

func (p LogProgress) Begin(entity string, total int) {
	p.Logger.Info("importing", "entity", entity, "records", total)
}

func (p LogProgress) Step(ev Event) {
	every := p.Every
	if every <= 0 {
		every = 100000
	}
	if ev.Index%every == 0 {
		p.Logger.Info("importing "+ev.Entity, "rows", ev.Index, "total", ev.Total)
	}
}

func (p LogProgress) Finish(entity string, count int, elapsed time.Duration) {
	p.Logger.Info("imported "+entity, "count", count, "duration", elapsed.Round(time.Millisecond))
}

// MultiProgress fans events out to several observers.
type MultiProgress []Progress

func (m MultiProgress) Begin(entity string, total int) {
	for _, p := range m {
		p.Begin(entity, total)
	}
}

func (m MultiProgress) Step(ev Event) {
	for _, p := range m {
		p.Step(ev)
	}
}

func (m MultiProgress) Finish(entity string, count int, elapsed time.Duration) {
	for _, p := range m {
		p.Finish(entity, count, elapsed)
	}
}

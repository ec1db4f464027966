package services

import (
	"github.com/dmitrijs2005/delegsync/internal/models"
)

// Phase names a half of a sync cycle.
type Phase string

const (
	PhasePull Phase = "pull"
	PhasePush Phase = "push"
)

// Counters are the per-entity outcome of a phase.
type Counters struct {
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Conflicts  int `json:"conflicts"`
	Backfilled int `json:"backfilled"`
	// OmittedByDelegateUnresolved counts rows whose delegate could be found
	// neither by identifier nor by name.
	OmittedByDelegateUnresolved int `json:"omitted_by_delegate_unresolved"`
	// Errors counts rows rejected by validation.
	Errors int `json:"errors"`
}

// Changed reports whether the phase wrote anything for the entity.
func (c Counters) Changed() bool {
	return c.Inserted+c.Updated+c.Backfilled > 0
}

type EntityReport struct {
	Entity models.EntityType `json:"entity"`
	Counters
}

type PhaseReport struct {
	Phase    Phase          `json:"phase"`
	Entities []EntityReport `json:"entities"`
	// Failed is the entity whose sheet was rolled back, if any.
	Failed models.EntityType `json:"failed,omitempty"`
}

// Entity returns the counters of one entity, zero when it did not run.
func (p *PhaseReport) Entity(e models.EntityType) Counters {
	if p == nil {
		return Counters{}
	}
	for _, r := range p.Entities {
		if r.Entity == e {
			return r.Counters
		}
	}
	return Counters{}
}

// Total sums the counters of every entity.
func (p *PhaseReport) Total() Counters {
	var t Counters
	if p == nil {
		return t
	}
	for _, r := range p.Entities {
		t.Inserted += r.Inserted
		t.Updated += r.Updated
		t.Skipped += r.Skipped
		t.Duplicates += r.Duplicates
		t.Conflicts += r.Conflicts
		t.Backfilled += r.Backfilled
		t.OmittedByDelegateUnresolved += r.OmittedByDelegateUnresolved
		t.Errors += r.Errors
	}
	return t
}

// Report describes one Pull, Push or Sync call.
type Report struct {
	Pull *PhaseReport `json:"pull,omitempty"`
	Push *PhaseReport `json:"push,omitempty"`
	// Calls is the number of remote calls made, retries included.
	Calls int `json:"calls"`
	// PreviousWatermark is the watermark the cycle compared against.
	PreviousWatermark string `json:"previous_watermark,omitempty"`
	// Watermark is the new watermark, set only when it advanced.
	Watermark string `json:"watermark,omitempty"`
}

// Status is a snapshot of the local sync state.
type Status struct {
	Watermark     string                    `json:"watermark"`
	OpenConflicts int                       `json:"open_conflicts"`
	Counts        map[models.EntityType]int `json:"counts"`
}

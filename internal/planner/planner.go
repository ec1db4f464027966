package planner

import (
	"context"
	"fmt"
)

// ActionKind tags an Action.
type ActionKind int

const (
	Skip ActionKind = iota
	BackfillIdentifier
	Insert
	Update
	RegisterConflict
)

func (k ActionKind) String() string {
	switch k {
	case Skip:
		return "skip"
	case BackfillIdentifier:
		return "backfill_identifier"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case RegisterConflict:
		return "register_conflict"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// SkipReason says why a row was skipped.
type SkipReason string

const (
	SkipDuplicate SkipReason = "duplicate"
	SkipUpToDate  SkipReason = "up_to_date"
	SkipUnlinked  SkipReason = "unlinked"
)

// Action is one step of a plan.
type Action struct {
	Kind ActionKind
	// Reason is set on Skip actions.
	Reason SkipReason
	// Backfill asks an Insert handler to also write the new identifier
	// back to the remote row.
	Backfill bool
	// Identifier is the value a pull BackfillIdentifier writes remotely.
	Identifier string
}

// PullSignals describe one remote row against the local store.
type PullSignals struct {
	HasIdentifier                   bool
	HasLocalMatchForEmptyIdentifier bool
	HasLocalMatchForIdentifier      bool
	IsDuplicateByDedupeKey          bool
	ConflictDetected                bool
	RemoteIsNewer                   bool
	BackfillEnabled                 bool
	ExistingIdentifierToBackfill    string
}

// PlanPull decides what to do with one remote row.
func PlanPull(s PullSignals) []Action {
	if !s.HasIdentifier {
		if !s.HasLocalMatchForEmptyIdentifier {
			return []Action{{Kind: Insert, Backfill: s.BackfillEnabled}}
		}
		plan := []Action{{Kind: Skip, Reason: SkipDuplicate}}
		if s.BackfillEnabled && s.ExistingIdentifierToBackfill != "" {
			plan = append(plan, Action{Kind: BackfillIdentifier, Identifier: s.ExistingIdentifierToBackfill})
		}
		return plan
	}

	if !s.HasLocalMatchForIdentifier {
		if s.IsDuplicateByDedupeKey {
			return []Action{{Kind: Skip, Reason: SkipDuplicate}}
		}
		return []Action{{Kind: Insert}}
	}

	switch {
	case s.ConflictDetected:
		return []Action{{Kind: RegisterConflict}}
	case s.RemoteIsNewer:
		return []Action{{Kind: Update}}
	default:
		return []Action{{Kind: Skip, Reason: SkipUpToDate}}
	}
}

// PushSignals describe one changed local row against the remote sheet.
type PushSignals struct {
	HasRemoteMatchForIdentifier bool
	HasRemoteMatchByDedupeKey   bool
	RemoteMatchHasIdentifier    bool
	ConflictDetected            bool
	LocalIsNewer                bool
	BackfillEnabled             bool
}

// PlanPush decides what to do with one changed local row.
func PlanPush(s PushSignals) []Action {
	if !s.HasRemoteMatchForIdentifier {
		switch {
		case !s.HasRemoteMatchByDedupeKey:
			return []Action{{Kind: Insert}}
		case s.RemoteMatchHasIdentifier:
			return []Action{{Kind: Skip, Reason: SkipDuplicate}}
		case !s.BackfillEnabled:
			return []Action{{Kind: Skip, Reason: SkipUnlinked}}
		}
		plan := []Action{{Kind: BackfillIdentifier}}
		if s.LocalIsNewer {
			plan = append(plan, Action{Kind: Update})
		}
		return plan
	}

	switch {
	case s.ConflictDetected:
		return []Action{{Kind: RegisterConflict}}
	case s.LocalIsNewer:
		return []Action{{Kind: Update}}
	default:
		return []Action{{Kind: Skip, Reason: SkipUpToDate}}
	}
}

// Handler applies one action.
type Handler func(ctx context.Context, a Action) error

// Handlers maps every action kind to its handler.
type Handlers struct {
	Skip               Handler
	BackfillIdentifier Handler
	Insert             Handler
	Update             Handler
	RegisterConflict   Handler
}

func (h Handlers) lookup(k ActionKind) Handler {
	switch k {
	case Skip:
		return h.Skip
	case BackfillIdentifier:
		return h.BackfillIdentifier
	case Insert:
		return h.Insert
	case Update:
		return h.Update
	case RegisterConflict:
		return h.RegisterConflict
	}
	return nil
}

// Run dispatches actions in order and stops at the first error.
func Run(ctx context.Context, actions []Action, h Handlers) error {
	for _, a := range actions {
		fn := h.lookup(a.Kind)
		if fn == nil {
			return fmt.Errorf("no handler for %s", a.Kind)
		}
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("%s: %w", a.Kind, err)
		}
	}
	return nil
}

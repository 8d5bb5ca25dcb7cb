package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPermissionDenied is surfaced to callers when the policy rejects an
// action. The engine never generates it on its own.
var ErrPermissionDenied = errors.New("permission denied")

type Action string

const (
	ActionManageRules       Action = "manage_rules"
	ActionBookAppointment   Action = "book_appointment"
	ActionCancelAppointment Action = "cancel_appointment"
	ActionManageAppointment Action = "manage_appointment"
)

// Authorizer is the single policy evaluation point consulted before any
// mutation of a doctor's calendar. Real policy lives outside this service;
// handlers only ask allow-or-deny.
type Authorizer interface {
	Authorize(ctx context.Context, actorID, doctorID uuid.UUID, action Action) error
}

// AllowAll approves everything. The default when no policy backend is
// configured; useful for local runs and tests.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, uuid.UUID, uuid.UUID, Action) error {
	return nil
}

// OwnerPolicy lets a doctor manage only their own calendar while leaving
// booking and cancelling open to any identified actor.
type OwnerPolicy struct{}

func (OwnerPolicy) Authorize(_ context.Context, actorID, doctorID uuid.UUID, action Action) error {
	switch action {
	case ActionManageRules, ActionManageAppointment:
		if actorID != doctorID {
			return ErrPermissionDenied
		}
		return nil
	case ActionBookAppointment, ActionCancelAppointment:
		if actorID == uuid.Nil {
			return ErrPermissionDenied
		}
		return nil
	default:
		return ErrPermissionDenied
	}
}

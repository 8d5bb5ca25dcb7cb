package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAllowAll(t *testing.T) {
	assert.NoError(t, AllowAll{}.Authorize(context.Background(), uuid.Nil, uuid.New(), ActionManageRules))
}

func TestOwnerPolicy(t *testing.T) {
	doctor := uuid.New()
	stranger := uuid.New()
	p := OwnerPolicy{}

	assert.NoError(t, p.Authorize(context.Background(), doctor, doctor, ActionManageRules))
	assert.ErrorIs(t, p.Authorize(context.Background(), stranger, doctor, ActionManageRules), ErrPermissionDenied)

	assert.NoError(t, p.Authorize(context.Background(), stranger, doctor, ActionBookAppointment))
	assert.ErrorIs(t, p.Authorize(context.Background(), uuid.Nil, doctor, ActionBookAppointment), ErrPermissionDenied)

	assert.ErrorIs(t, p.Authorize(context.Background(), doctor, doctor, Action("repaint_office")), ErrPermissionDenied)
}

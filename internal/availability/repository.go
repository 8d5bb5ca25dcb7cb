package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medbook/doctor-booking/internal/schedule"
)

var ErrRuleNotFound = errors.New("availability rule not found")

// Repository holds a doctor's availability rules. It is append/remove only;
// every piece of interpretation lives in the schedule package and the Store.
type Repository interface {
	CreateRule(ctx context.Context, rule schedule.Rule) (*schedule.Rule, error)
	DeleteRule(ctx context.Context, doctorID, ruleID uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]schedule.Rule, error)
}

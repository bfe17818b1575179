package mapping

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/pkg/pagination"
)

var ErrNotFound = errors.New("mapping not found")

// constraintActivePair is the partial unique index over active rows.
const constraintActivePair = "mappings_active_pair_key"

// Repository loads mappings joined with their patient and doctor.
type Repository interface {
	// Create inserts an active row and fills in the generated fields. It does
	// not touch the details.
	Create(ctx context.Context, m *Mapping) error
	GetByID(ctx context.Context, id uuid.UUID) (*Mapping, error)
	// Deactivate clears is_active. It is a no-op for an inactive row.
	Deactivate(ctx context.Context, id uuid.UUID) error
	ActiveExists(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	// ListActiveByOwner returns active mappings of patients created by owner,
	// most recently assigned first.
	ListActiveByOwner(ctx context.Context, owner uuid.UUID, pg pagination.Params) ([]*Mapping, int, error)
	ListActiveByPatient(ctx context.Context, patientID uuid.UUID, pg pagination.Params) ([]*Mapping, int, error)
}

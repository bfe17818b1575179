package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/pkg/pagination"
)

var ErrNotFound = errors.New("patient not found")

const constraintEmail = "patients_email_key"

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByOwner returns the owner's patients newest first, plus the
	// unwindowed total.
	ListByOwner(ctx context.Context, owner uuid.UUID, pg pagination.Params) ([]*Patient, int, error)
	// EmailExists ignores the row with id exclude.
	EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
}

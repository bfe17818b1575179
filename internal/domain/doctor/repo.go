package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/pkg/pagination"
)

var ErrNotFound = errors.New("doctor not found")

const constraintLicense = "doctors_license_number_key"

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns doctors ordered by name, plus the unwindowed total.
	List(ctx context.Context, pg pagination.Params) ([]*Doctor, int, error)
	// LicenseExists compares exactly and ignores the row with id exclude.
	LicenseExists(ctx context.Context, license string, exclude uuid.UUID) (bool, error)
}

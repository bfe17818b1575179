package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/internal/platform/ownership"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

const msgEmailTaken = "patient with this email already exists."

// Service manages patients on behalf of their owner. Every method takes the
// caller explicitly; rows owned by anyone else behave as if absent.
type Service struct {
	patients Repository
	tx       db.Transactor
}

func NewService(patients Repository, tx db.Transactor) *Service {
	return &Service{patients: patients, tx: tx}
}

func (s *Service) List(ctx context.Context, caller uuid.UUID, pg pagination.Params) ([]*Patient, int, error) {
	return s.patients.ListByOwner(ctx, caller, pg)
}

// Get returns the patient if caller owns it, otherwise a not-found error.
// Other domains use it to resolve patient references.
func (s *Service) Get(ctx context.Context, caller, id uuid.UUID) (*Patient, error) {
	return ownership.Resolve[*Patient](ctx, caller, id, ErrNotFound, s.patients.GetByID)
}

func (s *Service) Create(ctx context.Context, caller uuid.UUID, req Request) (*Patient, error) {
	p := &Patient{CreatedBy: caller}
	p.apply(req)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkEmail(ctx, p.Email, uuid.Nil); err != nil {
			return err
		}
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return p, nil
}

// Update replaces every writable field. PATCH callers overlay their partial
// payload on Patient.Request() first.
func (s *Service) Update(ctx context.Context, caller, id uuid.UUID, req Request) (*Patient, error) {
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.Get(ctx, caller, id)
		if err != nil {
			return err
		}
		if err := s.checkEmail(ctx, req.Email, p.ID); err != nil {
			return err
		}
		p.apply(req)
		return s.patients.Update(ctx, p)
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return p, nil
}

// Delete removes the patient; its mappings go with it.
func (s *Service) Delete(ctx context.Context, caller, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.Get(ctx, caller, id)
		if err != nil {
			return err
		}
		return s.patients.Delete(ctx, p.ID)
	})
}

func (s *Service) checkEmail(ctx context.Context, email string, exclude uuid.UUID) error {
	taken, err := s.patients.EmailExists(ctx, email, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apierror.Validation("email", msgEmailTaken)
	}
	return nil
}

func mapUniqueViolation(err error) error {
	if db.IsUniqueViolation(err, constraintEmail) {
		return apierror.Validation("email", msgEmailTaken)
	}
	return err
}

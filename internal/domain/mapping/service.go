package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/domain/doctor"
	"github.com/healthcare/healthcare-api/internal/domain/patient"
	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/internal/platform/ownership"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

const (
	msgNotYourPatient  = "You can only assign doctors to patients you created."
	msgAlreadyAssigned = "This patient is already assigned to this doctor."
)

// PatientFinder is satisfied by patient.Repository. It must return
// patient.ErrNotFound for an unknown id.
type PatientFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// DoctorFinder is satisfied by doctor.Repository. It must return
// doctor.ErrNotFound for an unknown id.
type DoctorFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}

// Service manages mappings. A mapping is visible to the owner of its
// patient; the doctor side is unscoped.
type Service struct {
	mappings Repository
	patients PatientFinder
	doctors  DoctorFinder
	tx       db.Transactor
}

func NewService(mappings Repository, patients PatientFinder, doctors DoctorFinder, tx db.Transactor) *Service {
	return &Service{mappings: mappings, patients: patients, doctors: doctors, tx: tx}
}

// Create assigns a doctor to one of the caller's patients. The lookups, the
// duplicate check and the insert share one transaction; the partial unique
// index settles concurrent creators.
func (s *Service) Create(ctx context.Context, caller uuid.UUID, req CreateRequest) (*Mapping, error) {
	patientID, err := uuid.Parse(req.Patient)
	if err != nil {
		return nil, apierror.Validation("patient", "Must be a valid UUID.")
	}
	doctorID, err := uuid.Parse(req.Doctor)
	if err != nil {
		return nil, apierror.Validation("doctor", "Must be a valid UUID.")
	}

	m := &Mapping{CreatedBy: caller, PatientID: patientID, DoctorID: doctorID, Notes: req.Notes}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, patientID)
		if errors.Is(err, patient.ErrNotFound) {
			return apierror.Validation("patient", doesNotExist(patientID))
		}
		if err != nil {
			return err
		}
		if ownership.Check(caller, p) != nil {
			return apierror.NonField(msgNotYourPatient)
		}

		d, err := s.doctors.GetByID(ctx, doctorID)
		if errors.Is(err, doctor.ErrNotFound) {
			return apierror.Validation("doctor", doesNotExist(doctorID))
		}
		if err != nil {
			return err
		}

		exists, err := s.mappings.ActiveExists(ctx, patientID, doctorID)
		if err != nil {
			return err
		}
		if exists {
			return apierror.NonField(msgAlreadyAssigned)
		}
		if err := s.mappings.Create(ctx, m); err != nil {
			return err
		}
		m.PatientDetails = p
		m.DoctorDetails = d
		return nil
	})
	if db.IsUniqueViolation(err, constraintActivePair) {
		return nil, apierror.NonField(msgAlreadyAssigned)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the caller's active mappings.
func (s *Service) List(ctx context.Context, caller uuid.UUID, pg pagination.Params) ([]*Mapping, int, error) {
	return s.mappings.ListActiveByOwner(ctx, caller, pg)
}

// Get returns the mapping whether or not it is still active.
func (s *Service) Get(ctx context.Context, caller, id uuid.UUID) (*Mapping, error) {
	return ownership.Resolve[*Mapping](ctx, caller, id, ErrNotFound, s.mappings.GetByID)
}

// Destroy soft-deletes the mapping. Destroying an inactive mapping succeeds.
func (s *Service) Destroy(ctx context.Context, caller, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		m, err := s.Get(ctx, caller, id)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return nil
		}
		return s.mappings.Deactivate(ctx, m.ID)
	})
}

// ListByPatient returns the active mappings of one of the caller's patients.
func (s *Service) ListByPatient(ctx context.Context, caller, patientID uuid.UUID, pg pagination.Params) ([]*Mapping, int, error) {
	p, err := ownership.Resolve[*patient.Patient](ctx, caller, patientID, patient.ErrNotFound, s.patients.GetByID)
	if err != nil {
		return nil, 0, err
	}
	return s.mappings.ListActiveByPatient(ctx, p.ID, pg)
}

func doesNotExist(id uuid.UUID) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", id.String())
}

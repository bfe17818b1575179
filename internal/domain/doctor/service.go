package doctor

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

const (
	maxExperienceYears = 70
	maxConsultationFee = 100000

	msgLicenseTaken      = "A doctor with this license number already exists."
	msgExperienceNeg     = "Experience years cannot be negative."
	msgExperienceTooHigh = "Experience years seems unrealistic."
	msgFeeNeg            = "Consultation fee cannot be negative."
	msgFeeTooHigh        = "Consultation fee seems unrealistic."
	msgFeeDecimals       = "Ensure that there are no more than 2 decimal places."
)

// Service manages the doctor directory. Doctors are not owner-scoped.
type Service struct {
	doctors Repository
	tx      db.Transactor
}

func NewService(doctors Repository, tx db.Transactor) *Service {
	return &Service{doctors: doctors, tx: tx}
}

func (s *Service) List(ctx context.Context, pg pagination.Params) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, pg)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apierror.NotFound()
	}
	return d, err
}

func (s *Service) Create(ctx context.Context, req Request) (*Doctor, error) {
	if err := validateRanges(req); err != nil {
		return nil, err
	}
	d := &Doctor{}
	d.apply(req)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkLicense(ctx, d.LicenseNumber, uuid.Nil); err != nil {
			return err
		}
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return d, nil
}

// Update replaces every writable field. PATCH callers overlay their partial
// payload on Doctor.Request() first.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req Request) (*Doctor, error) {
	if err := validateRanges(req); err != nil {
		return nil, err
	}
	var d *Doctor
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkLicense(ctx, req.LicenseNumber, d.ID); err != nil {
			return err
		}
		d.apply(req)
		return s.doctors.Update(ctx, d)
	})
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return d, nil
}

// Delete removes the doctor together with every mapping that references it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.doctors.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apierror.NotFound()
	}
	return err
}

func (s *Service) checkLicense(ctx context.Context, license string, exclude uuid.UUID) error {
	taken, err := s.doctors.LicenseExists(ctx, license, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apierror.Validation("license_number", msgLicenseTaken)
	}
	return nil
}

// validateRanges checks the numeric bounds struct tags cannot express with
// their own messages.
func validateRanges(req Request) error {
	fe := apierror.FieldErrors{}
	if req.ExperienceYears == nil {
		fe.Add("experience_years", "This field is required.")
	} else if years := *req.ExperienceYears; years < 0 {
		fe.Add("experience_years", msgExperienceNeg)
	} else if years > maxExperienceYears {
		fe.Add("experience_years", msgExperienceTooHigh)
	}

	if req.ConsultationFee == nil {
		fe.Add("consultation_fee", "This field is required.")
	} else {
		fee := *req.ConsultationFee
		switch {
		case math.IsNaN(fee) || math.IsInf(fee, 0):
			fe.Add("consultation_fee", "A valid number is required.")
		case fee < 0:
			fe.Add("consultation_fee", msgFeeNeg)
		case fee > maxConsultationFee:
			fe.Add("consultation_fee", msgFeeTooHigh)
		case !hasTwoDecimals(fee):
			fe.Add("consultation_fee", msgFeeDecimals)
		}
	}
	return fe.Err()
}

func hasTwoDecimals(v float64) bool {
	cents := v * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

func mapUniqueViolation(err error) error {
	if db.IsUniqueViolation(err, constraintLicense) {
		return apierror.Validation("license_number", msgLicenseTaken)
	}
	return err
}

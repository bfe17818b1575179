package mapping

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthcare/healthcare-api/internal/domain/doctor"
	"github.com/healthcare/healthcare-api/internal/domain/patient"
)

// Mapping assigns a doctor to a patient. Destroying a mapping only clears
// IsActive; rows are never reactivated.
type Mapping struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	PatientID      uuid.UUID        `db:"patient_id" json:"patient"`
	DoctorID       uuid.UUID        `db:"doctor_id" json:"doctor"`
	PatientDetails *patient.Patient `json:"patient_details"`
	DoctorDetails  *doctor.Doctor   `json:"doctor_details"`
	Notes          *string          `db:"notes" json:"notes"`
	IsActive       bool             `db:"is_active" json:"is_active"`
	AssignedDate   time.Time        `db:"assigned_date" json:"assigned_date"`
	CreatedBy      uuid.UUID        `db:"created_by" json:"created_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// OwnerID is the owner of the mapped patient, not the mapping's creator.
func (m *Mapping) OwnerID() uuid.UUID {
	if m.PatientDetails == nil {
		return uuid.Nil
	}
	return m.PatientDetails.CreatedBy
}

type CreateRequest struct {
	Patient string  `json:"patient" validate:"required,uuid"`
	Doctor  string  `json:"doctor" validate:"required,uuid"`
	Notes   *string `json:"notes"`
}

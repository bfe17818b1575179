package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is a record owned by the user who created it. Only the owner can
// see or change it.
type Patient struct {
	ID               uuid.UUID `db:"id" json:"id"`
	CreatedBy        uuid.UUID `db:"created_by" json:"created_by"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone"`
	DateOfBirth      string    `db:"date_of_birth" json:"date_of_birth"`
	Address          string    `db:"address" json:"address"`
	Gender           string    `db:"gender" json:"gender"`
	BloodGroup       *string   `db:"blood_group" json:"blood_group"`
	EmergencyContact string    `db:"emergency_contact" json:"emergency_contact"`
	MedicalHistory   *string   `db:"medical_history" json:"medical_history"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) OwnerID() uuid.UUID {
	return p.CreatedBy
}

// Request returns the writable fields of p, the starting point for a PATCH.
func (p *Patient) Request() Request {
	return Request{
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      p.DateOfBirth,
		Address:          p.Address,
		Gender:           p.Gender,
		BloodGroup:       p.BloodGroup,
		EmergencyContact: p.EmergencyContact,
		MedicalHistory:   p.MedicalHistory,
	}
}

func (p *Patient) apply(r Request) {
	p.Name = r.Name
	p.Email = r.Email
	p.Phone = r.Phone
	p.DateOfBirth = r.DateOfBirth
	p.Address = r.Address
	p.Gender = r.Gender
	p.BloodGroup = r.BloodGroup
	p.EmergencyContact = r.EmergencyContact
	p.MedicalHistory = r.MedicalHistory
}

// Request is the create/update payload.
type Request struct {
	Name             string  `json:"name" validate:"required,max=100"`
	Email            string  `json:"email" validate:"required,max=254,email"`
	Phone            string  `json:"phone" validate:"required,max=15"`
	DateOfBirth      string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Address          string  `json:"address" validate:"required"`
	Gender           string  `json:"gender" validate:"required,oneof=male female other"`
	BloodGroup       *string `json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	EmergencyContact string  `json:"emergency_contact" validate:"required,max=15"`
	MedicalHistory   *string `json:"medical_history"`
}

// Normalize treats a blank blood group as unknown and a blank medical
// history as absent.
func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.BloodGroup != nil && strings.TrimSpace(*r.BloodGroup) == "" {
		r.BloodGroup = nil
	}
	if r.MedicalHistory != nil && strings.TrimSpace(*r.MedicalHistory) == "" {
		r.MedicalHistory = nil
	}
}

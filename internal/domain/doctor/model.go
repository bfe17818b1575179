package doctor

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Doctor is a shared directory entry. Any authenticated user can read and
// change it.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	Phone           string    `db:"phone" json:"phone"`
	Specialization  string    `db:"specialization" json:"specialization"`
	LicenseNumber   string    `db:"license_number" json:"license_number"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	Address         string    `db:"address" json:"address"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	Availability    string    `db:"availability" json:"availability"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Request returns the writable fields of d, the starting point for a PATCH.
func (d *Doctor) Request() Request {
	years, fee := d.ExperienceYears, d.ConsultationFee
	return Request{
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Specialization:  d.Specialization,
		LicenseNumber:   d.LicenseNumber,
		ExperienceYears: &years,
		Address:         d.Address,
		ConsultationFee: &fee,
		Availability:    d.Availability,
	}
}

// apply copies r onto d. r must have passed validation, so the numeric
// pointers are set.
func (d *Doctor) apply(r Request) {
	d.Name = r.Name
	d.Email = r.Email
	d.Phone = r.Phone
	d.Specialization = r.Specialization
	d.LicenseNumber = r.LicenseNumber
	d.ExperienceYears = *r.ExperienceYears
	d.Address = r.Address
	d.ConsultationFee = *r.ConsultationFee
	d.Availability = r.Availability
}

// Request is the create/update payload. The numeric fields are pointers so
// that an explicit zero is distinguishable from a missing value.
type Request struct {
	Name            string   `json:"name" validate:"required,max=100"`
	Email           string   `json:"email" validate:"required,max=254,email"`
	Phone           string   `json:"phone" validate:"required,max=15"`
	Specialization  string   `json:"specialization" validate:"required,max=100"`
	LicenseNumber   string   `json:"license_number" validate:"required,max=50"`
	ExperienceYears *int     `json:"experience_years" validate:"required"`
	Address         string   `json:"address" validate:"required"`
	ConsultationFee *float64 `json:"consultation_fee" validate:"required"`
	Availability    string   `json:"availability" validate:"required,max=200"`
}

func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.LicenseNumber = strings.TrimSpace(r.LicenseNumber)
}

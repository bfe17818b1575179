package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthcare/healthcare-api/internal/domain/doctor"
	"github.com/healthcare/healthcare-api/internal/domain/patient"
	"github.com/healthcare/healthcare-api/internal/platform/db"
	"github.com/healthcare/healthcare-api/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const viewSelect = `SELECT
	m.id, m.patient_id, m.doctor_id, m.notes, m.is_active, m.assigned_date,
	m.created_by, m.created_at, m.updated_at,
	p.id, p.created_by, p.name, p.email, p.phone, to_char(p.date_of_birth, 'YYYY-MM-DD'), p.address,
	p.gender, p.blood_group, p.emergency_contact, p.medical_history, p.created_at, p.updated_at,
	d.id, d.name, d.email, d.phone, d.specialization, d.license_number, d.experience_years,
	d.address, d.consultation_fee, d.availability, d.created_at, d.updated_at
FROM patient_doctor_mappings m
JOIN patients p ON p.id = m.patient_id
JOIN doctors d ON d.id = m.doctor_id`

func (r *repoPG) Create(ctx context.Context, m *Mapping) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_doctor_mappings (id, created_by, patient_id, doctor_id, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING is_active, assigned_date, created_at, updated_at`,
		m.ID, m.CreatedBy, m.PatientID, m.DoctorID, m.Notes,
	).Scan(&m.IsActive, &m.AssignedDate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mapping create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Mapping, error) {
	return scanMapping(r.conn(ctx).QueryRow(ctx, viewSelect+` WHERE m.id = $1`, id))
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_doctor_mappings SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("mapping deactivate: %w", err)
	}
	return nil
}

func (r *repoPG) ActiveExists(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_doctor_mappings
			WHERE patient_id = $1 AND doctor_id = $2 AND is_active
		)`, patientID, doctorID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("mapping active exists: %w", err)
	}
	return ok, nil
}

func (r *repoPG) ListActiveByOwner(ctx context.Context, owner uuid.UUID, pg pagination.Params) ([]*Mapping, int, error) {
	return r.list(ctx, `p.created_by = $1`, owner, pg)
}

func (r *repoPG) ListActiveByPatient(ctx context.Context, patientID uuid.UUID, pg pagination.Params) ([]*Mapping, int, error) {
	return r.list(ctx, `m.patient_id = $1`, patientID, pg)
}

func (r *repoPG) list(ctx context.Context, where string, arg uuid.UUID, pg pagination.Params) ([]*Mapping, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patient_doctor_mappings m
		JOIN patients p ON p.id = m.patient_id
		WHERE m.is_active AND `+where, arg,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("mapping count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, viewSelect+`
		WHERE m.is_active AND `+where+`
		ORDER BY m.assigned_date DESC, m.id `+pg.SQL(), arg)
	if err != nil {
		return nil, 0, fmt.Errorf("mapping list: %w", err)
	}
	defer rows.Close()

	items := []*Mapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func scanMapping(row pgx.Row) (*Mapping, error) {
	var (
		m Mapping
		p patient.Patient
		d doctor.Doctor
	)
	err := row.Scan(
		&m.ID, &m.PatientID, &m.DoctorID, &m.Notes, &m.IsActive, &m.AssignedDate,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
		&p.ID, &p.CreatedBy, &p.Name, &p.Email, &p.Phone, &p.DateOfBirth, &p.Address,
		&p.Gender, &p.BloodGroup, &p.EmergencyContact, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt,
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.Specialization, &d.LicenseNumber, &d.ExperienceYears,
		&d.Address, &d.ConsultationFee, &d.Availability, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mapping scan: %w", err)
	}
	m.PatientDetails = &p
	m.DoctorDetails = &d
	return &m, nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

const patientColumns = `
	p.patient_id, p.first_name, p.last_name, p.date_of_birth, p.sex_id,
	p.gender_identity_id, COALESCE(p.phone, '') AS phone, COALESCE(p.email, '') AS email,
	COALESCE(p.address, '') AS address,
	COALESCE(p.emergency_contact_name, '') AS emergency_contact_name,
	COALESCE(p.emergency_contact_relationship, '') AS emergency_contact_relationship,
	COALESCE(p.emergency_contact_phone, '') AS emergency_contact_phone,
	p.created_at`

// patientRecordQuery joins every patient with its most recent visit.
const patientRecordQuery = `
	SELECT ` + patientColumns + `,
		s.name AS sex_name,
		gi.name AS gender_identity_name,
		v.visit_id, v.visit_datetime, v.check_in_datetime, v.notes,
		v.followup_date, v.status_id,
		d.first_name AS doctor_first_name,
		d.last_name AS doctor_last_name
	FROM patients p
	LEFT JOIN sex s ON s.sex_id = p.sex_id
	LEFT JOIN gender_identities gi ON gi.gender_identity_id = p.gender_identity_id
	LEFT JOIN LATERAL (
		SELECT * FROM visits lv
		WHERE lv.patient_id = p.patient_id
		ORDER BY lv.visit_datetime DESC
		LIMIT 1
	) v ON TRUE
	LEFT JOIN visit_status vs ON vs.status_id = v.status_id
	LEFT JOIN doctors d ON d.doctor_id = v.doctor_id`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			patient_id, first_name, last_name, date_of_birth, sex_id, gender_identity_id,
			phone, email, address, emergency_contact_name, emergency_contact_relationship,
			emergency_contact_phone, created_at
		) VALUES (
			:patient_id, :first_name, :last_name, :date_of_birth, :sex_id, :gender_identity_id,
			:phone, :email, :address, :emergency_contact_name, :emergency_contact_relationship,
			:emergency_contact_phone, :created_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, patient); err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients p WHERE p.patient_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &patient, query, id); err != nil {
		return nil, notFound(err, "get patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetForUpdate(ctx context.Context, id string) (*model.Patient, error) {
	var patient model.Patient
	query := `SELECT ` + patientColumns + ` FROM patients p WHERE p.patient_id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &patient, query, id); err != nil {
		return nil, notFound(err, "lock patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetRecord(ctx context.Context, id string) (*model.PatientRecord, error) {
	var record model.PatientRecord
	query := patientRecordQuery + ` WHERE p.patient_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &record, query, id); err != nil {
		return nil, notFound(err, "get patient record")
	}
	return &record, nil
}

func (r *patientRepository) List(ctx context.Context, filters model.PatientFilters) ([]model.PatientRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("vs.name = $%d", len(args)))
	}
	if filters.Doctor != "" {
		args = append(args, filters.Doctor)
		where = append(where, fmt.Sprintf("CONCAT(d.first_name, ' ', d.last_name) = $%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf(
			"(CONCAT(p.first_name, ' ', p.last_name) ILIKE $%d OR p.phone ILIKE $%d)", len(args), len(args)))
	}

	query := patientRecordQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY v.visit_datetime DESC NULLS LAST, p.created_at DESC"

	var records []model.PatientRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return records, nil
}

func (r *patientRepository) Queue(ctx context.Context) ([]model.PatientRecord, error) {
	query := patientRecordQuery + `
		WHERE v.status_id IN ($1, $2)
		ORDER BY v.visit_datetime ASC`

	var records []model.PatientRecord
	err := sqlx.SelectContext(ctx, r.db, &records, query,
		model.VisitStatusWaiting, model.VisitStatusCheckedIn)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return records, nil
}

func (r *patientRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT p.patient_id) AS total,
			COALESCE(SUM(CASE WHEN v.status_id = $1 THEN 1 ELSE 0 END), 0) AS checked_in,
			COALESCE(SUM(CASE WHEN v.status_id = $2 THEN 1 ELSE 0 END), 0) AS waiting,
			COALESCE(SUM(CASE WHEN v.status_id = $3 THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(SUM(CASE WHEN v.visit_datetime >= $4 AND v.visit_datetime < $5 THEN 1 ELSE 0 END), 0) AS new_today
		FROM patients p
		LEFT JOIN LATERAL (
			SELECT status_id, visit_datetime FROM visits lv
			WHERE lv.patient_id = p.patient_id
			ORDER BY lv.visit_datetime DESC
			LIMIT 1
		) v ON TRUE`

	var stats model.DashboardStats
	err := sqlx.GetContext(ctx, r.db, &stats, query,
		model.VisitStatusCheckedIn, model.VisitStatusWaiting, model.VisitStatusCompleted,
		dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	return &stats, nil
}

func (r *patientRepository) Update(ctx context.Context, id string, changes repository.PatientChanges) error {
	if changes.Empty() {
		return nil
	}
	query, args := buildUpdate("patients", "patient_id", id, changes)
	return r.update(ctx, query, args, "update patient")
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return requireRow(res, "delete patient")
}

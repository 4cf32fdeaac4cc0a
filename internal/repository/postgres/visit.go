package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type visitRepository struct {
	BaseRepository
}

func NewVisitRepository(base BaseRepository) repository.VisitRepository {
	return &visitRepository{base}
}

const visitColumns = `
	v.visit_id, v.patient_id, v.doctor_id, v.visit_datetime, v.check_in_datetime,
	v.status_id, COALESCE(v.notes, '') AS notes,
	COALESCE(v.chief_complaint, '') AS chief_complaint, v.followup_date,
	v.created_by_user_id, v.created_at`

const visitDetailQuery = `
	SELECT ` + visitColumns + `,
		d.first_name AS doctor_first_name,
		d.last_name AS doctor_last_name
	FROM visits v
	LEFT JOIN doctors d ON d.doctor_id = v.doctor_id`

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			visit_id, patient_id, doctor_id, visit_datetime, check_in_datetime, status_id,
			notes, chief_complaint, followup_date, created_by_user_id, created_at
		) VALUES (
			:visit_id, :patient_id, :doctor_id, :visit_datetime, :check_in_datetime, :status_id,
			:notes, :chief_complaint, :followup_date, :created_by_user_id, :created_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, visit); err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) Latest(ctx context.Context, patientID string) (*model.Visit, error) {
	var visit model.Visit
	query := `SELECT ` + visitColumns + ` FROM visits v
		WHERE v.patient_id = $1
		ORDER BY v.visit_datetime DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &visit, query, patientID); err != nil {
		return nil, notFound(err, "get latest visit")
	}
	return &visit, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID string) ([]model.VisitDetail, error) {
	var visits []model.VisitDetail
	query := visitDetailQuery + ` WHERE v.patient_id = $1 ORDER BY v.visit_datetime DESC`
	if err := sqlx.SelectContext(ctx, r.db, &visits, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) FollowUpOn(ctx context.Context, patientID string, day time.Time) (*model.VisitDetail, error) {
	var visit model.VisitDetail
	query := visitDetailQuery + `
		WHERE v.patient_id = $1 AND v.followup_date = $2::date
		ORDER BY v.visit_datetime DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &visit, query, patientID, day.Format("2006-01-02")); err != nil {
		return nil, notFound(err, "find follow-up visit")
	}
	return &visit, nil
}

func (r *visitRepository) Update(ctx context.Context, id string, changes repository.VisitChanges) error {
	if changes.Empty() {
		return nil
	}
	query, args := buildUpdate("visits", "visit_id", id, changes)
	return r.update(ctx, query, args, "update visit")
}

func (r *visitRepository) DeleteByPatient(ctx context.Context, patientID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM visits WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("failed to delete visits: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/orms-api/internal/repository"
)

type clinicalRepository struct {
	BaseRepository
}

func NewClinicalRepository(base BaseRepository) repository.ClinicalRepository {
	return &clinicalRepository{base}
}

func (r *clinicalRepository) DeleteDiagnosesByPatient(ctx context.Context, patientID string) error {
	query := `DELETE FROM diagnoses WHERE visit_id IN (SELECT visit_id FROM visits WHERE patient_id = $1)`
	if _, err := r.db.ExecContext(ctx, query, patientID); err != nil {
		return fmt.Errorf("failed to delete diagnoses: %w", err)
	}
	return nil
}

func (r *clinicalRepository) DeletePrescriptionsByPatient(ctx context.Context, patientID string) error {
	query := `DELETE FROM prescriptions WHERE visit_id IN (SELECT visit_id FROM visits WHERE patient_id = $1)`
	if _, err := r.db.ExecContext(ctx, query, patientID); err != nil {
		return fmt.Errorf("failed to delete prescriptions: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type referenceRepository struct {
	BaseRepository
}

func NewReferenceRepository(base BaseRepository) repository.ReferenceRepository {
	return &referenceRepository{base}
}

func (r *referenceRepository) Departments(ctx context.Context) ([]model.Department, error) {
	var departments []model.Department
	query := `SELECT department_id, name, code, description FROM departments ORDER BY name`
	if err := sqlx.SelectContext(ctx, r.db, &departments, query); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

func (r *referenceRepository) Doctors(ctx context.Context) ([]model.Doctor, error) {
	var doctors []model.Doctor
	query := `
		SELECT
			d.doctor_id,
			CONCAT(d.first_name, ' ', d.last_name) AS full_name,
			dept.name AS department_name,
			d.department_id
		FROM doctors d
		LEFT JOIN departments dept ON dept.department_id = d.department_id
		ORDER BY dept.name, d.first_name, d.last_name`
	if err := sqlx.SelectContext(ctx, r.db, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *referenceRepository) DoctorsByDepartment(ctx context.Context, departmentID string) ([]string, error) {
	var names []string
	query := `
		SELECT CONCAT(first_name, ' ', last_name)
		FROM doctors
		WHERE department_id = $1
		ORDER BY first_name, last_name`
	if err := sqlx.SelectContext(ctx, r.db, &names, query, departmentID); err != nil {
		return nil, fmt.Errorf("failed to list doctors by department: %w", err)
	}
	return names, nil
}

func (r *referenceRepository) FindDoctorByName(ctx context.Context, firstName, lastName string) (string, error) {
	var id string
	query := `SELECT doctor_id FROM doctors WHERE first_name = $1 AND last_name = $2 LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &id, query, firstName, lastName); err != nil {
		return "", notFound(err, "find doctor")
	}
	return id, nil
}

func (r *referenceRepository) Services(ctx context.Context) ([]model.Service, error) {
	var services []model.Service
	query := `SELECT service_id, name, price, is_active FROM services WHERE is_active ORDER BY name`
	if err := sqlx.SelectContext(ctx, r.db, &services, query); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (r *referenceRepository) GetService(ctx context.Context, id string) (*model.Service, error) {
	var service model.Service
	query := `SELECT service_id, name, price, is_active FROM services WHERE service_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &service, query, id); err != nil {
		return nil, notFound(err, "get service")
	}
	return &service, nil
}

func (r *referenceRepository) PaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	query := `SELECT method_id, name FROM payment_methods ORDER BY method_id`
	if err := sqlx.SelectContext(ctx, r.db, &methods, query); err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

func (r *referenceRepository) FindPaymentMethod(ctx context.Context, name string) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	query := `SELECT method_id, name FROM payment_methods WHERE name = $1 LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &method, query, name); err != nil {
		return nil, notFound(err, "find payment method")
	}
	return &method, nil
}

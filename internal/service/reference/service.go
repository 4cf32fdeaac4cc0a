package reference

import (
	"context"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
)

// Service serves the lookup tables used by registration and billing forms.
type Service struct {
	repo repository.ReferenceRepository
}

func NewService(repo repository.ReferenceRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Departments(ctx context.Context) ([]model.Department, error) {
	departments, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return departments, nil
}

func (s *Service) Doctors(ctx context.Context) ([]model.Doctor, error) {
	doctors, err := s.repo.Doctors(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return doctors, nil
}

// DoctorsByDepartment returns the full names of the department's doctors.
func (s *Service) DoctorsByDepartment(ctx context.Context, departmentID string) ([]string, error) {
	names, err := s.repo.DoctorsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return names, nil
}

func (s *Service) Services(ctx context.Context) ([]model.Service, error) {
	services, err := s.repo.Services(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return services, nil
}

// PaymentMethods returns method names ordered by id.
func (s *Service) PaymentMethods(ctx context.Context) ([]string, error) {
	methods, err := s.repo.PaymentMethods(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.Name
	}
	return names, nil
}

func (s *Service) Sexes() []model.Lookup {
	return model.Sexes()
}

func (s *Service) GenderIdentities() []model.Lookup {
	return model.GenderIdentities()
}

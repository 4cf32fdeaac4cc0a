package reference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository/memory"
)

func TestCatalog(t *testing.T) {
	store := memory.NewSeededStore()
	cardio := "DEPT-002"
	store.AddDepartment(model.Department{ID: cardio, Name: "Cardiology"})
	store.AddDoctor("DOC-010", "Zed", "Heart", &cardio)
	store.AddDoctor("DOC-011", "Amy", "Pulse", &cardio)
	store.AddService(model.Service{ID: "xray", Name: "X-Ray", Price: 200, IsActive: true})
	store.AddService(model.Service{ID: "old", Name: "Retired", Price: 1, IsActive: false})

	svc := NewService(store.Reference())
	ctx := context.Background()

	departments, err := svc.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "Cardiology", departments[0].Name)

	doctors, err := svc.Doctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 3)
	assert.Equal(t, "Amy Pulse", doctors[0].FullName)
	assert.Equal(t, "Attending Physician", doctors[2].FullName)

	names, err := svc.DoctorsByDepartment(ctx, cardio)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy Pulse", "Zed Heart"}, names)

	services, err := svc.Services(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Consultation Fee", services[0].Name)
	assert.Equal(t, "X-Ray", services[1].Name)

	methods, err := svc.PaymentMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cash", "Credit Card", "Debit Card", "GCash", "Insurance"}, methods)

	assert.Len(t, svc.GenderIdentities(), 5)
	assert.Len(t, svc.Sexes(), 2)
}

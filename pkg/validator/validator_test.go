package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,visit_status"`
	Due    string `json:"followUpDate" validate:"omitempty,timestamp"`
}

type itemRequest struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

func newValidate(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestVisitStatusTag(t *testing.T) {
	v := newValidate(t)

	assert.NoError(t, v.Struct(statusRequest{Status: "checked-in"}))
	assert.NoError(t, v.Struct(statusRequest{Status: "completed"}))

	for _, status := range []string{"discharged", "Completed", " waiting"} {
		err := v.Struct(statusRequest{Status: status})
		require.Error(t, err, status)
		assert.Equal(t, "Invalid status", Describe(err))
	}
}

func TestTimestampTag(t *testing.T) {
	v := newValidate(t)

	assert.NoError(t, v.Struct(statusRequest{Status: "waiting", Due: "2026-02-01"}))
	assert.NoError(t, v.Struct(statusRequest{Status: "waiting", Due: "2026-02-01T09:30:00Z"}))
	assert.Error(t, v.Struct(statusRequest{Status: "waiting", Due: "next week"}))
}

func TestDescribe_UsesJSONNames(t *testing.T) {
	v := newValidate(t)

	assert.Equal(t, "description is required", Describe(v.Struct(itemRequest{Quantity: 1})))
	assert.Equal(t, "quantity must be greater than 0", Describe(v.Struct(itemRequest{Description: "X-Ray"})))
}

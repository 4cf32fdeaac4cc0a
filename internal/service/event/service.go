package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

// Emitter records domain events in the outbox. Callers pass the outbox of
// the transaction that made the change so the event commits with it.
type Emitter interface {
	Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error
}

type EventService struct{}

func NewEventService() *EventService {
	return &EventService{}
}

func (s *EventService) Emit(ctx context.Context, outbox repository.OutboxRepository, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
	}

	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Payloads

type InvoicePayload struct {
	InvoiceID string  `json:"invoice_id"`
	PatientID string  `json:"patient_id"`
	VisitID   string  `json:"visit_id"`
	Total     float64 `json:"total"`
	Status    string  `json:"status"`
	Merged    bool    `json:"merged,omitempty"`
	UserID    int64   `json:"user_id,omitempty"`
}

type VisitStatusPayload struct {
	PatientID string `json:"patient_id"`
	VisitID   string `json:"visit_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	UserID    int64  `json:"user_id,omitempty"`
}

type PatientPayload struct {
	PatientID string `json:"patient_id"`
	VisitID   string `json:"visit_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
}

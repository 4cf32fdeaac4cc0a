package handler

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewMessageResponse(message string) *MessageResponse {
	return &MessageResponse{Success: true, Message: message}
}

package models

// CreateFeedbackRequest is the body of a feedback submission.
type CreateFeedbackRequest struct {
	CustomerName string `json:"customer_name" validate:"required,min=1,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Message      string `json:"message" validate:"required,min=1,max=8000"`
}

// OverrideRequest is the body of a reviewer correction.
type OverrideRequest struct {
	Field        string `json:"field" validate:"required,oneof=sentiment urgency_level category summary recommended_action"`
	NewValue     string `json:"new_value" validate:"required,min=1,max=500"`
	Reason       string `json:"reason" validate:"required,min=1,max=1000"`
	OverriddenBy string `json:"overridden_by" validate:"required,min=1,max=200"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status   string          `json:"status"`
	Database string          `json:"database"`
	Model    string          `json:"model"`
	Features map[string]bool `json:"features"`
}

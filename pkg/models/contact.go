package models

import "time"

// Represents the data structure coming from the public contact form
type ContactRequest struct {
	BusinessName     string `json:"businessName" validate:"required,max=120"`
	ContactName      string `json:"contactName" validate:"required,max=120"`
	Email            string `json:"email" validate:"required,email,max=120"`
	Phone            string `json:"phone" validate:"required,min=7,max=40"`
	Industry         string `json:"industry" validate:"required,max=120"`
	Volume           string `json:"volume" validate:"required,max=120"`
	CurrentProcessor string `json:"currentProcessor,omitempty" validate:"max=120"`
	Message          string `json:"message,omitempty" validate:"max=2000"`
}

// ContactSubmission is a stored contact request. It is never modified after creation.
type ContactSubmission struct {
	ID               string    `json:"id"`
	BusinessName     string    `json:"businessName"`
	ContactName      string    `json:"contactName"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Industry         string    `json:"industry"`
	Volume           string    `json:"volume"`
	CurrentProcessor string    `json:"currentProcessor,omitempty"`
	Message          string    `json:"message,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RecordID returns the submission identifier
func (c ContactSubmission) RecordID() string {
	return c.ID
}

// Package model defines the core domain types for the festival registration system.
package model

import "time"

// Registration statuses an admin can move a registration through.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

// Registration is a persisted festival registration.
type Registration struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phone_number"`
	University    string    `json:"university"`
	Department    *string   `json:"department"`
	RollNumber    *string   `json:"roll_number"`
	MainCategory  string    `json:"main_category"`
	SubCategory   *string   `json:"sub_category"`
	TeamName      *string   `json:"team_name"`
	TeamMembers   *string   `json:"team_members"`
	TermsAccepted bool      `json:"terms_accepted"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegistrationRequest is the payload submitted by the registration form.
// It lives only for the duration of a single request.
type RegistrationRequest struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phoneNumber"`
	University    string `json:"university"`
	Department    string `json:"department"`
	RollNumber    string `json:"rollNumber"`
	MainCategory  string `json:"mainCategory"`
	SubCategory   string `json:"subCategory"`
	TeamName      string `json:"teamName"`
	TeamMembers   string `json:"teamMembers"`
	TermsAccepted bool   `json:"termsAccepted"`
}

// RegistrationReceipt is what a successful registration echoes back.
type RegistrationReceipt struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// RegistrationFilter narrows admin listings.
type RegistrationFilter struct {
	Category string
	Status   string
	Search   string
	Limit    int
	Offset   int
}

// RegistrationUpdate is the admin-editable subset of a registration.
type RegistrationUpdate struct {
	Status string `json:"status"`
}

// ContactMessage is a persisted message from the public contact form.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   *string   `json:"subject"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the payload submitted by the contact form.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactUpdate is the admin-editable subset of a contact message.
type ContactUpdate struct {
	Read bool `json:"read"`
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	Errors     []string `json:"errors,omitempty"`
	Code       string   `json:"code,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
	Details    string   `json:"details,omitempty"`
}

// SuccessResponse is the standard JSON success envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

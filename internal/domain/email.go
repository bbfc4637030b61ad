package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// ConfirmationEmailData holds data for the registration-confirmed email.
type ConfirmationEmailData struct {
	AthleteName  string
	EventName    string
	CategoryName string
	BibNumber    int
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendRegistrationConfirmed(ctx context.Context, to string, data *ConfirmationEmailData) error
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"raceportal/internal/domain"
)

var confirmationHTML = template.Must(template.New("confirmation").Parse(`
<h1>You're in, {{.AthleteName}}!</h1>
<p>Your registration for <strong>{{.EventName}}</strong> ({{.CategoryName}}) is confirmed.</p>
<p>Your bib number is <strong>{{.BibNumber}}</strong>.</p>
<p>See you at the start line.</p>
`))

type emailService struct {
	mailer domain.Mailer
}

// NewEmailService creates the domain-level email sender on top of a Mailer.
func NewEmailService(mailer domain.Mailer) domain.EmailService {
	return &emailService{mailer: mailer}
}

func (s *emailService) SendRegistrationConfirmed(_ context.Context, to string, data *domain.ConfirmationEmailData) error {
	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}
	text := fmt.Sprintf("You're in, %s! Your registration for %s (%s) is confirmed. Your bib number is %d.",
		data.AthleteName, data.EventName, data.CategoryName, data.BibNumber)
	subject := fmt.Sprintf("Registration confirmed: %s", data.EventName)

	if err := s.mailer.Send(to, subject, html.String(), text); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

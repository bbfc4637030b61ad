package domain

import (
	"context"
	"time"
)

// Athlete represents a person registering for a race. An athlete belongs to
// the portal user account that created it; personal data may be edited later
// by the athlete or an organizer.
// swagger:model Athlete
type Athlete struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    string    `json:"gender"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	// Resident is the athlete's residency claim, verified later through a
	// residency-proof document when the category requires one.
	Resident bool `json:"resident"`
	// Guardian link for minors; empty when the athlete is of age.
	GuardianName     string    `json:"guardian_name,omitempty"`
	GuardianDocument string    `json:"guardian_document,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAthlete returns a new Athlete. ID is typically set by the repository on create.
func NewAthlete(userID, fullName string, birthDate time.Time, gender, document, email string, createdAt, updatedAt time.Time) *Athlete {
	return &Athlete{
		UserID:    userID,
		FullName:  fullName,
		BirthDate: birthDate,
		Gender:    gender,
		Document:  document,
		Email:     email,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// HasGuardian reports whether a guardian link is present.
func (a *Athlete) HasGuardian() bool {
	return a.GuardianName != "" && a.GuardianDocument != ""
}

// AthleteRepository defines the interface for athlete storage.
type AthleteRepository interface {
	Create(ctx context.Context, athlete *Athlete) error
	GetByID(ctx context.Context, id string) (*Athlete, error)
	GetByUserID(ctx context.Context, userID string) (*Athlete, error)
	Update(ctx context.Context, athlete *Athlete) error
}

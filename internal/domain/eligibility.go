package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrIneligible is returned when an athlete fails a category's rule set.
// Wrapped errors carry the specific rule that failed so the presentation
// layer can point the athlete to an alternative category.
var ErrIneligible = errors.New("athlete not eligible for category")

// DocumentKind identifies a supporting document an athlete must provide
// before a registration can be confirmed.
type DocumentKind string

const (
	DocumentResidencyProof        DocumentKind = "residency_proof"
	DocumentGuardianAuthorization DocumentKind = "guardian_authorization"
	DocumentAgeProof              DocumentKind = "age_proof"
)

// seniorAgeProofThreshold: categories restricted to this minimum age or above
// require an age-proof document at review time.
const seniorAgeProofThreshold = 60

// ageOfMajority at the cutoff date; younger athletes need a guardian link.
const ageOfMajority = 18

// CategoryRules is the rule set a category imposes on applicants.
type CategoryRules struct {
	MinAge                 *int
	MaxAge                 *int
	RequiresResidencyProof bool
	RequiresGuardian       bool
}

// EligibilityDecision is the outcome of evaluating an athlete against a
// category's rules. When Eligible is false, Reason names the failed rule.
// RequiredDocuments lists the documents needed before confirmation.
type EligibilityDecision struct {
	Eligible          bool           `json:"eligible"`
	Reason            string         `json:"reason,omitempty"`
	RequiredDocuments []DocumentKind `json:"required_documents,omitempty"`
}

// Err converts an ineligible decision into an error wrapping ErrIneligible.
// Returns nil for an eligible decision.
func (d EligibilityDecision) Err() error {
	if d.Eligible {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrIneligible, d.Reason)
}

// AgeAtCutoff computes the athlete's age at the cutoff date: the year
// difference, minus one when the birthday falls after the cutoff's month/day.
func AgeAtCutoff(birthDate, cutoff time.Time) int {
	age := cutoff.Year() - birthDate.Year()
	if birthDate.Month() > cutoff.Month() ||
		(birthDate.Month() == cutoff.Month() && birthDate.Day() > cutoff.Day()) {
		age--
	}
	return age
}

// EvaluateEligibility decides whether the athlete may enter a category with
// the given rules, using the event's age-cutoff date. It has no side effects
// and is called both at signup and whenever an organizer re-validates a
// registration. Age is always recomputed from the birth date, never cached.
func EvaluateEligibility(athlete *Athlete, rules CategoryRules, cutoff time.Time) EligibilityDecision {
	age := AgeAtCutoff(athlete.BirthDate, cutoff)

	if rules.MinAge != nil && age < *rules.MinAge {
		return EligibilityDecision{
			Eligible: false,
			Reason:   fmt.Sprintf("minimum age is %d, athlete is %d at cutoff %s", *rules.MinAge, age, cutoff.Format("2006-01-02")),
		}
	}
	if rules.MaxAge != nil && age > *rules.MaxAge {
		return EligibilityDecision{
			Eligible: false,
			Reason:   fmt.Sprintf("maximum age is %d, athlete is %d at cutoff %s", *rules.MaxAge, age, cutoff.Format("2006-01-02")),
		}
	}
	if rules.RequiresResidencyProof && !athlete.Resident {
		return EligibilityDecision{
			Eligible: false,
			Reason:   "category is restricted to residents",
		}
	}

	needsGuardian := rules.RequiresGuardian || age < ageOfMajority
	if needsGuardian && !athlete.HasGuardian() {
		return EligibilityDecision{
			Eligible: false,
			Reason:   "a guardian is required for this athlete",
		}
	}

	var docs []DocumentKind
	if rules.RequiresResidencyProof {
		docs = append(docs, DocumentResidencyProof)
	}
	if needsGuardian {
		docs = append(docs, DocumentGuardianAuthorization)
	}
	if rules.MinAge != nil && *rules.MinAge >= seniorAgeProofThreshold {
		docs = append(docs, DocumentAgeProof)
	}

	return EligibilityDecision{Eligible: true, RequiredDocuments: docs}
}

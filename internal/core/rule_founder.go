package core

import (
	"context"
	"fmt"

	"pedigreecore/pkg/domain"
)

// NewFounderCoherenceRule returns the warning rule checking that the founder
// flag agrees with the parent references: founder iff both parents missing.
func NewFounderCoherenceRule() domain.Rule {
	return founderCoherenceRule{}
}

type founderCoherenceRule struct{}

func (founderCoherenceRule) Name() string { return "founder_coherence" }

func (founderCoherenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ped := range view.ListPedigrees() {
		for _, a := range ped.Animals {
			isFounder := a.SireID == domain.DefaultMissingParent && a.DamID == domain.DefaultMissingParent
			if a.Founder == isFounder {
				continue
			}
			msg := "flagged founder but has a known parent"
			if isFounder {
				msg = "has no known parents but is not flagged founder"
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "founder_coherence",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("pedigree %s: animal %d %s", ped.Name, a.ID, msg),
				Entity:   domain.EntityAnimal,
				EntityID: fmt.Sprintf("%s/%d", ped.ID, a.ID),
			})
		}
	}
	return res, nil
}

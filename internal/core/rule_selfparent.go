package core

import (
	"context"
	"fmt"

	"pedigreecore/pkg/domain"
)

// NewSelfParentRule returns the blocking rule rejecting animals recorded as
// their own sire or dam.
func NewSelfParentRule() domain.Rule {
	return selfParentRule{}
}

type selfParentRule struct{}

func (selfParentRule) Name() string { return "self_parent" }

func (selfParentRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ped := range view.ListPedigrees() {
		for _, a := range ped.Animals {
			if a.ID == domain.DefaultMissingParent {
				continue
			}
			if a.SireID == a.ID || a.DamID == a.ID {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "self_parent",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("pedigree %s: animal %d is recorded as its own parent", ped.Name, a.ID),
					Entity:   domain.EntityAnimal,
					EntityID: fmt.Sprintf("%s/%d", ped.ID, a.ID),
				})
			}
		}
	}
	return res, nil
}

package core

import (
	"context"
	"fmt"

	"pedigreecore/pkg/domain"
)

// NewTopologicalOrderRule returns the blocking rule enforcing that renumbered
// pedigrees keep parents ahead of their children in canonical identity order.
func NewTopologicalOrderRule() domain.Rule {
	return topologicalOrderRule{}
}

type topologicalOrderRule struct{}

func (topologicalOrderRule) Name() string { return "topological_order" }

func (topologicalOrderRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ped := range view.ListPedigrees() {
		if !ped.Renumbered {
			continue
		}
		for _, a := range ped.Animals {
			if a.SireID != domain.DefaultMissingParent && a.SireID >= a.ID {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "topological_order",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("pedigree %s: animal %d references sire %d, which does not precede it", ped.Name, a.ID, a.SireID),
					Entity:   domain.EntityPedigree,
					EntityID: ped.ID,
				})
			}
			if a.DamID != domain.DefaultMissingParent && a.DamID >= a.ID {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "topological_order",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("pedigree %s: animal %d references dam %d, which does not precede it", ped.Name, a.ID, a.DamID),
					Entity:   domain.EntityPedigree,
					EntityID: ped.ID,
				})
			}
		}
	}
	return res, nil
}

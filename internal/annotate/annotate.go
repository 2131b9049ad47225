// Package annotate derives secondary attributes over a renumbered container:
// generation numbers, ancestor flags, inferred parent sexes, and offspring
// lists. Every pass rewrites its attribute from scratch, so the passes are
// idempotent and safe to rerun after structural changes.
package annotate

import (
	"pedigreecore/internal/pedigree"
	"pedigreecore/pkg/domain"
)

// Generations assigns generation numbers in canonical order: founders sit at
// generation 0 and every other record sits one above its deepest known
// parent. The container must be renumbered, since the pass relies on parents
// preceding their children.
func Generations(ped *pedigree.Pedigree) error {
	if !ped.Renumbered() {
		return domain.ConsistencyError{Op: "annotate generations", Reason: "pedigree is not renumbered"}
	}
	missing := ped.Options().MissingParent
	gen := make(map[int]float64, ped.Len())
	ped.Mutate(func(a *domain.Animal) {
		g := 0.0
		if a.SireID != missing {
			if pg, ok := gen[a.SireID]; ok && pg+1 > g {
				g = pg + 1
			}
		}
		if a.DamID != missing {
			if pg, ok := gen[a.DamID]; ok && pg+1 > g {
				g = pg + 1
			}
		}
		a.Generation = g
		gen[a.ID] = g
	})
	return nil
}

// AncestorFlags marks every record that appears as a sire or dam of some
// other record, and clears the flag on everything else.
func AncestorFlags(ped *pedigree.Pedigree) error {
	if !ped.Renumbered() {
		return domain.ConsistencyError{Op: "annotate ancestors", Reason: "pedigree is not renumbered"}
	}
	missing := ped.Options().MissingParent
	isParent := make(map[int]bool)
	for _, a := range ped.Records() {
		if a.SireID != missing {
			isParent[a.SireID] = true
		}
		if a.DamID != missing {
			isParent[a.DamID] = true
		}
	}
	ped.Mutate(func(a *domain.Animal) {
		a.Ancestor = isParent[a.ID]
	})
	return nil
}

// InferSexes marks every referenced sire male and every referenced dam
// female. A record referenced on both sides is a data problem; the first role
// seen wins and the conflict is logged.
func InferSexes(ped *pedigree.Pedigree, log domain.Logger) error {
	if log == nil {
		log = domain.NopLogger{}
	}
	if !ped.Renumbered() {
		return domain.ConsistencyError{Op: "annotate sexes", Reason: "pedigree is not renumbered"}
	}
	missing := ped.Options().MissingParent
	inferred := make(map[int]domain.Sex)
	note := func(id int, sex domain.Sex, child int) {
		if prior, ok := inferred[id]; ok {
			if prior != sex {
				log.Warn("animal referenced as both sire and dam, keeping first role",
					"animal", id, "child", child)
			}
			return
		}
		inferred[id] = sex
	}
	for _, a := range ped.Records() {
		if a.SireID != missing {
			note(a.SireID, domain.SexMale, a.ID)
		}
		if a.DamID != missing {
			note(a.DamID, domain.SexFemale, a.ID)
		}
	}
	ped.Mutate(func(a *domain.Animal) {
		if sex, ok := inferred[a.ID]; ok {
			a.Sex = sex
		}
	})
	return nil
}

// PostLoad runs the standard derivation pipeline over a freshly renumbered
// container: sexes from parent roles, generation numbers, ancestor flags,
// then offspring lists.
func PostLoad(ped *pedigree.Pedigree, log domain.Logger) error {
	if err := InferSexes(ped, log); err != nil {
		return err
	}
	if err := Generations(ped); err != nil {
		return err
	}
	if err := AncestorFlags(ped); err != nil {
		return err
	}
	ped.AssignOffspring()
	return nil
}

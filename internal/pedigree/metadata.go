package pedigree

import "pedigreecore/pkg/domain"

// Metadata summarizes the current record sequence: population counts, sex and
// founder tallies, unique parent counts, and the generation range.
func (p *Pedigree) Metadata() domain.PedigreeMetadata {
	md := domain.PedigreeMetadata{TotalAnimals: len(p.animals)}
	missing := p.opts.MissingParent
	sires := make(map[int]struct{})
	dams := make(map[int]struct{})
	first := true
	for i := range p.animals {
		a := p.animals[i]
		switch a.Sex {
		case domain.SexMale:
			md.Males++
		case domain.SexFemale:
			md.Females++
		default:
			md.UnknownSex++
		}
		if a.Founder {
			md.Founders++
		}
		if a.SireID != missing {
			sires[a.SireID] = struct{}{}
		}
		if a.DamID != missing {
			dams[a.DamID] = struct{}{}
		}
		if first {
			md.MinGeneration, md.MaxGeneration = a.Generation, a.Generation
			first = false
			continue
		}
		if a.Generation < md.MinGeneration {
			md.MinGeneration = a.Generation
		}
		if a.Generation > md.MaxGeneration {
			md.MaxGeneration = a.Generation
		}
	}
	md.UniqueSires = len(sires)
	md.UniqueDams = len(dams)
	return md
}

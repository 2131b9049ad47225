// Package pedigree implements the ordered animal container, its identity
// maps, and the renumbering invariant: after Renumber, every known parent's
// canonical identity is strictly less than its child's.
package pedigree

import (
	"strconv"

	"pedigreecore/internal/identity"
	"pedigreecore/pkg/domain"
)

// Pedigree owns one record sequence and the lookup tables over it. Canonical
// identity is stored on each record rather than implied by slice position, so
// structural deletion cannot silently shift identities. The container is not
// safe for concurrent mutation.
type Pedigree struct {
	opts    domain.Options
	log     domain.Logger
	animals []domain.Animal

	// Bidirectional identity table and name table, rebuildable in full from
	// the record sequence alone.
	idmap       map[int]int    // original identity -> current identity
	backmap     map[int]int    // current identity -> original identity
	namemap     map[string]int // name -> original identity
	namebackmap map[int]string // original identity -> name
	index       map[int]int    // current identity -> arena position

	renumbered    bool
	refsCanonical bool
}

// New constructs an empty container under the given option set.
func New(opts domain.Options, logger domain.Logger) *Pedigree {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	opts.Validate()
	return &Pedigree{
		opts:        opts,
		log:         logger,
		idmap:       make(map[int]int),
		backmap:     make(map[int]int),
		namemap:     make(map[string]int),
		namebackmap: make(map[int]string),
		index:       make(map[int]int),
	}
}

// FromRecords rebuilds a container around an existing record slice, as used
// when rehydrating a stored pedigree. The renumbered flag states whether the
// records' parent references are already canonical.
func FromRecords(opts domain.Options, logger domain.Logger, animals []domain.Animal, renumbered bool) *Pedigree {
	p := New(opts, logger)
	p.animals = append(p.animals, animals...)
	p.renumbered = renumbered
	p.refsCanonical = renumbered
	p.UpdateIDMap()
	return p
}

// Options returns the option set the container operates under.
func (p *Pedigree) Options() domain.Options { return p.opts }

// Len returns the number of records.
func (p *Pedigree) Len() int { return len(p.animals) }

// Renumbered reports whether the topological invariant currently holds.
func (p *Pedigree) Renumbered() bool { return p.renumbered }

// Records returns a copy of the record sequence in container order.
func (p *Pedigree) Records() []domain.Animal {
	out := make([]domain.Animal, len(p.animals))
	copy(out, p.animals)
	return out
}

// Append adds a raw record whose parent references are in original identity
// space. Appending invalidates the renumbered state; if the container was
// canonical, all references are translated back to original space first so
// the sequence stays in one identity space.
func (p *Pedigree) Append(a domain.Animal) {
	if p.refsCanonical {
		p.toOriginalRefs()
	}
	p.animals = append(p.animals, a)
	p.renumbered = false
}

// ByID returns the record with the given current identity.
func (p *Pedigree) ByID(id int) (domain.Animal, bool) {
	i, ok := p.index[id]
	if !ok {
		return domain.Animal{}, false
	}
	return p.animals[i], true
}

// ByOriginal returns the record with the given original identity.
func (p *Pedigree) ByOriginal(originalID int) (domain.Animal, bool) {
	id, ok := p.idmap[originalID]
	if !ok {
		return domain.Animal{}, false
	}
	return p.ByID(id)
}

// IDFor maps an original identity to the current identity.
func (p *Pedigree) IDFor(originalID int) (int, bool) {
	id, ok := p.idmap[originalID]
	return id, ok
}

// OriginalFor maps a current identity back to the original identity.
func (p *Pedigree) OriginalFor(id int) (int, bool) {
	orig, ok := p.backmap[id]
	return orig, ok
}

// IDForName maps a display name to the original identity.
func (p *Pedigree) IDForName(name string) (int, bool) {
	id, ok := p.namemap[name]
	return id, ok
}

// NameFor maps an original identity to the display name.
func (p *Pedigree) NameFor(originalID int) (string, bool) {
	name, ok := p.namebackmap[originalID]
	return name, ok
}

// Renumber establishes the topological invariant: phase A reorders records so
// no record precedes either known parent, capped at the configured number of
// passes; phase B assigns canonical identities 1..N in sequence order and
// rewrites every parent reference into canonical space. Maps and offspring
// lists are rebuilt afterwards.
func (p *Pedigree) Renumber() error {
	if p.refsCanonical {
		p.toOriginalRefs()
	}

	missing := p.opts.MissingParent
	n := len(p.animals)
	pos := make(map[int]int, n)
	rebuild := func() {
		for i := range p.animals {
			pos[p.animals[i].OriginalID] = i
		}
	}
	rebuild()

	moved := true
	rounds := 0
	for moved && rounds < p.opts.ReorderMaxRounds {
		moved = false
		rounds++
		for i := 0; i < n; i++ {
			for _, parent := range []int{p.animals[i].SireID, p.animals[i].DamID} {
				if parent == missing {
					continue
				}
				j, ok := pos[parent]
				if !ok || j <= i {
					continue
				}
				rec := p.animals[j]
				copy(p.animals[i+1:j+1], p.animals[i:j])
				p.animals[i] = rec
				rebuild()
				moved = true
			}
		}
	}
	if moved {
		p.log.Warn("reorder pass cap reached, keeping best-effort partial order",
			"pedigree", p.opts.Name, "rounds", rounds)
	}

	toCanonical := make(map[int]int, n)
	for i := range p.animals {
		toCanonical[p.animals[i].OriginalID] = i + 1
	}
	for i := range p.animals {
		a := &p.animals[i]
		a.ID = i + 1
		if a.SireID != missing {
			if id, ok := toCanonical[a.SireID]; ok {
				a.SireID = id
			} else {
				p.log.Warn("sire not present in pedigree, treating as unknown",
					"animal", a.OriginalID, "sire", a.SireID)
				a.SireID = missing
			}
		}
		if a.DamID != missing {
			if id, ok := toCanonical[a.DamID]; ok {
				a.DamID = id
			} else {
				p.log.Warn("dam not present in pedigree, treating as unknown",
					"animal", a.OriginalID, "dam", a.DamID)
				a.DamID = missing
			}
		}
	}

	p.renumbered = true
	p.refsCanonical = true
	p.UpdateIDMap()
	p.AssignOffspring()
	return nil
}

// UpdateIDMap rebuilds the identity and name tables purely from the record
// sequence. Clear-then-rebuild keeps the call idempotent and prevents stale
// entries from accumulating across structural mutations.
func (p *Pedigree) UpdateIDMap() {
	p.idmap = make(map[int]int, len(p.animals))
	p.backmap = make(map[int]int, len(p.animals))
	p.namemap = make(map[string]int, len(p.animals))
	p.namebackmap = make(map[int]string, len(p.animals))
	p.index = make(map[int]int, len(p.animals))
	for i := range p.animals {
		a := p.animals[i]
		p.idmap[a.OriginalID] = a.ID
		p.backmap[a.ID] = a.OriginalID
		if a.Name != "" {
			p.namemap[a.Name] = a.OriginalID
			p.namebackmap[a.OriginalID] = a.Name
		}
		p.index[a.ID] = i
	}
}

// AddAnimal appends a new record under an identity one greater than the
// current maximum, which trivially preserves the topological invariant. The
// parent identities are original-space and must already resolve through the
// identity table; an unresolvable parent leaves the container untouched and
// returns false. Calling this on a container that has never been renumbered
// is unreliable and is logged as such.
func (p *Pedigree) AddAnimal(originalID, sireOriginal, damOriginal int) bool {
	if !p.renumbered {
		p.log.Warn("adding to a pedigree that was never renumbered is unreliable",
			"pedigree", p.opts.Name, "animal", originalID)
	}
	missing := p.opts.MissingParent

	sireID := missing
	if sireOriginal != missing {
		id, ok := p.idmap[sireOriginal]
		if !ok {
			p.log.Warn("sire does not resolve, animal not added", "animal", originalID, "sire", sireOriginal)
			return false
		}
		sireID = id
	}
	damID := missing
	if damOriginal != missing {
		id, ok := p.idmap[damOriginal]
		if !ok {
			p.log.Warn("dam does not resolve, animal not added", "animal", originalID, "dam", damOriginal)
			return false
		}
		damID = id
	}

	newID := 0
	for id := range p.backmap {
		if id > newID {
			newID = id
		}
	}
	newID++

	a := domain.Animal{
		ID:          newID,
		OriginalID:  originalID,
		OriginalKey: strconv.Itoa(originalID),
		Name:        strconv.Itoa(originalID),
		SireID:      sireID,
		DamID:       damID,
		Sex:         domain.SexUnknown,
		BirthYear:   p.opts.MissingBirthYear,
		Alive:       true,
		Founder:     sireID == missing && damID == missing,
	}
	a.PaddedKey = identity.PadKey(originalID, a.BirthYear)
	if a.Founder {
		a.Alleles = [2]string{a.PaddedKey + "__1", a.PaddedKey + "__2"}
	} else {
		a.Alleles = p.opts.MissingAlleles
	}

	p.animals = append(p.animals, a)
	p.idmap[a.OriginalID] = a.ID
	p.backmap[a.ID] = a.OriginalID
	p.namemap[a.Name] = a.OriginalID
	p.namebackmap[a.OriginalID] = a.Name
	p.index[a.ID] = len(p.animals) - 1
	return true
}

// DeleteAnimal removes the record with the given original identity. Because
// canonical identity is stored on each record, removing one record leaves the
// identities of all others intact. Children of the deleted record have that
// parent reference cleared to the missing-parent sentinel rather than left
// dangling, so every remaining reference still resolves; callers needing the
// dense 1..N identity sequence back, such as relationship computations, must
// renumber first. The lookup tables and offspring lists are rebuilt in full
// afterwards.
func (p *Pedigree) DeleteAnimal(originalID int) error {
	id, ok := p.idmap[originalID]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityAnimal, ID: strconv.Itoa(originalID)}
	}
	i := p.index[id]
	p.animals = append(p.animals[:i], p.animals[i+1:]...)
	p.clearParentRefs(id, originalID)
	p.UpdateIDMap()
	if p.renumbered {
		p.AssignOffspring()
	}
	return nil
}

// clearParentRefs rewrites references to a removed record to the
// missing-parent sentinel, in whichever identity space the references are
// currently held. A child that loses its last known parent becomes a founder.
func (p *Pedigree) clearParentRefs(id, originalID int) {
	ref := originalID
	if p.refsCanonical {
		ref = id
	}
	missing := p.opts.MissingParent
	if ref == missing {
		return
	}
	orphaned := 0
	for i := range p.animals {
		a := &p.animals[i]
		changed := false
		if a.SireID == ref {
			a.SireID = missing
			changed = true
		}
		if a.DamID == ref {
			a.DamID = missing
			changed = true
		}
		if changed {
			a.Founder = a.SireID == missing && a.DamID == missing
			orphaned++
		}
	}
	if orphaned > 0 {
		p.log.Info("cleared parent references to deleted animal",
			"pedigree", p.opts.Name, "animal", originalID, "children", orphaned)
	}
}

// Mutate applies fn to every record in sequence order and rebuilds the lookup
// tables afterwards. fn must not change identities or parent references; it
// exists for derived-attribute passes such as generation assignment.
func (p *Pedigree) Mutate(fn func(a *domain.Animal)) {
	for i := range p.animals {
		fn(&p.animals[i])
	}
	p.UpdateIDMap()
}

// AssignOffspring recomputes every parent's son, daughter, and unknown-sex
// child lists from the current parent references. Only meaningful once the
// container is renumbered.
func (p *Pedigree) AssignOffspring() {
	missing := p.opts.MissingParent
	for i := range p.animals {
		p.animals[i].SonIDs = nil
		p.animals[i].DaughterIDs = nil
		p.animals[i].UnknownIDs = nil
	}
	record := func(parentID, childID int, sex domain.Sex) {
		j, ok := p.index[parentID]
		if !ok {
			return
		}
		switch sex {
		case domain.SexMale:
			p.animals[j].SonIDs = append(p.animals[j].SonIDs, childID)
		case domain.SexFemale:
			p.animals[j].DaughterIDs = append(p.animals[j].DaughterIDs, childID)
		default:
			p.animals[j].UnknownIDs = append(p.animals[j].UnknownIDs, childID)
		}
	}
	for i := range p.animals {
		a := p.animals[i]
		if a.SireID != missing {
			record(a.SireID, a.ID, a.Sex)
		}
		if a.DamID != missing {
			record(a.DamID, a.ID, a.Sex)
		}
	}
}

// toOriginalRefs translates every identity and parent reference back to
// original space using the bidirectional table.
func (p *Pedigree) toOriginalRefs() {
	missing := p.opts.MissingParent
	for i := range p.animals {
		a := &p.animals[i]
		if a.SireID != missing {
			if orig, ok := p.backmap[a.SireID]; ok {
				a.SireID = orig
			}
		}
		if a.DamID != missing {
			if orig, ok := p.backmap[a.DamID]; ok {
				a.DamID = orig
			}
		}
		a.ID = a.OriginalID
	}
	p.refsCanonical = false
	p.renumbered = false
	p.UpdateIDMap()
}

// Package merge implements the pairwise set algebra over two consistent
// containers: union, difference, and intersection under a configurable match
// rule. Results are rebuilt in memory through the identity pipeline, never
// through a serialize-and-reload round trip.
package merge

import (
	"strconv"
	"strings"

	"pedigreecore/internal/pedigree"
	"pedigreecore/internal/pedio"
	"pedigreecore/pkg/domain"
)

// Op names one set-algebra operation.
type Op string

const (
	OpUnion        Op = "union"
	OpDifference   Op = "difference"
	OpIntersection Op = "intersection"
)

// Recorder receives per-operation instrumentation counts.
type Recorder interface {
	ObserveMerge(op string, comparisons, duplicates int)
}

// Engine compares and combines pedigrees. Inputs are renumbered in place as a
// precondition when needed; results are always brand-new containers.
type Engine struct {
	log      domain.Logger
	recorder Recorder
}

// Option configures an engine.
type Option func(*Engine)

// WithRecorder attaches an instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// New builds a merge engine.
func New(logger domain.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	e := &Engine{log: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Union keeps every record of a plus every record of b that duplicates no
// record of a under the rule.
func (e *Engine) Union(name string, a, b *pedigree.Pedigree, rule domain.MatchRule) (*pedigree.Pedigree, error) {
	return e.run(OpUnion, name, a, b, rule)
}

// Difference keeps the records of a that duplicate no record of b. The
// duplicate test is evaluated independently per candidate pair.
func (e *Engine) Difference(name string, a, b *pedigree.Pedigree, rule domain.MatchRule) (*pedigree.Pedigree, error) {
	return e.run(OpDifference, name, a, b, rule)
}

// Intersection keeps the records of a that duplicate at least one record of b.
func (e *Engine) Intersection(name string, a, b *pedigree.Pedigree, rule domain.MatchRule) (*pedigree.Pedigree, error) {
	return e.run(OpIntersection, name, a, b, rule)
}

func (e *Engine) run(op Op, name string, a, b *pedigree.Pedigree, rule domain.MatchRule) (*pedigree.Pedigree, error) {
	if len(rule) == 0 {
		return nil, domain.ConfigError{Option: "matchRule", Reason: "match rule is empty"}
	}
	for _, ped := range []*pedigree.Pedigree{a, b} {
		if !ped.Renumbered() {
			e.log.Warn("merge input was not renumbered, renumbering in place",
				"operation", string(op), "pedigree", ped.Options().Name)
			if err := ped.Renumber(); err != nil {
				return nil, err
			}
		}
	}

	var tuples [][]string
	comparisons := 0
	duplicates := 0
	anyDuplicate := func(pa *pedigree.Pedigree, rec domain.Animal, pb *pedigree.Pedigree) (bool, error) {
		for _, other := range pb.Records() {
			comparisons++
			dup, err := e.duplicate(pa, rec, pb, other, rule)
			if err != nil {
				return false, err
			}
			if dup {
				duplicates++
				return true, nil
			}
		}
		return false, nil
	}

	switch op {
	case OpUnion:
		for _, rec := range a.Records() {
			tuples = append(tuples, tupleFor(a, rec))
		}
		for _, rec := range b.Records() {
			dup, err := anyDuplicate(b, rec, a)
			if err != nil {
				return nil, err
			}
			if !dup {
				tuples = append(tuples, tupleFor(b, rec))
			}
		}
	case OpDifference:
		for _, rec := range a.Records() {
			dup, err := anyDuplicate(a, rec, b)
			if err != nil {
				return nil, err
			}
			if !dup {
				tuples = append(tuples, tupleFor(a, rec))
			}
		}
	case OpIntersection:
		for _, rec := range a.Records() {
			dup, err := anyDuplicate(a, rec, b)
			if err != nil {
				return nil, err
			}
			if dup {
				tuples = append(tuples, tupleFor(a, rec))
			}
		}
	default:
		return nil, domain.ConfigError{Option: "operation", Reason: "unknown merge operation " + string(op)}
	}

	if e.recorder != nil {
		e.recorder.ObserveMerge(string(op), comparisons, duplicates)
	}
	e.log.Info("merge complete", "operation", string(op),
		"left", a.Len(), "right", b.Len(), "result", len(tuples),
		"comparisons", comparisons, "duplicates", duplicates)

	opts := a.Options()
	opts.Name = name
	opts.Format = "asdxg"
	if alphaIdentities(a.Options().Format) || alphaIdentities(b.Options().Format) {
		opts.Format = "ASDxg"
	}
	result, err := pedio.NewLoader(opts, e.log).LoadTuples(tuples)
	if err != nil {
		return nil, domain.ConsistencyError{Op: string(op), Reason: "result rebuild failed: " + err.Error()}
	}
	return result, nil
}

// duplicate reports whether the pair matches on every rule code. The
// evaluation is independent per pair: the first mismatching code decides.
func (e *Engine) duplicate(pa *pedigree.Pedigree, a domain.Animal, pb *pedigree.Pedigree, b domain.Animal, rule domain.MatchRule) (bool, error) {
	for _, code := range rule {
		match, err := e.compareCode(code, pa, a, pb, b)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

// compareCode evaluates one rule code over a candidate pair. Identity codes
// compare original identities; parent codes resolve each side's parent
// through its own container, since canonical identities differ across
// containers.
func (e *Engine) compareCode(code byte, pa *pedigree.Pedigree, a domain.Animal, pb *pedigree.Pedigree, b domain.Animal) (bool, error) {
	switch code {
	case domain.CodeAnimal, domain.CodeAnimalAlpha:
		return a.OriginalID == b.OriginalID, nil
	case domain.CodeSire, domain.CodeSireAlpha:
		return e.compareParent(pa, a.SireID, pb, b.SireID)
	case domain.CodeDam, domain.CodeDamAlpha:
		return e.compareParent(pa, a.DamID, pb, b.DamID)
	case domain.CodeSex:
		return a.Sex == b.Sex, nil
	case domain.CodeBirthYear:
		return a.BirthYear == b.BirthYear, nil
	case domain.CodeBirthDate:
		return a.BirthDate == b.BirthDate, nil
	case domain.CodeName:
		return a.Name == b.Name, nil
	case domain.CodeBreed, domain.CodeBreedTrait:
		return a.Breed == b.Breed, nil
	case domain.CodeAlive:
		return a.Alive == b.Alive, nil
	case domain.CodeAge:
		return a.Age == b.Age, nil
	case domain.CodeHerd:
		return a.Herd == b.Herd, nil
	case domain.CodeHerdAlpha:
		return a.OriginalHerd == b.OriginalHerd, nil
	case domain.CodeUserField:
		return a.UserField == b.UserField, nil
	case domain.CodeGeneration:
		return a.Generation == b.Generation, nil
	case domain.CodeGenCoeff:
		return a.GenCoeff == b.GenCoeff, nil
	case domain.CodeInbreeding:
		return a.Inbreeding == b.Inbreeding, nil
	case domain.CodeAlleles:
		return a.Alleles == b.Alleles, nil
	default:
		return false, domain.ConsistencyError{Op: "merge compare",
			Reason: "match rule code " + string(code) + " has no comparable attribute"}
	}
}

// compareParent applies the missing-parent policy: both missing is a match,
// exactly one missing is a mismatch, both known compares the parents'
// original identities.
func (e *Engine) compareParent(pa *pedigree.Pedigree, aref int, pb *pedigree.Pedigree, bref int) (bool, error) {
	aMissing := aref == pa.Options().MissingParent
	bMissing := bref == pb.Options().MissingParent
	if aMissing && bMissing {
		return true, nil
	}
	if aMissing != bMissing {
		return false, nil
	}
	ap, ok := pa.ByID(aref)
	if !ok {
		return false, domain.ConsistencyError{Op: "merge compare",
			Reason: "parent reference " + strconv.Itoa(aref) + " does not resolve in " + pa.Options().Name}
	}
	bp, ok := pb.ByID(bref)
	if !ok {
		return false, domain.ConsistencyError{Op: "merge compare",
			Reason: "parent reference " + strconv.Itoa(bref) + " does not resolve in " + pb.Options().Name}
	}
	return ap.OriginalID == bp.OriginalID, nil
}

// tupleFor renders one record as an identity/sire/dam/sex/generation tuple in
// original identity space, ready for the rebuild pipeline. Alpha identities
// are rendered as their string keys, which hash back to the same original
// identities on reload, so the result keeps the input names.
func tupleFor(ped *pedigree.Pedigree, a domain.Animal) []string {
	missing := ped.Options().MissingParent
	sire := strconv.Itoa(missing)
	dam := strconv.Itoa(missing)
	if a.SireID != missing {
		if p, ok := ped.ByID(a.SireID); ok {
			sire = identityKey(p)
		}
	}
	if a.DamID != missing {
		if p, ok := ped.ByID(a.DamID); ok {
			dam = identityKey(p)
		}
	}
	return []string{
		identityKey(a),
		sire,
		dam,
		string(a.Sex),
		strconv.FormatFloat(a.Generation, 'g', -1, 64),
	}
}

// identityKey prefers the original string key over its hash. Numeric loads
// store the decimal identity as the key, so both spellings are equivalent
// there.
func identityKey(a domain.Animal) string {
	if a.OriginalKey != "" {
		return a.OriginalKey
	}
	return strconv.Itoa(a.OriginalID)
}

// alphaIdentities reports whether a format declares any alpha identity column.
func alphaIdentities(format string) bool {
	codes := string(domain.CodeAnimalAlpha) + string(domain.CodeSireAlpha) + string(domain.CodeDamAlpha)
	return strings.ContainsAny(format, codes)
}

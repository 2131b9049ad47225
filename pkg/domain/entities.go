// Package domain defines the core pedigree records, value types, and
// rule evaluation primitives used by pedigreecore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPedigree identifies a stored pedigree record.
	EntityPedigree EntityType = "pedigree"
	// EntityAnimal identifies an individual animal record within a pedigree.
	EntityAnimal EntityType = "animal"
)

// Sex encodes the recorded sex of an animal.
type Sex string

// Recognized sex codes. Unknown is the default for records whose input
// carries no sex column.
const (
	SexMale    Sex = "m"
	SexFemale  Sex = "f"
	SexUnknown Sex = "u"
)

// PedigreeSource records how a pedigree was constructed.
type PedigreeSource string

const (
	// SourceFile marks a pedigree loaded from a delimited file.
	SourceFile PedigreeSource = "file"
	// SourceSimulation marks a synthetically generated pedigree.
	SourceSimulation PedigreeSource = "simulation"
	// SourceMerge marks a pedigree produced by a set-algebra operation.
	SourceMerge PedigreeSource = "merge"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all stored records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Animal is one individual in a pedigree. Identity lives in two spaces: the
// original identity as read from the source (numeric, or a deterministic hash
// of an alphanumeric key), and the canonical identity assigned by renumbering,
// under which every parent reference precedes its child. ID holds the original
// numeric identity until the owning pedigree is renumbered, after which it
// holds the canonical identity and OriginalID preserves the source value.
type Animal struct {
	ID          int    `json:"id"`
	OriginalID  int    `json:"original_id"`
	OriginalKey string `json:"original_key,omitempty"`
	Name        string `json:"name"`

	// SireID and DamID reference parents in the same identity space as ID,
	// or hold the configured missing-parent sentinel.
	SireID int `json:"sire_id"`
	DamID  int `json:"dam_id"`

	Sex          Sex     `json:"sex"`
	BirthYear    int     `json:"birth_year"`
	BirthDate    string  `json:"birth_date,omitempty"`
	Breed        string  `json:"breed,omitempty"`
	Herd         int     `json:"herd,omitempty"`
	OriginalHerd string  `json:"original_herd,omitempty"`
	Alive        bool    `json:"alive"`
	Age          int     `json:"age"`
	UserField    string  `json:"user_field,omitempty"`
	Founder      bool    `json:"founder"`
	Ancestor     bool    `json:"ancestor"`
	Generation   float64 `json:"generation"`
	GenCoeff     float64 `json:"gen_coeff"`
	Inbreeding   float64 `json:"inbreeding"`

	// PaddedKey is the fixed-width uniqueness token derived from birth year
	// and original identity; it seeds synthetic allele names.
	PaddedKey string    `json:"padded_key,omitempty"`
	Alleles   [2]string `json:"alleles"`

	SonIDs      []int `json:"son_ids,omitempty"`
	DaughterIDs []int `json:"daughter_ids,omitempty"`
	UnknownIDs  []int `json:"unknown_ids,omitempty"`
}

// LightAnimal is the memory-constrained identity variant. It follows the same
// hashing and parent-resolution contract as Animal but carries only identity,
// parentage, sex, and birth year.
type LightAnimal struct {
	ID          int    `json:"id"`
	OriginalID  int    `json:"original_id"`
	OriginalKey string `json:"original_key,omitempty"`
	Name        string `json:"name"`
	SireID      int    `json:"sire_id"`
	DamID       int    `json:"dam_id"`
	Sex         Sex    `json:"sex"`
	BirthYear   int    `json:"birth_year"`
}

// PedigreeMetadata summarizes a pedigree after the post-load pipeline.
type PedigreeMetadata struct {
	TotalAnimals  int     `json:"total_animals"`
	Males         int     `json:"males"`
	Females       int     `json:"females"`
	UnknownSex    int     `json:"unknown_sex"`
	Founders      int     `json:"founders"`
	UniqueSires   int     `json:"unique_sires"`
	UniqueDams    int     `json:"unique_dams"`
	MinGeneration float64 `json:"min_generation"`
	MaxGeneration float64 `json:"max_generation"`
}

// Pedigree is the stored registry entity: an ordered animal sequence plus the
// flags describing its provenance and consistency state.
type Pedigree struct {
	Base
	Name       string            `json:"name"`
	Source     PedigreeSource    `json:"source"`
	Format     string            `json:"format"`
	Renumbered bool              `json:"renumbered"`
	Animals    []Animal          `json:"animals"`
	Metadata   *PedigreeMetadata `json:"metadata,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

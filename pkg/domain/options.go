package domain

import "fmt"

// Default option values substituted during validation. A tunable carrying an
// invalid value is replaced by its default and reported as a warning rather
// than failing the run.
const (
	DefaultFormat           = "asd"
	DefaultSeparator        = " "
	DefaultMissingParent    = 0
	DefaultMissingName      = "Unknown_Name"
	DefaultMissingBirthYear = 1900
	DefaultMatchRule        = "asd"
	DefaultReorderMaxRounds = 100
)

// Options carries the resolved configuration for loading and maintaining one
// pedigree. It replaces ambient global state: every component receives the
// option set it should operate under.
type Options struct {
	// Name labels the pedigree in logs and the registry.
	Name string
	// Pedfile is the source file path, empty for in-memory construction.
	Pedfile string
	// Format is the pedigree format string, one code per input column.
	Format string
	// Separator is the field separator used by the loader and saver.
	Separator string
	// MissingParent is the sentinel identity meaning "parent unknown".
	MissingParent int
	// MissingName is the name assigned to unknown parents.
	MissingName string
	// MissingBirthYear substitutes for records without birth information.
	MissingBirthYear int
	// MissingAlleles is the allele pair for non-founders.
	MissingAlleles [2]string
	// MatchRule is the default field-code sequence for merge comparisons.
	MatchRule string
	// ReorderMaxRounds caps the reordering passes during renumbering.
	ReorderMaxRounds int
}

// DefaultOptions returns an option set populated with documented defaults.
func DefaultOptions() Options {
	return Options{
		Format:           DefaultFormat,
		Separator:        DefaultSeparator,
		MissingParent:    DefaultMissingParent,
		MissingName:      DefaultMissingName,
		MissingBirthYear: DefaultMissingBirthYear,
		MatchRule:        DefaultMatchRule,
		ReorderMaxRounds: DefaultReorderMaxRounds,
	}
}

// Validate substitutes defaults for invalid tunables and returns a warning per
// substitution. It never fails: option problems that would change the shape of
// the unit of work surface later as format or configuration errors.
func (o *Options) Validate() []string {
	var warnings []string
	if o.Format == "" {
		o.Format = DefaultFormat
		warnings = append(warnings, fmt.Sprintf("format empty, using %q", DefaultFormat))
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
		warnings = append(warnings, "separator empty, using single space")
	}
	if o.MissingName == "" {
		o.MissingName = DefaultMissingName
		warnings = append(warnings, fmt.Sprintf("missing-name sentinel empty, using %q", DefaultMissingName))
	}
	if o.MissingBirthYear <= 0 {
		o.MissingBirthYear = DefaultMissingBirthYear
		warnings = append(warnings, fmt.Sprintf("missing birth year invalid, using %d", DefaultMissingBirthYear))
	}
	if o.MatchRule == "" {
		o.MatchRule = DefaultMatchRule
		warnings = append(warnings, fmt.Sprintf("match rule empty, using %q", DefaultMatchRule))
	}
	if o.ReorderMaxRounds <= 0 {
		o.ReorderMaxRounds = DefaultReorderMaxRounds
		warnings = append(warnings, fmt.Sprintf("reorder round cap invalid, using %d", DefaultReorderMaxRounds))
	}
	return warnings
}

// Default simulation parameters.
const (
	DefaultSimTotal       = 15
	DefaultSimGenerations = 3
	DefaultSimSires       = 4
	DefaultSimDams        = 4
	DefaultSimSexRatio    = 0.5
	DefaultSimImmigration = 0.0
	DefaultSimMaxDraws    = 100
	DefaultSimSeed        = 5048665
)

// SimOptions parameterizes the stochastic pedigree generator.
type SimOptions struct {
	// Total is the target population size including founders.
	Total int
	// Generations is the number of generations to fill.
	Generations int
	// FounderSires and FounderDams seed the candidate parent pools.
	FounderSires int
	FounderDams  int
	// SexRatio is the probability a new offspring is female.
	SexRatio float64
	// Immigration is the probability an offspring gets unknown parents.
	Immigration float64
	// ParentOffspring permits matings between a parent and its offspring.
	ParentOffspring bool
	// FullSibs permits matings between full siblings.
	FullSibs bool
	// MaxDraws caps rejection-sampling attempts per offspring before both
	// parents fall back to unknown.
	MaxDraws int
	// Seed fixes the random source for reproducible runs. Zero requests a
	// wall-clock seed and marks the run non-reproducible.
	Seed int64
	// Dump, when non-empty, is a file tag for writing the raw generated
	// rows before identity translation.
	Dump string
}

// DefaultSimOptions returns simulation parameters with documented defaults.
func DefaultSimOptions() SimOptions {
	return SimOptions{
		Total:        DefaultSimTotal,
		Generations:  DefaultSimGenerations,
		FounderSires: DefaultSimSires,
		FounderDams:  DefaultSimDams,
		SexRatio:     DefaultSimSexRatio,
		Immigration:  DefaultSimImmigration,
		MaxDraws:     DefaultSimMaxDraws,
		Seed:         DefaultSimSeed,
	}
}

// Validate substitutes defaults for invalid tunables, returning one warning
// per substitution. Founder counts that meet or exceed the target population
// cannot be recovered and return a ConstraintError.
func (o *SimOptions) Validate() ([]string, error) {
	var warnings []string
	if o.Total <= 0 {
		o.Total = DefaultSimTotal
		warnings = append(warnings, fmt.Sprintf("target size invalid, using %d", DefaultSimTotal))
	}
	if o.Generations <= 0 {
		o.Generations = DefaultSimGenerations
		warnings = append(warnings, fmt.Sprintf("generation count invalid, using %d", DefaultSimGenerations))
	}
	if o.FounderSires <= 0 {
		o.FounderSires = DefaultSimSires
		warnings = append(warnings, fmt.Sprintf("founder sire count invalid, using %d", DefaultSimSires))
	}
	if o.FounderDams <= 0 {
		o.FounderDams = DefaultSimDams
		warnings = append(warnings, fmt.Sprintf("founder dam count invalid, using %d", DefaultSimDams))
	}
	if o.SexRatio <= 0 || o.SexRatio >= 1 {
		o.SexRatio = DefaultSimSexRatio
		warnings = append(warnings, fmt.Sprintf("sex ratio invalid, using %v", DefaultSimSexRatio))
	}
	if o.Immigration < 0 || o.Immigration >= 1 {
		o.Immigration = DefaultSimImmigration
		warnings = append(warnings, fmt.Sprintf("immigration rate invalid, using %v", DefaultSimImmigration))
	}
	if o.MaxDraws <= 0 {
		o.MaxDraws = DefaultSimMaxDraws
		warnings = append(warnings, fmt.Sprintf("draw cap invalid, using %d", DefaultSimMaxDraws))
	}
	if o.FounderSires >= o.Total {
		return warnings, ConstraintError{Param: "founder_sires", Reason: fmt.Sprintf("founder sire count %d must be below target size %d", o.FounderSires, o.Total)}
	}
	if o.FounderDams >= o.Total {
		return warnings, ConstraintError{Param: "founder_dams", Reason: fmt.Sprintf("founder dam count %d must be below target size %d", o.FounderDams, o.Total)}
	}
	if o.FounderSires+o.FounderDams > o.Total {
		return warnings, ConstraintError{Param: "founders", Reason: fmt.Sprintf("combined founder count %d exceeds target size %d", o.FounderSires+o.FounderDams, o.Total)}
	}
	return warnings, nil
}

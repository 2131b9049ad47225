package domain

// Pedigree format codes. A format string has one code per input column;
// upper-case identity codes mark the column as alphanumeric, routing it
// through the deterministic hash instead of integer parsing.
const (
	CodeAnimal      byte = 'a'
	CodeSire        byte = 's'
	CodeDam         byte = 'd'
	CodeGeneration  byte = 'g'
	CodeSex         byte = 'x'
	CodeBirthDate   byte = 'b'
	CodeInbreeding  byte = 'f'
	CodeBreed       byte = 'r'
	CodeName        byte = 'n'
	CodeBirthYear   byte = 'y'
	CodeAlive       byte = 'l'
	CodeAge         byte = 'e'
	CodeGenCoeff    byte = 'p'
	CodeAnimalAlpha byte = 'A'
	CodeSireAlpha   byte = 'S'
	CodeDamAlpha    byte = 'D'
	CodeAlleles     byte = 'L'
	CodeSkip        byte = 'Z'
	CodeHerd        byte = 'h'
	CodeHerdAlpha   byte = 'H'
	CodeUserField   byte = 'u'
	CodeBreedTrait  byte = 'T'
)

// FieldMap maps record attributes to column positions in a raw field tuple.
// A value of -1 means the attribute is absent from the format.
type FieldMap struct {
	Animal      int
	Sire        int
	Dam         int
	Generation  int
	Sex         int
	BirthDate   int
	BirthYear   int
	Inbreeding  int
	GenCoeff    int
	Breed       int
	Name        int
	Alive       int
	Age         int
	Herd        int
	UserField   int
	Alleles     int
	AnimalAlpha bool
	SireAlpha   bool
	DamAlpha    bool
	HerdAlpha   bool
	// Columns is the number of fields every record must carry.
	Columns int
}

// NewFieldMap returns a map with every attribute marked absent.
func NewFieldMap() FieldMap {
	return FieldMap{
		Animal: -1, Sire: -1, Dam: -1,
		Generation: -1, Sex: -1, BirthDate: -1, BirthYear: -1,
		Inbreeding: -1, GenCoeff: -1, Breed: -1, Name: -1,
		Alive: -1, Age: -1, Herd: -1, UserField: -1, Alleles: -1,
	}
}

// MatchRule is an ordered, non-empty sequence of format codes used to test
// record equality across two pedigrees during merge operations.
type MatchRule []byte

// ParseMatchRule validates a rule string against the recognized codes. Codes
// referring to identity or parents get dedicated comparison semantics; any
// other recognized code compares the mapped attribute directly.
func ParseMatchRule(rule string) (MatchRule, error) {
	if rule == "" {
		return nil, ConfigError{Option: "match_rule", Reason: "rule must not be empty"}
	}
	out := make(MatchRule, 0, len(rule))
	for i := 0; i < len(rule); i++ {
		c := rule[i]
		switch c {
		case CodeAnimal, CodeAnimalAlpha, CodeSire, CodeSireAlpha, CodeDam, CodeDamAlpha,
			CodeGeneration, CodeSex, CodeBirthDate, CodeBirthYear, CodeInbreeding,
			CodeBreed, CodeName, CodeAlive, CodeAge, CodeHerd, CodeHerdAlpha, CodeUserField:
			out = append(out, c)
		default:
			return nil, ConfigError{Option: "match_rule", Reason: "unrecognized code " + string(c)}
		}
	}
	return out, nil
}

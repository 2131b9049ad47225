// Package pedio parses and serializes line-oriented pedigree files: format
// strings, comment and header handling, strict column checks, missing-parent
// synthesis, and subset saves in original identity space.
package pedio

import (
	"strings"

	"pedigreecore/pkg/domain"
)

// ParseFormat expands a pedigree format string into a field map. Each code
// claims one input column; CodeSkip marks a column to ignore. The animal,
// sire, and dam codes are structural and their absence is fatal.
func ParseFormat(format string) (domain.FieldMap, error) {
	fm := domain.NewFieldMap()
	assign := func(target *int, col int, code byte) error {
		if *target >= 0 {
			return domain.FormatError{Reason: "duplicate format code " + string(code)}
		}
		*target = col
		return nil
	}
	for i := 0; i < len(format); i++ {
		var err error
		switch c := format[i]; c {
		case domain.CodeAnimal:
			err = assign(&fm.Animal, i, c)
		case domain.CodeAnimalAlpha:
			fm.AnimalAlpha = true
			err = assign(&fm.Animal, i, c)
		case domain.CodeSire:
			err = assign(&fm.Sire, i, c)
		case domain.CodeSireAlpha:
			fm.SireAlpha = true
			err = assign(&fm.Sire, i, c)
		case domain.CodeDam:
			err = assign(&fm.Dam, i, c)
		case domain.CodeDamAlpha:
			fm.DamAlpha = true
			err = assign(&fm.Dam, i, c)
		case domain.CodeGeneration:
			err = assign(&fm.Generation, i, c)
		case domain.CodeSex:
			err = assign(&fm.Sex, i, c)
		case domain.CodeBirthDate:
			err = assign(&fm.BirthDate, i, c)
		case domain.CodeBirthYear:
			err = assign(&fm.BirthYear, i, c)
		case domain.CodeInbreeding:
			err = assign(&fm.Inbreeding, i, c)
		case domain.CodeGenCoeff:
			err = assign(&fm.GenCoeff, i, c)
		case domain.CodeBreed, domain.CodeBreedTrait:
			err = assign(&fm.Breed, i, c)
		case domain.CodeName:
			err = assign(&fm.Name, i, c)
		case domain.CodeAlive:
			err = assign(&fm.Alive, i, c)
		case domain.CodeAge:
			err = assign(&fm.Age, i, c)
		case domain.CodeHerd:
			err = assign(&fm.Herd, i, c)
		case domain.CodeHerdAlpha:
			fm.HerdAlpha = true
			err = assign(&fm.Herd, i, c)
		case domain.CodeUserField:
			err = assign(&fm.UserField, i, c)
		case domain.CodeAlleles:
			err = assign(&fm.Alleles, i, c)
		case domain.CodeSkip:
			// column present in the file but ignored
		default:
			err = domain.FormatError{Reason: "unrecognized format code " + string(c)}
		}
		if err != nil {
			return domain.FieldMap{}, err
		}
	}
	fm.Columns = len(format)
	if fm.Animal < 0 {
		return domain.FieldMap{}, domain.FormatError{Reason: "format is missing the animal code"}
	}
	if fm.Sire < 0 {
		return domain.FieldMap{}, domain.FormatError{Reason: "format is missing the sire code"}
	}
	if fm.Dam < 0 {
		return domain.FieldMap{}, domain.FormatError{Reason: "format is missing the dam code"}
	}
	return fm, nil
}

// splitRecord splits one data line on the configured separator. A single
// space separator tolerates runs of whitespace.
func splitRecord(line, sep string) []string {
	if sep == " " {
		return strings.Fields(line)
	}
	return strings.Split(line, sep)
}

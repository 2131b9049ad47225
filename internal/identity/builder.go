package identity

import (
	"strconv"
	"strings"

	"pedigreecore/pkg/domain"
)

// NewAnimal builds one fully populated animal record from a raw field tuple.
// The field map names which column holds which attribute; the option set
// provides the missing-value sentinels. Malformed numeric fields return a
// FormatError, which the surrounding loader treats as fatal for the load.
func NewAnimal(fields []string, fm domain.FieldMap, opts domain.Options) (domain.Animal, error) {
	a := domain.Animal{Sex: domain.SexUnknown, Alive: true}

	raw := strings.TrimSpace(fields[fm.Animal])
	if fm.AnimalAlpha {
		a.OriginalKey = raw
		a.OriginalID = HashString(raw)
		a.Name = raw
	} else {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Animal{}, domain.FormatError{Reason: "animal identity " + strconv.Quote(raw) + " is not numeric"}
		}
		a.OriginalID = id
		a.OriginalKey = raw
	}
	a.ID = a.OriginalID

	var err error
	a.SireID, err = resolveParent(fields[fm.Sire], fm.SireAlpha, opts)
	if err != nil {
		return domain.Animal{}, err
	}
	a.DamID, err = resolveParent(fields[fm.Dam], fm.DamAlpha, opts)
	if err != nil {
		return domain.Animal{}, err
	}

	if fm.Name >= 0 {
		a.Name = strings.TrimSpace(fields[fm.Name])
	} else if a.Name == "" {
		a.Name = strconv.Itoa(a.OriginalID)
	}

	if fm.Sex >= 0 {
		a.Sex = normalizeSex(fields[fm.Sex])
	}
	if fm.BirthDate >= 0 {
		a.BirthDate = strings.TrimSpace(fields[fm.BirthDate])
	}
	a.BirthYear, err = resolveBirthYear(fields, fm, opts)
	if err != nil {
		return domain.Animal{}, err
	}
	if fm.Generation >= 0 {
		if a.Generation, err = parseFloat(fields[fm.Generation], "generation"); err != nil {
			return domain.Animal{}, err
		}
	}
	if fm.GenCoeff >= 0 {
		if a.GenCoeff, err = parseFloat(fields[fm.GenCoeff], "generation coefficient"); err != nil {
			return domain.Animal{}, err
		}
	}
	if fm.Inbreeding >= 0 {
		if a.Inbreeding, err = parseFloat(fields[fm.Inbreeding], "inbreeding"); err != nil {
			return domain.Animal{}, err
		}
	}
	if fm.Breed >= 0 {
		a.Breed = strings.TrimSpace(fields[fm.Breed])
	}
	if fm.Alive >= 0 {
		v := strings.TrimSpace(fields[fm.Alive])
		a.Alive = v == "y" || v == "1"
	}
	if fm.Age >= 0 {
		age, err := strconv.Atoi(strings.TrimSpace(fields[fm.Age]))
		if err != nil {
			return domain.Animal{}, domain.FormatError{Reason: "age " + strconv.Quote(fields[fm.Age]) + " is not numeric"}
		}
		a.Age = age
	}
	if fm.Herd >= 0 {
		rawHerd := strings.TrimSpace(fields[fm.Herd])
		if fm.HerdAlpha {
			a.OriginalHerd = rawHerd
			a.Herd = HashString(rawHerd)
		} else {
			herd, err := strconv.Atoi(rawHerd)
			if err != nil {
				return domain.Animal{}, domain.FormatError{Reason: "herd " + strconv.Quote(rawHerd) + " is not numeric"}
			}
			a.Herd = herd
			a.OriginalHerd = rawHerd
		}
	}
	if fm.UserField >= 0 {
		a.UserField = strings.TrimSpace(fields[fm.UserField])
	}

	a.PaddedKey = PadKey(a.OriginalID, a.BirthYear)
	classify(&a, fields, fm, opts)
	return a, nil
}

// NewLightAnimal builds the memory-constrained record variant. It shares the
// hashing and parent-resolution contract with NewAnimal but keeps only
// identity, parentage, sex, and birth year.
func NewLightAnimal(fields []string, fm domain.FieldMap, opts domain.Options) (domain.LightAnimal, error) {
	la := domain.LightAnimal{Sex: domain.SexUnknown}

	raw := strings.TrimSpace(fields[fm.Animal])
	if fm.AnimalAlpha {
		la.OriginalKey = raw
		la.OriginalID = HashString(raw)
		la.Name = raw
	} else {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return domain.LightAnimal{}, domain.FormatError{Reason: "animal identity " + strconv.Quote(raw) + " is not numeric"}
		}
		la.OriginalID = id
		la.Name = raw
	}
	la.ID = la.OriginalID

	var err error
	la.SireID, err = resolveParent(fields[fm.Sire], fm.SireAlpha, opts)
	if err != nil {
		return domain.LightAnimal{}, err
	}
	la.DamID, err = resolveParent(fields[fm.Dam], fm.DamAlpha, opts)
	if err != nil {
		return domain.LightAnimal{}, err
	}
	if fm.Name >= 0 {
		la.Name = strings.TrimSpace(fields[fm.Name])
	}
	if fm.Sex >= 0 {
		la.Sex = normalizeSex(fields[fm.Sex])
	}
	la.BirthYear, err = resolveBirthYear(fields, fm, opts)
	if err != nil {
		return domain.LightAnimal{}, err
	}
	return la, nil
}

// resolveParent maps one raw parent field to an identity. A field equal to
// the missing-parent sentinel short-circuits before any hashing or parsing.
func resolveParent(raw string, alpha bool, opts domain.Options) (int, error) {
	v := strings.TrimSpace(raw)
	if v == strconv.Itoa(opts.MissingParent) {
		return opts.MissingParent, nil
	}
	if alpha {
		return HashString(v), nil
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.FormatError{Reason: "parent identity " + strconv.Quote(v) + " is not numeric"}
	}
	return id, nil
}

// classify derives founder status and mints alleles. Founders get two fresh
// synthetic alleles from the padded key, half-founders one fresh allele on
// the unknown side, everyone else the configured missing pair.
func classify(a *domain.Animal, fields []string, fm domain.FieldMap, opts domain.Options) {
	sireMissing := a.SireID == opts.MissingParent
	damMissing := a.DamID == opts.MissingParent
	a.Founder = sireMissing && damMissing

	if fm.Alleles >= 0 {
		if parts := strings.SplitN(strings.TrimSpace(fields[fm.Alleles]), "/", 2); len(parts) == 2 {
			a.Alleles = [2]string{parts[0], parts[1]}
			return
		}
	}
	switch {
	case a.Founder:
		a.Alleles = [2]string{a.PaddedKey + "__1", a.PaddedKey + "__2"}
	case sireMissing:
		a.Alleles = [2]string{a.PaddedKey + "__1", ""}
	case damMissing:
		a.Alleles = [2]string{"", a.PaddedKey + "__2"}
	default:
		a.Alleles = opts.MissingAlleles
	}
}

func resolveBirthYear(fields []string, fm domain.FieldMap, opts domain.Options) (int, error) {
	if fm.BirthYear >= 0 {
		raw := strings.TrimSpace(fields[fm.BirthYear])
		year, err := strconv.Atoi(raw)
		if err != nil {
			return 0, domain.FormatError{Reason: "birth year " + strconv.Quote(raw) + " is not numeric"}
		}
		return year, nil
	}
	if fm.BirthDate >= 0 {
		raw := strings.TrimSpace(fields[fm.BirthDate])
		if len(raw) >= 4 {
			if year, err := strconv.Atoi(raw[:4]); err == nil {
				return year, nil
			}
		}
		return opts.MissingBirthYear, nil
	}
	return opts.MissingBirthYear, nil
}

func parseFloat(raw, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, domain.FormatError{Reason: what + " " + strconv.Quote(raw) + " is not numeric"}
	}
	return v, nil
}

func normalizeSex(raw string) domain.Sex {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return domain.SexUnknown
	}
	switch v[0] {
	case 'm':
		return domain.SexMale
	case 'f':
		return domain.SexFemale
	default:
		return domain.SexUnknown
	}
}

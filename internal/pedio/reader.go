package pedio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"pedigreecore/internal/identity"
	"pedigreecore/internal/pedigree"
	"pedigreecore/pkg/domain"
)

// Loader reads delimited pedigree sources into containers. Structural
// problems (short records, column-count mismatches, unparseable identities)
// abort the whole load; cosmetic problems are logged and skipped.
type Loader struct {
	opts domain.Options
	log  domain.Logger
}

// NewLoader builds a loader, validating the option set and logging one
// warning per substituted default.
func NewLoader(opts domain.Options, logger domain.Logger) *Loader {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	for _, w := range opts.Validate() {
		logger.Warn("option substituted", "pedigree", opts.Name, "detail", w)
	}
	return &Loader{opts: opts, log: logger}
}

// LoadFile opens and loads a pedigree file.
func (l *Loader) LoadFile(path string) (*pedigree.Pedigree, error) {
	f, err := os.Open(path) // #nosec G304: caller-provided data path
	if err != nil {
		return nil, domain.ResourceError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return l.Load(f)
}

// Load reads records line by line. Lines starting with '#' are comments, an
// optional header line is demoted to a comment, a legacy '%'-prefixed line
// declares an inline format string that is parsed and reported but never
// trusted over the configured format, and blank lines are warned about.
// Declared sires and dams that never appear as animal rows are synthesized as
// founder records after the scan. The result is renumbered and consistent.
func (l *Loader) Load(r io.Reader) (*pedigree.Pedigree, error) {
	fm, err := ParseFormat(l.opts.Format)
	if err != nil {
		return nil, err
	}

	ped := pedigree.New(l.opts, l.log)
	sentinel := strconv.Itoa(l.opts.MissingParent)
	declared := make(map[int]struct{})
	parents := make(map[int]struct{})
	headerSeen := false
	sawData := false

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			l.log.Warn("blank line in pedigree file", "line", lineNum)
			continue
		case strings.HasPrefix(trimmed, "#"):
			continue
		case strings.HasPrefix(trimmed, "%"):
			declaredFormat := strings.TrimSpace(strings.TrimPrefix(trimmed, "%"))
			l.log.Warn("deprecated inline format line found, configured format retained",
				"line", lineNum, "declared", declaredFormat, "configured", l.opts.Format)
			continue
		}

		fields := splitRecord(trimmed, l.opts.Separator)
		if !sawData && !headerSeen && looksLikeHeader(fields, fm, sentinel) {
			headerSeen = true
			l.log.Info("header line converted to comment", "line", lineNum)
			continue
		}
		if len(fields) < 3 {
			return nil, domain.FormatError{Line: lineNum, Reason: "record has fewer than 3 fields"}
		}
		if len(fields) != fm.Columns {
			return nil, domain.FormatError{Line: lineNum,
				Reason: "record has " + strconv.Itoa(len(fields)) + " fields, format declares " + strconv.Itoa(fm.Columns)}
		}
		if strings.TrimSpace(fields[fm.Animal]) == sentinel {
			l.log.Error("animal identity equals the missing-parent sentinel, record skipped", "line", lineNum)
			continue
		}

		a, err := identity.NewAnimal(fields, fm, l.opts)
		if err != nil {
			if ferr, ok := err.(domain.FormatError); ok {
				ferr.Line = lineNum
				return nil, ferr
			}
			return nil, err
		}
		sawData = true
		declared[a.OriginalID] = struct{}{}
		if a.SireID != l.opts.MissingParent {
			parents[a.SireID] = struct{}{}
		}
		if a.DamID != l.opts.MissingParent {
			parents[a.DamID] = struct{}{}
		}
		ped.Append(a)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ResourceError{Path: l.opts.Pedfile, Err: err}
	}

	l.synthesizeParents(ped, declared, parents)
	if err := ped.Renumber(); err != nil {
		return nil, err
	}
	return ped, nil
}

// LoadTuples feeds already-split raw field tuples through the same identity
// pipeline, for in-memory construction by the merge engine and simulator.
func (l *Loader) LoadTuples(tuples [][]string) (*pedigree.Pedigree, error) {
	fm, err := ParseFormat(l.opts.Format)
	if err != nil {
		return nil, err
	}
	ped := pedigree.New(l.opts, l.log)
	sentinel := strconv.Itoa(l.opts.MissingParent)
	declared := make(map[int]struct{})
	parents := make(map[int]struct{})
	for i, fields := range tuples {
		if len(fields) != fm.Columns {
			return nil, domain.FormatError{Line: i + 1,
				Reason: "tuple has " + strconv.Itoa(len(fields)) + " fields, format declares " + strconv.Itoa(fm.Columns)}
		}
		if strings.TrimSpace(fields[fm.Animal]) == sentinel {
			l.log.Error("animal identity equals the missing-parent sentinel, tuple skipped", "tuple", i)
			continue
		}
		a, err := identity.NewAnimal(fields, fm, l.opts)
		if err != nil {
			return nil, err
		}
		declared[a.OriginalID] = struct{}{}
		if a.SireID != l.opts.MissingParent {
			parents[a.SireID] = struct{}{}
		}
		if a.DamID != l.opts.MissingParent {
			parents[a.DamID] = struct{}{}
		}
		ped.Append(a)
	}
	l.synthesizeParents(ped, declared, parents)
	if err := ped.Renumber(); err != nil {
		return nil, err
	}
	return ped, nil
}

// synthesizeParents appends a founder record for every declared parent that
// never appeared as an animal row.
func (l *Loader) synthesizeParents(ped *pedigree.Pedigree, declared, parents map[int]struct{}) {
	added := 0
	for id := range parents {
		if _, ok := declared[id]; ok {
			continue
		}
		a := domain.Animal{
			ID:          id,
			OriginalID:  id,
			OriginalKey: strconv.Itoa(id),
			Name:        strconv.Itoa(id),
			SireID:      l.opts.MissingParent,
			DamID:       l.opts.MissingParent,
			Sex:         domain.SexUnknown,
			BirthYear:   l.opts.MissingBirthYear,
			Alive:       true,
			Founder:     true,
		}
		a.PaddedKey = identity.PadKey(id, a.BirthYear)
		a.Alleles = [2]string{a.PaddedKey + "__1", a.PaddedKey + "__2"}
		ped.Append(a)
		added++
	}
	if added > 0 {
		l.log.Info("synthesized founder records for undeclared parents",
			"pedigree", l.opts.Name, "count", added)
	}
}

// looksLikeHeader reports whether the first data candidate reads as a column
// header: a numeric-identity format whose animal field is neither numeric nor
// the sentinel.
func looksLikeHeader(fields []string, fm domain.FieldMap, sentinel string) bool {
	if fm.AnimalAlpha {
		return false
	}
	if fm.Animal >= len(fields) {
		return true
	}
	raw := strings.TrimSpace(fields[fm.Animal])
	if raw == sentinel {
		return false
	}
	_, err := strconv.Atoi(raw)
	return err != nil
}

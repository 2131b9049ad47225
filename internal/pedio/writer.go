package pedio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pedigreecore/internal/pedigree"
	"pedigreecore/pkg/domain"
)

// Saver serializes a container back to the line-oriented form, one record per
// line in format order, with parent references written in original identity
// space so the output reloads cleanly.
type Saver struct {
	opts domain.Options
	log  domain.Logger
	now  func() time.Time
}

// NewSaver builds a saver for the given option set.
func NewSaver(opts domain.Options, logger domain.Logger) *Saver {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	opts.Validate()
	return &Saver{opts: opts, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Save writes the selected records. The subset map selects records by
// original identity; a nil subset selects everything. The format string names
// the output columns and is warned about when it carries no identity or
// parent codes, since such a file cannot round trip.
func (s *Saver) Save(w io.Writer, ped *pedigree.Pedigree, format string, subset map[int]bool) error {
	if format == "" {
		format = s.opts.Format
	}
	if !strings.ContainsAny(format, "aA") || !strings.ContainsAny(format, "sS") || !strings.ContainsAny(format, "dD") {
		s.log.Warn("output format has no identity or parent codes, file will not round trip", "format", format)
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# pedigree %s written %s\n", s.opts.Name, s.now().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "# format %s\n", format); err != nil {
		return err
	}
	for _, a := range ped.Records() {
		if subset != nil && !subset[a.OriginalID] {
			continue
		}
		fields, err := s.renderRecord(ped, a, format)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, s.opts.Separator)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveFile writes to a file, appending when requested.
func (s *Saver) SaveFile(path string, ped *pedigree.Pedigree, format string, subset map[int]bool, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644) // #nosec G304: caller-provided output path
	if err != nil {
		return domain.ResourceError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	if err := s.Save(f, ped, format, subset); err != nil {
		return err
	}
	return nil
}

// renderRecord maps one record to output fields. Parent references resolve to
// the parent's original identity through the container's own identity table.
func (s *Saver) renderRecord(ped *pedigree.Pedigree, a domain.Animal, format string) ([]string, error) {
	fields := make([]string, 0, len(format))
	for i := 0; i < len(format); i++ {
		switch c := format[i]; c {
		case domain.CodeAnimal:
			fields = append(fields, strconv.Itoa(a.OriginalID))
		case domain.CodeAnimalAlpha:
			fields = append(fields, a.OriginalKey)
		case domain.CodeSire:
			fields = append(fields, s.parentField(ped, a.SireID, false))
		case domain.CodeSireAlpha:
			fields = append(fields, s.parentField(ped, a.SireID, true))
		case domain.CodeDam:
			fields = append(fields, s.parentField(ped, a.DamID, false))
		case domain.CodeDamAlpha:
			fields = append(fields, s.parentField(ped, a.DamID, true))
		case domain.CodeGeneration:
			fields = append(fields, strconv.FormatFloat(a.Generation, 'g', -1, 64))
		case domain.CodeGenCoeff:
			fields = append(fields, strconv.FormatFloat(a.GenCoeff, 'g', -1, 64))
		case domain.CodeInbreeding:
			fields = append(fields, strconv.FormatFloat(a.Inbreeding, 'g', -1, 64))
		case domain.CodeSex:
			fields = append(fields, string(a.Sex))
		case domain.CodeBirthDate:
			fields = append(fields, emptyDot(a.BirthDate))
		case domain.CodeBirthYear:
			fields = append(fields, strconv.Itoa(a.BirthYear))
		case domain.CodeBreed, domain.CodeBreedTrait:
			fields = append(fields, emptyDot(a.Breed))
		case domain.CodeName:
			fields = append(fields, emptyDot(a.Name))
		case domain.CodeAlive:
			if a.Alive {
				fields = append(fields, "y")
			} else {
				fields = append(fields, "n")
			}
		case domain.CodeAge:
			fields = append(fields, strconv.Itoa(a.Age))
		case domain.CodeHerd:
			fields = append(fields, strconv.Itoa(a.Herd))
		case domain.CodeHerdAlpha:
			fields = append(fields, emptyDot(a.OriginalHerd))
		case domain.CodeUserField:
			fields = append(fields, emptyDot(a.UserField))
		case domain.CodeAlleles:
			fields = append(fields, a.Alleles[0]+"/"+a.Alleles[1])
		case domain.CodeSkip:
			fields = append(fields, ".")
		default:
			return nil, domain.FormatError{Reason: "unrecognized output format code " + string(c)}
		}
	}
	return fields, nil
}

// parentField renders one parent reference in original identity space.
func (s *Saver) parentField(ped *pedigree.Pedigree, ref int, alpha bool) string {
	if ref == s.opts.MissingParent {
		return strconv.Itoa(s.opts.MissingParent)
	}
	if ped.Renumbered() {
		if parent, ok := ped.ByID(ref); ok {
			if alpha && parent.OriginalKey != "" {
				return parent.OriginalKey
			}
			return strconv.Itoa(parent.OriginalID)
		}
		return strconv.Itoa(s.opts.MissingParent)
	}
	return strconv.Itoa(ref)
}

func emptyDot(v string) string {
	if v == "" {
		return "."
	}
	return v
}

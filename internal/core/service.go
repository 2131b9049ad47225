package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"pedigreecore/internal/annotate"
	"pedigreecore/internal/blob"
	"pedigreecore/internal/infra/persistence/memory"
	"pedigreecore/internal/merge"
	"pedigreecore/internal/nrm"
	"pedigreecore/internal/pedigree"
	"pedigreecore/internal/pedio"
	"pedigreecore/internal/sim"
	"pedigreecore/pkg/domain"
)

// Service exposes the transactional pedigree registry: loading, simulating,
// merging, and annotating pedigrees with consistency rules evaluated on every
// commit.
type Service struct {
	store   PersistentStore
	logger  domain.Logger
	clock   ClockFunc
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	archive blob.Store
	merger  *merge.Engine
	sim     *sim.Generator
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.clock == nil {
		if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
			if fn := provider.NowFunc(); fn != nil {
				options.clock = fn
			}
		}
	}

	var mergeOpts []merge.Option
	if options.mergeRecorder != nil {
		mergeOpts = append(mergeOpts, merge.WithRecorder(options.mergeRecorder))
	}
	var simOpts []sim.Option
	if options.simRecorder != nil {
		simOpts = append(simOpts, sim.WithRecorder(options.simRecorder))
	}

	return &Service{
		store:   store,
		logger:  options.logger,
		clock:   options.clock,
		audit:   options.audit,
		metrics: options.metrics,
		tracer:  options.tracer,
		archive: options.archive,
		merger:  merge.New(options.logger, mergeOpts...),
		sim:     sim.New(options.logger, simOpts...),
	}
}

// NewInMemoryService creates a service over an in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// instrument wraps one service operation with tracing, metrics, logging, and
// auditing. fn returns the identity of the affected entity for the audit
// trail.
func (s *Service) instrument(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		s.recordAuditFailure(ctx, op, entityID, duration, err)
		return err
	}
	s.logger.Info("operation completed", "operation", op, "entity_id", entityID)
	s.recordAuditSuccess(ctx, op, entityID, duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	spec, ok := auditSpecs[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    spec.entity,
		Action:    spec.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditFailure(ctx context.Context, op, entityID string, duration time.Duration, opErr error) {
	spec, ok := auditSpecs[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    spec.entity,
		Action:    spec.action,
		EntityID:  entityID,
		Status:    AuditStatusFailure,
		Error:     opErr.Error(),
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// containerFor rebuilds a working container from a stored record.
func (s *Service) containerFor(rec Pedigree) *pedigree.Pedigree {
	opts := domain.DefaultOptions()
	opts.Name = rec.Name
	if rec.Format != "" {
		opts.Format = rec.Format
	}
	return pedigree.FromRecords(opts, s.logger, rec.Animals, rec.Renumbered)
}

// recordFrom flattens a container into a storable record.
func recordFrom(ped *pedigree.Pedigree, source domain.PedigreeSource) Pedigree {
	meta := ped.Metadata()
	return Pedigree{
		Name:       ped.Options().Name,
		Source:     source,
		Format:     ped.Options().Format,
		Renumbered: ped.Renumbered(),
		Animals:    ped.Records(),
		Metadata:   &meta,
	}
}

func (s *Service) createRecord(ctx context.Context, record Pedigree) (Pedigree, Result, error) {
	var created Pedigree
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreatePedigree(record)
		return txErr
	})
	return created, res, err
}

// ImportPedigree loads a delimited pedigree from r, runs the post-load
// annotation pipeline, and registers the result.
func (s *Service) ImportPedigree(ctx context.Context, r io.Reader, opts domain.Options) (Pedigree, Result, error) {
	var created Pedigree
	var res Result
	err := s.instrument(ctx, "import_pedigree", func(ctx context.Context) (string, error) {
		loader := pedio.NewLoader(opts, s.logger)
		ped, err := loader.Load(r)
		if err != nil {
			return "", err
		}
		if err := annotate.PostLoad(ped, s.logger); err != nil {
			return "", err
		}
		created, res, err = s.createRecord(ctx, recordFrom(ped, domain.SourceFile))
		return created.ID, err
	})
	return created, res, err
}

// ImportPedigreeFile loads a pedigree from the file named by opts or path.
func (s *Service) ImportPedigreeFile(ctx context.Context, path string, opts domain.Options) (Pedigree, Result, error) {
	var created Pedigree
	var res Result
	err := s.instrument(ctx, "import_pedigree", func(ctx context.Context) (string, error) {
		loader := pedio.NewLoader(opts, s.logger)
		ped, err := loader.LoadFile(path)
		if err != nil {
			return "", err
		}
		if err := annotate.PostLoad(ped, s.logger); err != nil {
			return "", err
		}
		created, res, err = s.createRecord(ctx, recordFrom(ped, domain.SourceFile))
		return created.ID, err
	})
	return created, res, err
}

// SimulatePedigree generates a stochastic pedigree and registers it.
func (s *Service) SimulatePedigree(ctx context.Context, simOpts domain.SimOptions, pedOpts domain.Options) (Pedigree, *sim.Result, Result, error) {
	var created Pedigree
	var res Result
	var generated *sim.Result
	err := s.instrument(ctx, "simulate_pedigree", func(ctx context.Context) (string, error) {
		var err error
		generated, err = s.sim.Generate(simOpts, pedOpts)
		if err != nil {
			return "", err
		}
		generated.Pedigree.AssignOffspring()
		created, res, err = s.createRecord(ctx, recordFrom(generated.Pedigree, domain.SourceSimulation))
		return created.ID, err
	})
	return created, generated, res, err
}

// MergePedigrees applies a set-algebra operation over two registered
// pedigrees under the given match rule and registers the result. An empty
// rule falls back to the documented default.
func (s *Service) MergePedigrees(ctx context.Context, op merge.Op, name, aID, bID, rule string) (Pedigree, Result, error) {
	var created Pedigree
	var res Result
	err := s.instrument(ctx, "merge_pedigrees", func(ctx context.Context) (string, error) {
		recA, ok := s.store.GetPedigree(aID)
		if !ok {
			return "", ErrNotFound{Entity: EntityPedigree, ID: aID}
		}
		recB, ok := s.store.GetPedigree(bID)
		if !ok {
			return "", ErrNotFound{Entity: EntityPedigree, ID: bID}
		}
		if rule == "" {
			rule = domain.DefaultMatchRule
		}
		matchRule, err := domain.ParseMatchRule(rule)
		if err != nil {
			return "", err
		}

		a := s.containerFor(recA)
		b := s.containerFor(recB)
		var merged *pedigree.Pedigree
		switch op {
		case merge.OpUnion:
			merged, err = s.merger.Union(name, a, b, matchRule)
		case merge.OpDifference:
			merged, err = s.merger.Difference(name, a, b, matchRule)
		case merge.OpIntersection:
			merged, err = s.merger.Intersection(name, a, b, matchRule)
		default:
			return "", domain.ConfigError{Option: "merge_op", Reason: fmt.Sprintf("unknown operation %q", op)}
		}
		if err != nil {
			return "", err
		}
		if err := annotate.PostLoad(merged, s.logger); err != nil {
			return "", err
		}
		created, res, err = s.createRecord(ctx, recordFrom(merged, domain.SourceMerge))
		return created.ID, err
	})
	return created, res, err
}

// GetPedigree retrieves a registered pedigree.
func (s *Service) GetPedigree(id string) (Pedigree, bool) {
	return s.store.GetPedigree(id)
}

// ListPedigrees returns all registered pedigrees ordered by identity.
func (s *Service) ListPedigrees() []Pedigree {
	return s.store.ListPedigrees()
}

// DeletePedigree removes a pedigree from the registry.
func (s *Service) DeletePedigree(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_pedigree", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeletePedigree(id)
		})
		return id, err
	})
	return res, err
}

// AddAnimal appends an animal to a registered pedigree. Both parents must be
// declared in the pedigree or carry the missing-parent sentinel.
func (s *Service) AddAnimal(ctx context.Context, id string, originalID, sireOriginal, damOriginal int) (Pedigree, Result, error) {
	var updated Pedigree
	var res Result
	err := s.instrument(ctx, "add_animal", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdatePedigree(id, func(p *Pedigree) error {
				ped := s.containerFor(*p)
				if !ped.AddAnimal(originalID, sireOriginal, damOriginal) {
					return domain.ConsistencyError{Op: "add animal",
						Reason: fmt.Sprintf("animal %d has an undeclared parent", originalID)}
				}
				s.flattenInto(ped, p)
				return nil
			})
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// RemoveAnimal deletes an animal by original identity and forces a map
// rebuild in the stored record.
func (s *Service) RemoveAnimal(ctx context.Context, id string, originalID int) (Pedigree, Result, error) {
	var updated Pedigree
	var res Result
	err := s.instrument(ctx, "remove_animal", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdatePedigree(id, func(p *Pedigree) error {
				ped := s.containerFor(*p)
				if err := ped.DeleteAnimal(originalID); err != nil {
					return err
				}
				s.flattenInto(ped, p)
				return nil
			})
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

func (s *Service) flattenInto(ped *pedigree.Pedigree, p *Pedigree) {
	meta := ped.Metadata()
	p.Animals = ped.Records()
	p.Renumbered = ped.Renumbered()
	p.Metadata = &meta
}

// ComputeRelationships builds the numerator relationship matrix for a
// registered pedigree.
func (s *Service) ComputeRelationships(id string) (*nrm.Matrix, error) {
	rec, ok := s.store.GetPedigree(id)
	if !ok {
		return nil, ErrNotFound{Entity: EntityPedigree, ID: id}
	}
	return nrm.Compute(s.containerFor(rec))
}

// SavePedigree writes a registered pedigree to w in the requested format. An
// empty format reuses the pedigree's own.
func (s *Service) SavePedigree(ctx context.Context, id string, w io.Writer, format string) error {
	rec, ok := s.store.GetPedigree(id)
	if !ok {
		return ErrNotFound{Entity: EntityPedigree, ID: id}
	}
	ped := s.containerFor(rec)
	saver := pedio.NewSaver(ped.Options(), s.logger)
	return saver.Save(w, ped, format, nil)
}

// ArchivePedigree serializes a registered pedigree and stores it in the
// configured archive store under key.
func (s *Service) ArchivePedigree(ctx context.Context, id, key string) (blob.Info, error) {
	var info blob.Info
	err := s.instrument(ctx, "archive_pedigree", func(ctx context.Context) (string, error) {
		if s.archive == nil {
			return id, domain.ConfigError{Option: "archive_store", Reason: "no archive store configured"}
		}
		var buf bytes.Buffer
		if err := s.SavePedigree(ctx, id, &buf, ""); err != nil {
			return id, err
		}
		var err error
		info, err = s.archive.Put(ctx, key, &buf, blob.PutOptions{
			ContentType: "text/plain",
			Metadata:    map[string]string{"pedigree_id": id},
		})
		return id, err
	})
	return info, err
}

// ArchiveRelationships computes the relationship matrix for a registered
// pedigree and stores its text form in the archive store under key.
func (s *Service) ArchiveRelationships(ctx context.Context, id, key string) (blob.Info, error) {
	if s.archive == nil {
		return blob.Info{}, domain.ConfigError{Option: "archive_store", Reason: "no archive store configured"}
	}
	m, err := s.ComputeRelationships(id)
	if err != nil {
		return blob.Info{}, err
	}
	var buf bytes.Buffer
	if err := m.SaveText(&buf); err != nil {
		return blob.Info{}, err
	}
	return s.archive.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"pedigree_id": id},
	})
}

// Package memory provides an in-memory implementation of the persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"pedigreecore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Pedigree aliases domain.Pedigree for persistence operations.
	Pedigree = domain.Pedigree
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	pedigrees map[string]Pedigree
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Pedigrees map[string]Pedigree `json:"pedigrees"`
}

func newMemoryState() memoryState {
	return memoryState{pedigrees: make(map[string]Pedigree)}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Pedigrees: make(map[string]Pedigree, len(state.pedigrees))}
	for k, v := range state.pedigrees {
		s.Pedigrees[k] = clonePedigree(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Pedigrees {
		state.pedigrees[k] = clonePedigree(v)
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.pedigrees {
		cloned.pedigrees[k] = clonePedigree(v)
	}
	return cloned
}

func clonePedigree(p Pedigree) Pedigree {
	cp := p
	if p.Animals != nil {
		cp.Animals = make([]domain.Animal, len(p.Animals))
		for i, a := range p.Animals {
			cp.Animals[i] = cloneAnimal(a)
		}
	}
	if p.Metadata != nil {
		meta := *p.Metadata
		cp.Metadata = &meta
	}
	return cp
}

func cloneAnimal(a domain.Animal) domain.Animal {
	cp := a
	cp.SonIDs = append([]int(nil), a.SonIDs...)
	cp.DaughterIDs = append([]int(nil), a.DaughterIDs...)
	cp.UnknownIDs = append([]int(nil), a.UnknownIDs...)
	return cp
}

// Store provides an in-memory transactional store for pedigrees.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot.Pedigrees == nil {
		snapshot.Pedigrees = map[string]Pedigree{}
	}
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

// ListPedigrees returns all pedigrees in the snapshot, ordered by identity.
func (v transactionView) ListPedigrees() []Pedigree {
	out := make([]Pedigree, 0, len(v.state.pedigrees))
	for _, p := range v.state.pedigrees {
		out = append(out, clonePedigree(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindPedigree retrieves a pedigree by ID from the snapshot.
func (v transactionView) FindPedigree(id string) (Pedigree, bool) {
	p, ok := v.state.pedigrees[id]
	if !ok {
		return Pedigree{}, false
	}
	return clonePedigree(p), true
}

// RunInTransaction executes fn within a transactional copy of the store
// state, evaluates the registered rules over the result, and commits only
// when no blocking violation was raised.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

// GetPedigree retrieves a pedigree outside a transaction scope.
func (s *Store) GetPedigree(id string) (Pedigree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.pedigrees[id]
	if !ok {
		return Pedigree{}, false
	}
	return clonePedigree(p), true
}

// ListPedigrees returns all stored pedigrees ordered by identity.
func (s *Store) ListPedigrees() []Pedigree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pedigree, 0, len(s.state.pedigrees))
	for _, p := range s.state.pedigrees {
		out = append(out, clonePedigree(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// CreatePedigree stores a new pedigree within the transaction.
func (tx *transaction) CreatePedigree(p Pedigree) (Pedigree, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.pedigrees[p.ID]; exists {
		return Pedigree{}, fmt.Errorf("pedigree %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.pedigrees[p.ID] = clonePedigree(p)
	tx.recordChange(Change{Entity: domain.EntityPedigree, Action: domain.ActionCreate, After: clonePedigree(p)})
	return clonePedigree(p), nil
}

// UpdatePedigree mutates an existing pedigree using the provided mutator.
func (tx *transaction) UpdatePedigree(id string, mutator func(*Pedigree) error) (Pedigree, error) {
	current, ok := tx.state.pedigrees[id]
	if !ok {
		return Pedigree{}, domain.ErrNotFound{Entity: domain.EntityPedigree, ID: id}
	}
	before := clonePedigree(current)
	if err := mutator(&current); err != nil {
		return Pedigree{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.pedigrees[id] = clonePedigree(current)
	tx.recordChange(Change{Entity: domain.EntityPedigree, Action: domain.ActionUpdate, Before: before, After: clonePedigree(current)})
	return clonePedigree(current), nil
}

// DeletePedigree removes a pedigree from the transaction state.
func (tx *transaction) DeletePedigree(id string) error {
	current, ok := tx.state.pedigrees[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityPedigree, ID: id}
	}
	delete(tx.state.pedigrees, id)
	tx.recordChange(Change{Entity: domain.EntityPedigree, Action: domain.ActionDelete, Before: clonePedigree(current)})
	return nil
}

// FindPedigree exposes pedigree lookup within the transaction scope.
func (tx *transaction) FindPedigree(id string) (Pedigree, bool) {
	p, ok := tx.state.pedigrees[id]
	if !ok {
		return Pedigree{}, false
	}
	return clonePedigree(p), true
}

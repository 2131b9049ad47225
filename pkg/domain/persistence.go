package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	CreatePedigree(Pedigree) (Pedigree, error)
	UpdatePedigree(id string, mutator func(*Pedigree) error) (Pedigree, error)
	DeletePedigree(id string) error
	FindPedigree(id string) (Pedigree, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListPedigrees() []Pedigree
	FindPedigree(id string) (Pedigree, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPedigree(id string) (Pedigree, bool)
	ListPedigrees() []Pedigree
}

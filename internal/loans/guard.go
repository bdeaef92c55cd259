// Package loans enforces resource exclusivity: a book or computer has at
// most one active loan at any time. Check-then-reserve sequences are
// serialized per resource, on top of the storage transaction, so two
// near-simultaneous reservations of the same computer cannot both succeed.
package loans

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"facility-access-control/internal/storage"
)

type Guard struct {
	storage  storage.Provider
	logger   *slog.Logger
	loanDays int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGuard(provider storage.Provider, loanDays int) *Guard {
	if loanDays <= 0 {
		loanDays = 7
	}
	return &Guard{
		storage:  provider,
		logger:   slog.With("component", "loans"),
		loanDays: loanDays,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (g *Guard) resourceLock(kind storage.EntityKind, resourceID int64) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", kind, resourceID)
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}

// Reserve creates an active loan for the resource and marks it loaned.
// Fails with storage.ErrResourceUnavailable when the resource is already
// loaned or under maintenance; no state is written in that case.
func (g *Guard) Reserve(ctx context.Context, kind storage.EntityKind, resourceID, personID int64, now time.Time) (*storage.Loan, error) {
	lock := g.resourceLock(kind, resourceID)
	lock.Lock()
	defer lock.Unlock()

	dueAt := now.AddDate(0, 0, g.loanDays)
	loan, err := g.storage.ReserveResource(ctx, kind, resourceID, personID, now, dueAt)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Resource reserved",
		"loan_id", loan.ID, "kind", kind, "resource_id", resourceID, "person_id", personID, "due_at", dueAt)
	return loan, nil
}

// Release closes the active loan and frees the resource. Fails with
// storage.ErrNoActiveLoan when there is nothing to release.
func (g *Guard) Release(ctx context.Context, kind storage.EntityKind, resourceID int64, now time.Time) (*storage.Loan, error) {
	lock := g.resourceLock(kind, resourceID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := g.storage.ReleaseResource(ctx, kind, resourceID, now)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Resource released",
		"loan_id", loan.ID, "kind", kind, "resource_id", resourceID, "person_id", loan.PersonID)
	return loan, nil
}

// ActiveLoan returns the resource's active loan, or storage.ErrNotFound.
func (g *Guard) ActiveLoan(ctx context.Context, kind storage.EntityKind, resourceID int64) (*storage.Loan, error) {
	return g.storage.ActiveLoan(ctx, kind, resourceID)
}

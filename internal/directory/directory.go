// Package directory resolves card identifiers to entities. The card
// namespace is shared: a UID binds to at most one of person, book or
// computer across the whole facility.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"facility-access-control/internal/storage"
)

// EntityRef is the result of a card resolution. Kind is empty when the
// card did not match any entity.
type EntityRef struct {
	Kind   storage.EntityKind
	ID     int64
	Name   string
	Status storage.ResourceStatus // books and computers only
}

// IsNone reports whether the card resolved to nothing.
func (r EntityRef) IsNone() bool {
	return r.Kind == ""
}

// IsResource reports whether the entity is loanable.
func (r EntityRef) IsResource() bool {
	return r.Kind == storage.KindBook || r.Kind == storage.KindComputer
}

// Key is a stable identifier for per-entity locking.
func (r EntityRef) Key() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

type Directory struct {
	storage storage.Provider
	logger  *slog.Logger
}

func New(provider storage.Provider) *Directory {
	return &Directory{
		storage: provider,
		logger:  slog.With("component", "directory"),
	}
}

// Resolve looks the card up against the three entity namespaces. The
// directory invariant says at most one match exists; if data drifted and
// a UID is bound more than once, resolution picks person over book over
// computer and logs the violation as a data-integrity warning. Pure read.
func (d *Directory) Resolve(ctx context.Context, cardUID string) (EntityRef, error) {
	var (
		matches []EntityRef
		ref     EntityRef
	)

	person, err := d.storage.PersonByCard(ctx, cardUID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return EntityRef{}, fmt.Errorf("directory lookup failed: %w", err)
	}
	if person != nil {
		matches = append(matches, EntityRef{Kind: storage.KindPerson, ID: person.ID, Name: person.FullName})
	}

	book, err := d.storage.BookByCard(ctx, cardUID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return EntityRef{}, fmt.Errorf("directory lookup failed: %w", err)
	}
	if book != nil {
		matches = append(matches, EntityRef{Kind: storage.KindBook, ID: book.ID, Name: book.Title, Status: book.Status})
	}

	computer, err := d.storage.ComputerByCard(ctx, cardUID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return EntityRef{}, fmt.Errorf("directory lookup failed: %w", err)
	}
	if computer != nil {
		matches = append(matches, EntityRef{
			Kind:   storage.KindComputer,
			ID:     computer.ID,
			Name:   computer.Brand + " " + computer.Model,
			Status: computer.Status,
		})
	}

	switch len(matches) {
	case 0:
		return EntityRef{}, nil
	case 1:
		ref = matches[0]
	default:
		// Priority order person > book > computer; matches are already
		// collected in that order.
		ref = matches[0]
		d.logger.Warn("Card bound to multiple entities, resolving by priority",
			"card_uid", cardUID, "matches", len(matches), "resolved_kind", ref.Kind)
	}

	return ref, nil
}

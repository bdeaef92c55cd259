// Package ledger owns the append-only access event log. The most recent
// event per entity, ordered by sequence id, defines that entity's current
// side: inside/outside for people, on-loan/returned framing for resources.
package ledger

import (
	"context"
	"log/slog"

	"facility-access-control/internal/directory"
	"facility-access-control/internal/storage"
)

// Toggle computes the action a new tap produces given the entity's last
// recorded action: entry flips to exit, anything else becomes entry.
func Toggle(last storage.AccessAction) storage.AccessAction {
	if last == storage.ActionEntry {
		return storage.ActionExit
	}
	return storage.ActionEntry
}

type Ledger struct {
	storage storage.Provider
	logger  *slog.Logger
}

func New(provider storage.Provider) *Ledger {
	return &Ledger{
		storage: provider,
		logger:  slog.With("component", "ledger"),
	}
}

// LastAction returns the entity's most recent recorded action, or
// ActionNone when no event exists for it.
func (l *Ledger) LastAction(ctx context.Context, ref directory.EntityRef) (storage.AccessAction, error) {
	return l.storage.LastAction(ctx, ref.Kind, ref.ID)
}

// Append writes a new event and returns its sequence id. Callers must
// hold the per-entity serialization lock across the preceding LastAction
// read; the ledger itself only guarantees append ordering.
func (l *Ledger) Append(ctx context.Context, event *storage.AccessEvent) (int64, error) {
	id, err := l.storage.AppendAccessEvent(ctx, event)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("Appended access event", "id", id, "action", event.Action, "card_uid", event.CardUID)
	return id, nil
}

// Last returns the most recent event across the whole ledger.
func (l *Ledger) Last(ctx context.Context) (*storage.AccessEvent, error) {
	return l.storage.LastAccessEvent(ctx)
}

// Recent returns up to limit events, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]storage.AccessEvent, error) {
	return l.storage.ListAccessEvents(ctx, limit)
}

// Purge clears the whole ledger. Administrative bulk operation, the only
// delete path into access_events.
func (l *Ledger) Purge(ctx context.Context) (int64, error) {
	n, err := l.storage.PurgeAccessEvents(ctx)
	if err != nil {
		return 0, err
	}
	l.logger.Warn("Purged access ledger", "events_deleted", n)
	return n, nil
}

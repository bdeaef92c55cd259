// Package tap orchestrates a single incoming card tap: resolve the card,
// decide entry or exit from the ledger, run loan bookkeeping for books
// and computers, and append exactly one access event.
package tap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"facility-access-control/internal/directory"
	"facility-access-control/internal/ledger"
	"facility-access-control/internal/loans"
	"facility-access-control/internal/storage"
)

// ErrEmptyCardUID rejects a tap before any read happens.
var ErrEmptyCardUID = errors.New("card uid is required")

// Notifier receives every appended event. Implementations must not block;
// delivery is fire-and-forget and failures never affect the ledger.
type Notifier interface {
	Publish(event *storage.AccessEvent)
}

// CheckInHook is told about person entry events so scheduled appointments
// can transition to checked-in.
type CheckInHook interface {
	PersonEntered(ctx context.Context, personID int64, now time.Time)
}

type Dispatcher struct {
	directory *directory.Directory
	ledger    *ledger.Ledger
	guard     *loans.Guard
	notifier  Notifier
	checkIn   CheckInHook
	logger    *slog.Logger

	borrowers      *borrowerStore
	borrowerWindow time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

type Option func(*Dispatcher)

// WithNotifier attaches a broadcast sink for appended events.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithCheckInHook attaches the appointment check-in hook.
func WithCheckInHook(h CheckInHook) Option {
	return func(d *Dispatcher) { d.checkIn = h }
}

// WithBorrowerWindow overrides the pairing window for borrower context.
func WithBorrowerWindow(window time.Duration) Option {
	return func(d *Dispatcher) { d.borrowerWindow = window }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(dir *directory.Directory, ldg *ledger.Ledger, guard *loans.Guard, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		directory:      dir,
		ledger:         ldg,
		guard:          guard,
		logger:         slog.With("component", "tap"),
		borrowers:      newBorrowerStore(),
		borrowerWindow: 90 * time.Second,
		locks:          make(map[string]*sync.Mutex),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// entityLock serializes the read-toggle-append sequence per entity, so
// two near-simultaneous taps of the same card cannot both compute entry.
func (d *Dispatcher) entityLock(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[key] = lock
	}
	return lock
}

// HandleTap processes one card tap and returns the appended event. An
// unrecognized card is not an error; an empty UID and an unavailable
// resource are.
func (d *Dispatcher) HandleTap(ctx context.Context, cardUID string) (*storage.AccessEvent, error) {
	cardUID = strings.TrimSpace(cardUID)
	if cardUID == "" {
		return nil, ErrEmptyCardUID
	}

	now := d.now().UTC()

	ref, err := d.directory.Resolve(ctx, cardUID)
	if err != nil {
		return nil, err
	}

	if ref.IsNone() {
		event := &storage.AccessEvent{
			Action:     storage.ActionUnrecognized,
			CardUID:    cardUID,
			RecordedAt: now,
		}
		if _, err := d.ledger.Append(ctx, event); err != nil {
			return nil, err
		}
		d.logger.Info("Unrecognized card tap", "card_uid", cardUID, "event_id", event.ID)
		d.publish(event)
		return event, nil
	}

	lock := d.entityLock(ref.Key())
	lock.Lock()
	defer lock.Unlock()

	last, err := d.ledger.LastAction(ctx, ref)
	if err != nil {
		return nil, err
	}
	action := ledger.Toggle(last)

	if ref.IsResource() {
		return d.handleResourceTap(ctx, ref, cardUID, action, now)
	}
	return d.handlePersonTap(ctx, ref, cardUID, action, now)
}

func (d *Dispatcher) handlePersonTap(ctx context.Context, ref directory.EntityRef, cardUID string, action storage.AccessAction, now time.Time) (*storage.AccessEvent, error) {
	event := &storage.AccessEvent{
		PersonID:   &ref.ID,
		Action:     action,
		CardUID:    cardUID,
		RecordedAt: now,
	}
	if _, err := d.ledger.Append(ctx, event); err != nil {
		return nil, err
	}

	if action == storage.ActionEntry {
		d.borrowers.remember(ref.ID, ref.Name, now)
		if d.checkIn != nil {
			d.checkIn.PersonEntered(ctx, ref.ID, now)
		}
	} else {
		d.borrowers.forget(ref.ID)
	}

	d.logger.Info("Person tap", "person_id", ref.ID, "action", action, "event_id", event.ID)
	d.publish(event)
	return event, nil
}

func (d *Dispatcher) handleResourceTap(ctx context.Context, ref directory.EntityRef, cardUID string, action storage.AccessAction, now time.Time) (*storage.AccessEvent, error) {
	event := &storage.AccessEvent{
		Action:     action,
		CardUID:    cardUID,
		RecordedAt: now,
	}
	switch ref.Kind {
	case storage.KindBook:
		event.BookID = &ref.ID
	case storage.KindComputer:
		event.ComputerID = &ref.ID
	}

	if action == storage.ActionEntry {
		if borrower, ok := d.borrowers.within(now, d.borrowerWindow); ok {
			loan, err := d.guard.Reserve(ctx, ref.Kind, ref.ID, borrower.PersonID, now)
			if err != nil {
				// Rejected before any write: the ledger must not claim an
				// entry for a resource that could not be reserved.
				return nil, fmt.Errorf("tap rejected: %w", err)
			}
			event.LoanID = &loan.ID

			if _, err := d.ledger.Append(ctx, event); err != nil {
				// Compensate so the loan table and the ledger do not diverge.
				if _, rerr := d.guard.Release(ctx, ref.Kind, ref.ID, now); rerr != nil {
					d.logger.Error("Failed to roll back reservation after append failure",
						"kind", ref.Kind, "resource_id", ref.ID, "error", rerr)
				}
				return nil, err
			}
		} else {
			// No borrower in the pairing window: record presence only.
			// Loan registration stays an explicit, operator-driven action.
			if _, err := d.ledger.Append(ctx, event); err != nil {
				return nil, err
			}
		}
	} else {
		loan, err := d.guard.Release(ctx, ref.Kind, ref.ID, now)
		switch {
		case err == nil:
			event.LoanID = &loan.ID
		case errors.Is(err, storage.ErrNoActiveLoan):
			d.logger.Warn("Exit tap without active loan", "kind", ref.Kind, "resource_id", ref.ID)
		default:
			// The tap is still evidence the card was presented; the loan
			// bookkeeping failure is reported separately.
			d.logger.Warn("Release failed on exit tap", "kind", ref.Kind, "resource_id", ref.ID, "error", err)
		}
		if _, err := d.ledger.Append(ctx, event); err != nil {
			return nil, err
		}
	}

	d.logger.Info("Resource tap", "kind", ref.Kind, "resource_id", ref.ID, "action", action, "event_id", event.ID)
	d.publish(event)
	return event, nil
}

func (d *Dispatcher) publish(event *storage.AccessEvent) {
	if d.notifier == nil {
		return
	}
	d.notifier.Publish(event)
}

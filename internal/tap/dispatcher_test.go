package tap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-access-control/internal/config"
	"facility-access-control/internal/directory"
	"facility-access-control/internal/ledger"
	"facility-access-control/internal/loans"
	"facility-access-control/internal/storage"
)

const (
	personUID = "04AABBCC"
	bookUID   = "04DDEEFF"
)

type fixture struct {
	provider   storage.Provider
	dispatcher *Dispatcher
	personID   int64
	bookID     int64
	clock      *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	provider := storage.NewProvider(&config.Storage{SQLite: &config.SQLLiteStorage{Path: ":memory:"}})
	require.NotNil(t, provider, "failed to open test storage")
	t.Cleanup(func() { provider.Close() })

	ctx := context.Background()
	pUID := personUID
	person := &storage.Person{FullName: "Sofía Medina", CardUID: &pUID}
	require.NoError(t, provider.CreatePerson(ctx, person))

	bUID := bookUID
	book := &storage.Book{Title: "Álgebra Lineal", Author: "S. Grossman", CardUID: &bUID}
	require.NoError(t, provider.CreateBook(ctx, book))

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	dispatcher := NewDispatcher(
		directory.New(provider),
		ledger.New(provider),
		loans.NewGuard(provider, 7),
		opts...,
	)

	return &fixture{
		provider:   provider,
		dispatcher: dispatcher,
		personID:   person.ID,
		bookID:     book.ID,
		clock:      clock,
	}
}

func TestHandleTap_EmptyUID(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatcher.HandleTap(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCardUID)
}

func TestHandleTap_PersonToggleAlternates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	want := []storage.AccessAction{
		storage.ActionEntry,
		storage.ActionExit,
		storage.ActionEntry,
		storage.ActionExit,
	}
	for i, action := range want {
		event, err := f.dispatcher.HandleTap(ctx, personUID)
		require.NoError(t, err, "tap %d", i)
		assert.Equal(t, action, event.Action, "tap %d", i)
		require.NotNil(t, event.PersonID)
		assert.Equal(t, f.personID, *event.PersonID)
	}
}

func TestHandleTap_ConcurrentSameCardStillAlternates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Near-simultaneous taps of one card must serialize: no two of them
	// may both read the same last action and both compute entry.
	const taps = 10
	var wg sync.WaitGroup
	errs := make([]error, taps)
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.dispatcher.HandleTap(ctx, personUID)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "tap %d", i)
	}

	events, err := f.provider.ListAccessEvents(ctx, taps)
	require.NoError(t, err)
	require.Len(t, events, taps)

	// Replayed oldest first the ledger must read entry, exit, entry, ...
	want := storage.ActionEntry
	for i := len(events) - 1; i >= 0; i-- {
		assert.Equal(t, want, events[i].Action, "event %d", len(events)-1-i)
		want = ledger.Toggle(want)
	}
}

func TestHandleTap_UnrecognizedCardStillAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.dispatcher.HandleTap(ctx, "CAFEF00D")
	require.NoError(t, err, "unrecognized card is not an error")
	assert.Equal(t, storage.ActionUnrecognized, event.Action)
	assert.Nil(t, event.PersonID)
	assert.Nil(t, event.BookID)
	assert.Nil(t, event.ComputerID)
	assert.Nil(t, event.LoanID)

	// Unrecognized taps never toggle: a second tap repeats the action.
	again, err := f.dispatcher.HandleTap(ctx, "CAFEF00D")
	require.NoError(t, err)
	assert.Equal(t, storage.ActionUnrecognized, again.Action)
	assert.Greater(t, again.ID, event.ID)
}

func TestHandleTap_BorrowerPairingCreatesLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Person enters, then the book is tapped inside the pairing window.
	_, err := f.dispatcher.HandleTap(ctx, personUID)
	require.NoError(t, err)
	f.clock.advance(10 * time.Second)

	event, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)
	assert.Equal(t, storage.ActionEntry, event.Action)
	require.NotNil(t, event.LoanID)

	loan, err := f.provider.ActiveLoan(ctx, storage.KindBook, f.bookID)
	require.NoError(t, err)
	assert.Equal(t, *event.LoanID, loan.ID)
	assert.Equal(t, f.personID, loan.PersonID)

	status, err := f.provider.ResourceStatus(ctx, storage.KindBook, f.bookID)
	require.NoError(t, err)
	assert.Equal(t, storage.ResourceLoaned, status)
}

func TestHandleTap_ResourceEntryWithoutBorrowerIsPresenceOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)
	assert.Equal(t, storage.ActionEntry, event.Action)
	assert.Nil(t, event.LoanID)

	_, err = f.provider.ActiveLoan(ctx, storage.KindBook, f.bookID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHandleTap_ExpiredBorrowerWindow(t *testing.T) {
	f := newFixture(t, WithBorrowerWindow(30*time.Second))
	ctx := context.Background()

	_, err := f.dispatcher.HandleTap(ctx, personUID)
	require.NoError(t, err)
	f.clock.advance(31 * time.Second)

	event, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)
	assert.Nil(t, event.LoanID, "pairing window had elapsed")
}

func TestHandleTap_ResourceExitReleasesLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dispatcher.HandleTap(ctx, personUID)
	require.NoError(t, err)
	_, err = f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)

	f.clock.advance(2 * time.Hour)
	event, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)
	assert.Equal(t, storage.ActionExit, event.Action)
	require.NotNil(t, event.LoanID)

	status, err := f.provider.ResourceStatus(ctx, storage.KindBook, f.bookID)
	require.NoError(t, err)
	assert.Equal(t, storage.ResourceFree, status)
}

func TestHandleTap_ExitWithoutLoanStillAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Presence-only entry, then exit: no loan ever existed.
	_, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)

	event, err := f.dispatcher.HandleTap(ctx, bookUID)
	require.NoError(t, err)
	assert.Equal(t, storage.ActionExit, event.Action)
	assert.Nil(t, event.LoanID)
}

func TestHandleTap_UnavailableResourceRejectsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.provider.SetResourceStatus(ctx, storage.KindBook, f.bookID, storage.ResourceMaintenance))

	_, err := f.dispatcher.HandleTap(ctx, personUID)
	require.NoError(t, err)

	_, err = f.dispatcher.HandleTap(ctx, bookUID)
	assert.ErrorIs(t, err, storage.ErrResourceUnavailable)

	// The rejected tap must not have reached the ledger.
	last, err := f.provider.LastAction(ctx, storage.KindBook, f.bookID)
	require.NoError(t, err)
	assert.Equal(t, storage.ActionNone, last)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*storage.AccessEvent
}

func (n *recordingNotifier) Publish(event *storage.AccessEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func TestHandleTap_PublishesEveryAppendedEvent(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, WithNotifier(notifier))
	ctx := context.Background()

	_, err := f.dispatcher.HandleTap(ctx, personUID)
	require.NoError(t, err)
	_, err = f.dispatcher.HandleTap(ctx, "CAFEF00D")
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.events, 2)
	assert.Equal(t, storage.ActionEntry, notifier.events[0].Action)
	assert.Equal(t, storage.ActionUnrecognized, notifier.events[1].Action)
}

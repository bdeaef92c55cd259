// Package appointments advances scheduled facility reservations through
// their state machine: scheduled → checked_in → completed, or scheduled →
// missed once the day has passed. Transitions are driven by a periodic
// sweep and by observed person entry taps.
package appointments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"facility-access-control/internal/storage"
)

// DayFormat is the wire format of an appointment day.
const DayFormat = "2006-01-02"

// checkInMax is how long a checked-in appointment stays open before the
// sweep completes it.
const checkInMax = 2 * time.Hour

type SweepStats struct {
	Completed int64
	Missed    int64
}

type Lifecycle struct {
	storage storage.Provider
	logger  *slog.Logger

	stop chan struct{}
}

func New(provider storage.Provider) *Lifecycle {
	return &Lifecycle{
		storage: provider,
		logger:  slog.With("component", "appointments"),
		stop:    make(chan struct{}),
	}
}

// Sweep advances every appointment that is due a time-driven transition.
// The whole sweep is evaluated against the single now snapshot passed in,
// so an appointment cannot flap across a boundary mid-sweep. Running the
// sweep twice in a row is a no-op the second time.
func (l *Lifecycle) Sweep(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats

	cutoff := now.Add(-checkInMax)
	expired, err := l.storage.CompleteExpiredCheckIns(ctx, cutoff)
	if err != nil {
		return stats, err
	}
	stats.Completed += expired

	today := now.Format(DayFormat)

	missed, err := l.storage.MissPastScheduled(ctx, today)
	if err != nil {
		return stats, err
	}
	stats.Missed = missed

	pastCheckedIn, err := l.storage.CompletePastCheckedIn(ctx, today)
	if err != nil {
		return stats, err
	}
	stats.Completed += pastCheckedIn

	if stats.Completed > 0 || stats.Missed > 0 {
		l.logger.Info("Appointment sweep", "completed", stats.Completed, "missed", stats.Missed)
	}
	return stats, nil
}

// PersonEntered transitions the person's scheduled appointment for today
// to checked-in, if one exists. Implements the tap dispatcher's hook; a
// failure here never affects the tap itself.
func (l *Lifecycle) PersonEntered(ctx context.Context, personID int64, now time.Time) {
	appointment, err := l.storage.ScheduledAppointment(ctx, personID, now.Format(DayFormat))
	if errors.Is(err, storage.ErrNotFound) {
		return
	} else if err != nil {
		l.logger.Warn("Appointment lookup failed on entry tap", "person_id", personID, "error", err)
		return
	}

	transitioned, err := l.storage.CheckInAppointment(ctx, appointment.ID, now)
	if err != nil {
		l.logger.Warn("Appointment check-in failed", "appointment_id", appointment.ID, "error", err)
		return
	}
	if transitioned {
		l.logger.Info("Appointment checked in", "appointment_id", appointment.ID, "person_id", personID)
	}
}

// RunSweeper runs Sweep on the given interval until Close is called.
func (l *Lifecycle) RunSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := l.Sweep(context.Background(), time.Now().UTC()); err != nil {
				l.logger.Error("Appointment sweep failed", "error", err)
			}
		case <-l.stop:
			return
		}
	}
}

func (l *Lifecycle) Close() {
	close(l.stop)
}

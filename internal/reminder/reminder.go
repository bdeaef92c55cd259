// Package reminder emails borrowers whose loans are close to due. Each
// (loan, days-left threshold) pair is reminded at most once, tracked in
// loan_notifications.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"facility-access-control/internal/email"
	"facility-access-control/internal/storage"
)

// Reminders go out when this many days remain on a loan.
var thresholds = []int{3, 1}

type Job struct {
	storage storage.Provider
	sender  email.Sender
	logger  *slog.Logger

	stop chan struct{}
}

func NewJob(provider storage.Provider, sender email.Sender) *Job {
	return &Job{
		storage: provider,
		sender:  sender,
		logger:  slog.With("component", "reminder"),
		stop:    make(chan struct{}),
	}
}

// Run checks all active loans once and sends any due reminders.
func (j *Job) Run(ctx context.Context, now time.Time) error {
	details, err := j.storage.ListActiveLoans(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list active loans: %w", err)
	}

	for _, loan := range details {
		j.remind(ctx, loan, now)
	}
	return nil
}

func (j *Job) remind(ctx context.Context, loan storage.LoanDetail, now time.Time) {
	for _, threshold := range thresholds {
		if loan.DaysRemaining != threshold {
			continue
		}

		sent, err := j.storage.ReminderSent(ctx, loan.ID, threshold)
		if err != nil {
			j.logger.Error("Failed to check reminder state", "loan_id", loan.ID, "error", err)
			return
		}
		if sent {
			return
		}

		if loan.BorrowerEmail == "" {
			j.logger.Warn("Borrower has no email, skipping reminder", "loan_id", loan.ID)
			return
		}

		msg := &email.Message{
			To:      []string{loan.BorrowerEmail},
			Subject: fmt.Sprintf("Return reminder: %q", loan.ResourceName),
			HTML:    reminderBody(loan),
		}
		if err := j.sender.Send(ctx, msg); err != nil {
			// Not marked as sent, so the next run retries.
			j.logger.Error("Failed to send reminder", "loan_id", loan.ID, "error", err)
			return
		}

		if err := j.storage.MarkReminderSent(ctx, loan.ID, threshold, now); err != nil {
			j.logger.Error("Failed to record reminder", "loan_id", loan.ID, "error", err)
			return
		}

		j.logger.Info("Reminder sent", "loan_id", loan.ID, "days_left", threshold, "to", loan.BorrowerEmail)
		return
	}
}

func reminderBody(loan storage.LoanDetail) string {
	plural := "s"
	if loan.DaysRemaining == 1 {
		plural = ""
	}
	return fmt.Sprintf(
		`<p>Hello %s,</p>
<p>%q is due back in %d day%s. Please return it on time.</p>
<p>Facility desk</p>`,
		loan.BorrowerName, loan.ResourceName, loan.DaysRemaining, plural)
}

// RunPeriodic runs the job on the given interval until Close is called.
func (j *Job) RunPeriodic(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := j.Run(context.Background(), time.Now().UTC()); err != nil {
				j.logger.Error("Reminder run failed", "error", err)
			}
		case <-j.stop:
			return
		}
	}
}

func (j *Job) Close() {
	close(j.stop)
}

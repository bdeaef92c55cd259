package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (p *SQLProvider) CreateAppointment(ctx context.Context, appointment *Appointment) error {
	if appointment.Status == "" {
		appointment.Status = AppointmentScheduled
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO appointments (person_id, day, start_time, area, status)
		VALUES (?, ?, ?, ?, ?)`,
		appointment.PersonID, appointment.Day, appointment.StartTime, appointment.Area, appointment.Status)
	if err != nil {
		return err
	}
	appointment.ID, err = res.LastInsertId()
	return err
}

func (p *SQLProvider) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var appointments []Appointment
	err := p.db.SelectContext(ctx, &appointments, `
		SELECT id, person_id, day, start_time, area, status, checked_in_at
		FROM appointments ORDER BY day DESC, start_time DESC`)
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (p *SQLProvider) AppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	var appointment Appointment
	err := p.db.GetContext(ctx, &appointment, `
		SELECT id, person_id, day, start_time, area, status, checked_in_at
		FROM appointments WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// ScheduledAppointment finds the person's scheduled appointment for the day.
func (p *SQLProvider) ScheduledAppointment(ctx context.Context, personID int64, day string) (*Appointment, error) {
	var appointment Appointment
	err := p.db.GetContext(ctx, &appointment, `
		SELECT id, person_id, day, start_time, area, status, checked_in_at
		FROM appointments
		WHERE person_id = ? AND day = ? AND status = ?
		ORDER BY start_time ASC LIMIT 1`,
		personID, day, AppointmentScheduled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// CheckInAppointment moves a scheduled appointment to checked_in. The
// status guard in the WHERE clause makes the transition idempotent under
// concurrent sweep and tap handling.
func (p *SQLProvider) CheckInAppointment(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, checked_in_at = ?
		WHERE id = ? AND status = ?`,
		AppointmentCheckedIn, now, id, AppointmentScheduled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteExpiredCheckIns completes appointments whose check-in happened
// at or before the cutoff.
func (p *SQLProvider) CompleteExpiredCheckIns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?
		WHERE status = ? AND checked_in_at IS NOT NULL AND checked_in_at <= ?`,
		AppointmentCompleted, AppointmentCheckedIn, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MissPastScheduled marks scheduled appointments from past days as missed.
func (p *SQLProvider) MissPastScheduled(ctx context.Context, today string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?
		WHERE status = ? AND day < ?`,
		AppointmentMissed, AppointmentScheduled, today)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CompletePastCheckedIn completes checked-in appointments from past days.
func (p *SQLProvider) CompletePastCheckedIn(ctx context.Context, today string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE appointments SET status = ?
		WHERE status = ? AND day < ?`,
		AppointmentCompleted, AppointmentCheckedIn, today)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

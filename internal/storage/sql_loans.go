package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReserveResource atomically creates an active loan and marks the resource
// loaned. The status check and the writes run inside one transaction; a
// resource that is already loaned or under maintenance fails with
// ErrResourceUnavailable and nothing is written.
func (p *SQLProvider) ReserveResource(ctx context.Context, kind EntityKind, resourceID, personID int64, now, dueAt time.Time) (*Loan, error) {
	table, err := resourceTable(kind)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status ResourceStatus
	err = tx.GetContext(ctx, &status, fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, table), resourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if status != ResourceFree {
		return nil, fmt.Errorf("%w: %s %d is %s", ErrResourceUnavailable, kind, resourceID, status)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO loans (resource_kind, resource_id, person_id, started_at, due_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		kind, resourceID, personID, now, dueAt, LoanActive)
	if err != nil {
		return nil, err
	}
	loanID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, table), ResourceLoaned, resourceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Loan{
		ID:           loanID,
		ResourceKind: kind,
		ResourceID:   resourceID,
		PersonID:     personID,
		StartedAt:    now,
		DueAt:        dueAt,
		Status:       LoanActive,
	}, nil
}

// ReleaseResource closes the active loan for the resource and frees it.
// Fails with ErrNoActiveLoan when no active loan exists; the resource
// status is left untouched in that case.
func (p *SQLProvider) ReleaseResource(ctx context.Context, kind EntityKind, resourceID int64, now time.Time) (*Loan, error) {
	table, err := resourceTable(kind)
	if err != nil {
		return nil, err
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan Loan
	err = tx.GetContext(ctx, &loan, `
		SELECT id, resource_kind, resource_id, person_id, started_at, due_at, ended_at, status
		FROM loans WHERE resource_kind = ? AND resource_id = ? AND status = ?`,
		kind, resourceID, LoanActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %d", ErrNoActiveLoan, kind, resourceID)
	} else if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = ?, ended_at = ? WHERE id = ?`, LoanClosed, now, loan.ID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, table), ResourceFree, resourceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.Status = LoanClosed
	loan.EndedAt = &now
	return &loan, nil
}

func (p *SQLProvider) ActiveLoan(ctx context.Context, kind EntityKind, resourceID int64) (*Loan, error) {
	var loan Loan
	err := p.db.GetContext(ctx, &loan, `
		SELECT id, resource_kind, resource_id, person_id, started_at, due_at, ended_at, status
		FROM loans WHERE resource_kind = ? AND resource_id = ? AND status = ?`,
		kind, resourceID, LoanActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListActiveLoans returns all active loans with borrower and resource
// display data, ordered by days remaining ascending.
func (p *SQLProvider) ListActiveLoans(ctx context.Context, now time.Time) ([]LoanDetail, error) {
	var details []LoanDetail
	err := p.db.SelectContext(ctx, &details, `
		SELECT l.id, l.resource_kind, l.resource_id, l.person_id, l.started_at, l.due_at, l.ended_at, l.status,
			u.full_name AS borrower_name,
			u.email AS borrower_email,
			CASE l.resource_kind
				WHEN 'book' THEN (SELECT b.title FROM books b WHERE b.id = l.resource_id)
				ELSE (SELECT c.brand || ' ' || c.model FROM computers c WHERE c.id = l.resource_id)
			END AS resource_name,
			CAST(ROUND(julianday(l.due_at) - julianday(?)) AS INTEGER) AS days_remaining
		FROM loans l
		JOIN persons u ON u.id = l.person_id
		WHERE l.status = ?
		ORDER BY days_remaining ASC`,
		now, LoanActive)
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (p *SQLProvider) ReminderSent(ctx context.Context, loanID int64, daysLeft int) (bool, error) {
	var n int
	err := p.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM loan_notifications WHERE loan_id = ? AND days_left = ?`, loanID, daysLeft)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *SQLProvider) MarkReminderSent(ctx context.Context, loanID int64, daysLeft int, now time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO loan_notifications (loan_id, days_left, sent_at) VALUES (?, ?, ?)`,
		loanID, daysLeft, now)
	return err
}

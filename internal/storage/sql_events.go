package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func eventColumn(kind EntityKind) (string, error) {
	switch kind {
	case KindPerson:
		return "person_id", nil
	case KindBook:
		return "book_id", nil
	case KindComputer:
		return "computer_id", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// LastAction returns the most recent ledger action for the given entity,
// ordered by sequence id. ActionNone means no prior event exists.
func (p *SQLProvider) LastAction(ctx context.Context, kind EntityKind, id int64) (AccessAction, error) {
	column, err := eventColumn(kind)
	if err != nil {
		return ActionNone, err
	}

	var action AccessAction
	err = p.db.GetContext(ctx, &action, fmt.Sprintf(
		`SELECT action FROM access_events WHERE %s = ? ORDER BY id DESC LIMIT 1`, column), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ActionNone, nil
	} else if err != nil {
		return ActionNone, err
	}
	return action, nil
}

// AppendAccessEvent inserts a new ledger row and returns its sequence id.
// This is the only write path into access_events.
func (p *SQLProvider) AppendAccessEvent(ctx context.Context, event *AccessEvent) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO access_events (person_id, book_id, computer_id, action, card_uid, loan_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.PersonID, event.BookID, event.ComputerID, event.Action, event.CardUID, event.LoanID, event.RecordedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	event.ID = id
	return id, nil
}

func (p *SQLProvider) LastAccessEvent(ctx context.Context) (*AccessEvent, error) {
	var event AccessEvent
	err := p.db.GetContext(ctx, &event, `
		SELECT id, person_id, book_id, computer_id, action, card_uid, loan_id, recorded_at
		FROM access_events ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &event, nil
}

func (p *SQLProvider) ListAccessEvents(ctx context.Context, limit int) ([]AccessEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []AccessEvent
	err := p.db.SelectContext(ctx, &events, `
		SELECT id, person_id, book_id, computer_id, action, card_uid, loan_id, recorded_at
		FROM access_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// PurgeAccessEvents clears the whole ledger. Administrative only; no
// correctness guarantees are maintained across a purge.
func (p *SQLProvider) PurgeAccessEvents(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM access_events`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

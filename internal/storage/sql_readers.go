package storage

import (
	"context"
	"database/sql"
	"errors"
)

func (p *SQLProvider) CreateReaderDevice(ctx context.Context, device ReaderDevice) error {
	if device.Status == "" {
		device.Status = ReaderPending
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO reader_devices (id, name, status) VALUES (?, ?, ?)`,
		device.ID, device.Name, device.Status)
	return err
}

func (p *SQLProvider) GetReaderDevice(ctx context.Context, deviceID string) (*ReaderDevice, error) {
	var device ReaderDevice
	err := p.db.GetContext(ctx, &device,
		`SELECT id, name, status, created_at FROM reader_devices WHERE id = ?`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &device, nil
}

func (p *SQLProvider) UpdateReaderStatus(ctx context.Context, deviceID string, status ReaderStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE reader_devices SET status = ? WHERE id = ?`, status, deviceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

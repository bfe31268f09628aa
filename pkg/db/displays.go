package db

import (
	"context"
	"database/sql"
	"errors"
)

var ErrDisplayNotFound = errors.New("display config not found")

// Display describes the LED hardware a profile drives.
type Display struct {
	ProfileID  int64
	Type       string
	Pixels     int
	Brightness float64
	SPIPort    string
	SerialPort string
	BaudRate   int
}

// DisplayStore reads and writes display settings.
type DisplayStore interface {
	Get(ctx context.Context, profileID int64) (*Display, error)
	Update(ctx context.Context, d *Display) error
}

// Displays returns the display store.
func (db *DB) Displays() DisplayStore {
	return &displayStore{db: db}
}

type displayStore struct {
	db *DB
}

func (s *displayStore) Get(ctx context.Context, profileID int64) (*Display, error) {
	d := &Display{ProfileID: profileID}
	err := s.db.QueryRowContext(ctx, `
		SELECT type, pixels, brightness, spi_port, serial_port, baud_rate
		FROM displays WHERE profile_id = ?
	`, profileID).Scan(&d.Type, &d.Pixels, &d.Brightness, &d.SPIPort, &d.SerialPort, &d.BaudRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisplayNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *displayStore) Update(ctx context.Context, d *Display) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE displays
		SET type = ?, pixels = ?, brightness = ?, spi_port = ?, serial_port = ?, baud_rate = ?
		WHERE profile_id = ?
	`, d.Type, d.Pixels, d.Brightness, d.SPIPort, d.SerialPort, d.BaudRate, d.ProfileID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrDisplayNotFound)
}

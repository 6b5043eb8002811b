package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const deviceColumns = `device_id, device_name, device_type, ip_address, paired, last_seen, created_at`

// UpsertDevice creates or overwrites a device record. Registration and
// discovery both land here; last_seen is refreshed on every call.
func (s *Store) UpsertDevice(ctx context.Context, d *Device) error {
	now := time.Now()
	if d.LastSeen.IsZero() {
		d.LastSeen = now
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, device_name, device_type, ip_address, paired, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			device_name = excluded.device_name,
			device_type = excluded.device_type,
			ip_address = excluded.ip_address,
			paired = devices.paired OR excluded.paired,
			last_seen = excluded.last_seen`,
		d.DeviceID,
		d.DeviceName,
		d.DeviceType,
		nullableString(d.IPAddress),
		boolToInt(d.Paired),
		formatTime(d.LastSeen),
		formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// UpdateDeviceLastSeen refreshes a device's liveness timestamp.
// Returns ErrDeviceNotFound for unknown devices.
func (s *Store) UpdateDeviceLastSeen(ctx context.Context, deviceID string, seenAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE device_id = ?",
		formatTime(seenAt),
		deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating device last_seen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// GetDevice returns a device record, or ErrDeviceNotFound.
func (s *Store) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE device_id = ?", deviceID,
	)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// ListDevices returns all registered devices ordered by name. Rows are never
// deleted; callers derive offline status from last_seen.
func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+deviceColumns+" FROM devices ORDER BY device_name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// scanDevice scans one devices row.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var ipAddress sql.NullString
	var paired int
	var lastSeen, createdAt string

	err := scanner.Scan(
		&d.DeviceID,
		&d.DeviceName,
		&d.DeviceType,
		&ipAddress,
		&paired,
		&lastSeen,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	d.IPAddress = stringPtr(ipAddress)
	d.Paired = paired != 0

	d.LastSeen, err = parseTime(lastSeen)
	if err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &d, nil
}

// boolToInt converts a boolean for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

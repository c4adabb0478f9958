package transport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// deviceDirectory maps session ids to the WhatsApp device JID they paired
// with, so a restarted or re-created session reconnects with its stored
// credentials instead of forcing a new QR scan.
type deviceDirectory struct {
	db *sql.DB
}

func (d *deviceDirectory) get(ctx context.Context, sessionID string) (string, error) {
	var jid string
	err := d.db.QueryRowContext(ctx,
		`SELECT device_jid FROM transport_devices WHERE session_id = $1`, sessionID).Scan(&jid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("transport: lookup device for %s: %w", sessionID, err)
	}
	return jid, nil
}

func (d *deviceDirectory) put(ctx context.Context, sessionID, jid string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO transport_devices (session_id, device_jid, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET device_jid = $2, updated_at = NOW()`,
		sessionID, jid)
	if err != nil {
		return fmt.Errorf("transport: save device for %s: %w", sessionID, err)
	}
	return nil
}

func (d *deviceDirectory) delete(ctx context.Context, sessionID string) error {
	_, err := d.db.ExecContext(ctx,
		`DELETE FROM transport_devices WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("transport: delete device for %s: %w", sessionID, err)
	}
	return nil
}

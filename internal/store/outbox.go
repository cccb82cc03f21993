package store

import "time"

// EnqueueOutbox adds a message to the send queue.
func (db *DB) EnqueueOutbox(e *OutboxEntry) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, channel_id, sender, kind, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'queued', ?, ?)`,
		e.ClientMsgID, e.ChannelID, e.Sender, e.Kind, e.Payload, now, now)
	return err
}

// MarkOutboxSending updates an outbox entry to 'sending' status and bumps
// its attempt count.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'sending', attempts = attempts + 1, updated_at = ?
		WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkOutboxSent updates an outbox entry to 'sent'.
func (db *DB) MarkOutboxSent(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkOutboxQueued returns a failed attempt to 'queued' so a later drain can
// retry it, recording the error for diagnostics.
func (db *DB) MarkOutboxQueued(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'queued', error_message = ?, updated_at = ?
		WHERE client_msg_id = ?`, errMsg, now, clientMsgID)
	return err
}

// MarkOutboxDead updates an outbox entry to 'dead' after its retry budget is
// exhausted.
func (db *DB) MarkOutboxDead(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'dead', error_message = ?, updated_at = ?
		WHERE client_msg_id = ?`, errMsg, now, clientMsgID)
	return err
}

// RequeueInFlightOutbox returns entries stuck in 'sending' to 'queued'.
// A crash between marking an entry sending and recording the outcome would
// otherwise strand it invisible to every future drain; the scheduler runs
// this once at startup so such entries re-enter the FIFO where they were.
func (db *DB) RequeueInFlightOutbox() (int, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`UPDATE outbox SET status = 'queued', updated_at = ? WHERE status = 'sending'`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PendingOutbox returns queued entries in FIFO order.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, channel_id, sender, kind, payload, status, attempts, error_message, created_at
		FROM outbox WHERE status = 'queued' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ChannelID, &e.Sender, &e.Kind, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountPendingOutbox returns the number of queued entries.
func (db *DB) CountPendingOutbox() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM outbox WHERE status = 'queued'`).Scan(&n)
	return n, err
}

// DeadOutbox returns entries that exhausted their retry budget.
func (db *DB) DeadOutbox() ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, channel_id, sender, kind, payload, status, attempts, error_message, created_at
		FROM outbox WHERE status = 'dead' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.ChannelID, &e.Sender, &e.Kind, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

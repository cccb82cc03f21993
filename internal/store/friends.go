package store

import (
	"time"

	"github.com/gsole-chat/gsole/internal/chat"
)

// AddFriend inserts a friend. Re-adding an existing friend refreshes the
// channel id (a no-op in practice, since the id is deterministic).
func (db *DB) AddFriend(f *chat.Friend) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO friends (identity, channel_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			channel_id = excluded.channel_id`,
		f.Identity, f.ChannelID, now)
	return err
}

// RemoveFriend deletes a friend from the local contact list.
func (db *DB) RemoveFriend(identity string) error {
	_, err := db.Exec(`DELETE FROM friends WHERE identity = ?`, identity)
	return err
}

// ListFriends returns the contact list in insertion order.
func (db *DB) ListFriends() ([]chat.Friend, error) {
	rows, err := db.Query(`SELECT identity, channel_id FROM friends ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var friends []chat.Friend
	for rows.Next() {
		var f chat.Friend
		if err := rows.Scan(&f.Identity, &f.ChannelID); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

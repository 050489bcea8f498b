package envelopes

import "github.com/dmitrijs2005/gophmsg/internal/dbx"

var sqliteQueries = queries{
	create: `INSERT INTO envelopes (schema_version, sender_id, recipient_id, wrapped_key, nonce, ciphertext, created_at, delivered, seen_notified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
	getByID: `SELECT ` + envelopeColumns + ` FROM envelopes
		 WHERE id = ?`,
	markDelivered: `UPDATE envelopes SET delivered = 1
		 WHERE recipient_id = ? AND delivered = 0
		 RETURNING id`,
	listByRecipient: `SELECT ` + envelopeColumns + ` FROM envelopes
		 WHERE recipient_id = ?
		 ORDER BY id`,
	drainNotifications: `UPDATE envelopes SET seen_notified = 1
		 WHERE sender_id = ? AND delivered = 1 AND seen_notified = 0
		 RETURNING id, recipient_id`,
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}

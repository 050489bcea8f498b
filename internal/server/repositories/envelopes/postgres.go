package envelopes

import "github.com/dmitrijs2005/gophmsg/internal/dbx"

var postgresQueries = queries{
	create: `INSERT INTO envelopes (schema_version, sender_id, recipient_id, wrapped_key, nonce, ciphertext, created_at, delivered, seen_notified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
	getByID: `SELECT ` + envelopeColumns + ` FROM envelopes
		 WHERE id = $1`,
	markDelivered: `UPDATE envelopes SET delivered = TRUE
		 WHERE recipient_id = $1 AND NOT delivered
		 RETURNING id`,
	listByRecipient: `SELECT ` + envelopeColumns + ` FROM envelopes
		 WHERE recipient_id = $1
		 ORDER BY id`,
	drainNotifications: `UPDATE envelopes SET seen_notified = TRUE
		 WHERE sender_id = $1 AND delivered AND NOT seen_notified
		 RETURNING id, recipient_id`,
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}

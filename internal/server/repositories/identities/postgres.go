package identities

import "github.com/dmitrijs2005/gophmsg/internal/dbx"

var postgresQueries = queries{
	create: `INSERT INTO identities (id, public_key, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
	getByID: `SELECT id, public_key, password_hash, created_at FROM identities
		 WHERE id = $1`,
	exists:       `SELECT EXISTS (SELECT 1 FROM identities WHERE id = $1)`,
	getPublicKey: `SELECT public_key FROM identities WHERE id = $1`,
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}

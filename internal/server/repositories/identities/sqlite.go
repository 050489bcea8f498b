package identities

import "github.com/dmitrijs2005/gophmsg/internal/dbx"

var sqliteQueries = queries{
	create: `INSERT INTO identities (id, public_key, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
	getByID: `SELECT id, public_key, password_hash, created_at FROM identities
		 WHERE id = ?`,
	exists:       `SELECT EXISTS (SELECT 1 FROM identities WHERE id = ?)`,
	getPublicKey: `SELECT public_key FROM identities WHERE id = ?`,
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}

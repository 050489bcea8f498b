// Package identities stores registered identities and their public keys.
package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type Repository interface {
	// Create inserts identity. An existing ID yields common.ErrorAlreadyExists.
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id int64) (*models.Identity, error)
	Exists(ctx context.Context, id int64) (bool, error)
	GetPublicKey(ctx context.Context, id int64) ([]byte, error)
}

type queries struct {
	create       string
	getByID      string
	exists       string
	getPublicKey string
}

// SQLRepository implements Repository over database/sql; the dialect only
// changes the statement text.
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) Create(ctx context.Context, identity *models.Identity) error {
	res, err := r.db.ExecContext(ctx, r.q.create,
		identity.ID, identity.PublicKey, identity.PasswordHash, models.FormatTimestamp(identity.CreatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if n == 0 {
		return common.ErrorAlreadyExists
	}

	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	var (
		identity  models.Identity
		createdAt string
	)

	err := r.db.QueryRowContext(ctx, r.q.getByID, id).
		Scan(&identity.ID, &identity.PublicKey, &identity.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	identity.CreatedAt, err = models.ParseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &identity, nil
}

func (r *SQLRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, r.q.exists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *SQLRepository) GetPublicKey(ctx context.Context, id int64) ([]byte, error) {
	var key []byte
	if err := r.db.QueryRowContext(ctx, r.q.getPublicKey, id).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

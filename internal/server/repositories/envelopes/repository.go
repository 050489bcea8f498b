// Package envelopes stores encrypted envelopes and performs the delivery
// state transitions on them. Each transition is a single conditional UPDATE,
// so concurrent callers cannot both observe the same transition.
package envelopes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type Repository interface {
	// Create persists env and sets env.ID.
	Create(ctx context.Context, env *models.Envelope) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Envelope, error)
	// MarkDelivered flips every undelivered envelope addressed to
	// recipientID and returns the IDs that changed.
	MarkDelivered(ctx context.Context, recipientID int64) ([]int64, error)
	// ListByRecipient returns all envelopes for recipientID, oldest first.
	ListByRecipient(ctx context.Context, recipientID int64) ([]*models.Envelope, error)
	// DrainNotifications latches seen_notified on every delivered envelope
	// sent by senderID that was not yet reported and returns them.
	DrainNotifications(ctx context.Context, senderID int64) ([]models.Notification, error)
}

type queries struct {
	create             string
	getByID            string
	markDelivered      string
	listByRecipient    string
	drainNotifications string
}

const envelopeColumns = `id, schema_version, sender_id, recipient_id, wrapped_key, nonce, ciphertext, created_at, delivered, seen_notified`

// SQLRepository implements Repository over database/sql; the dialect only
// changes the statement text.
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) Create(ctx context.Context, env *models.Envelope) (int64, error) {
	err := r.db.QueryRowContext(ctx, r.q.create,
		env.Version,
		env.SenderID,
		env.RecipientID,
		env.WrappedKey,
		env.Nonce,
		env.Ciphertext,
		models.FormatTimestamp(env.CreatedAt),
		env.Delivered,
		env.SeenNotified,
	).Scan(&env.ID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return env.ID, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Envelope, error) {
	env, err := scanEnvelope(r.db.QueryRowContext(ctx, r.q.getByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return env, nil
}

func (r *SQLRepository) MarkDelivered(ctx context.Context, recipientID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.q.markDelivered, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *SQLRepository) ListByRecipient(ctx context.Context, recipientID int64) ([]*models.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listByRecipient, recipientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Envelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) DrainNotifications(ctx context.Context, senderID int64) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, r.q.drainNotifications, senderID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.EnvelopeID, &n.RecipientID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].EnvelopeID < result[j].EnvelopeID })
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(s scanner) (*models.Envelope, error) {
	var (
		env       models.Envelope
		createdAt string
	)

	err := s.Scan(
		&env.ID,
		&env.Version,
		&env.SenderID,
		&env.RecipientID,
		&env.WrappedKey,
		&env.Nonce,
		&env.Ciphertext,
		&createdAt,
		&env.Delivered,
		&env.SeenNotified,
	)
	if err != nil {
		return nil, err
	}

	env.CreatedAt, err = models.ParseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}

	return &env, nil
}

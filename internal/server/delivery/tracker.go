// Package delivery drives the envelope lifecycle: Sent, then Delivered when
// the recipient reads their inbox, then SeenNotified when the sender drains
// the receipt. Transitions only move forward.
package delivery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
)

type Tracker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTracker(db *sql.DB, m repomanager.RepositoryManager) *Tracker {
	return &Tracker{db: db, repomanager: m}
}

// Inbox is what a recipient sees on one query.
type Inbox struct {
	Envelopes []*models.Envelope
	// NewlyDelivered holds the IDs that moved from Sent to Delivered on
	// this query.
	NewlyDelivered []int64
}

// FetchInbox marks the recipient's pending envelopes delivered and returns
// all of their envelopes, in one transaction.
func (t *Tracker) FetchInbox(ctx context.Context, recipientID int64) (*Inbox, error) {
	if err := models.ValidateIdentifier(recipientID); err != nil {
		return nil, err
	}

	inbox := &Inbox{}
	err := dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := t.repomanager.Envelopes(tx)

		ids, err := repo.MarkDelivered(ctx, recipientID)
		if err != nil {
			return fmt.Errorf("mark delivered: %w", err)
		}

		envs, err := repo.ListByRecipient(ctx, recipientID)
		if err != nil {
			return fmt.Errorf("list inbox: %w", err)
		}

		inbox.NewlyDelivered = ids
		inbox.Envelopes = envs
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inbox, nil
}

// DrainNotifications returns the sender's delivered envelopes that have not
// been reported yet and latches them SeenNotified. Each envelope is returned
// by exactly one call.
func (t *Tracker) DrainNotifications(ctx context.Context, senderID int64) ([]models.Notification, error) {
	if err := models.ValidateIdentifier(senderID); err != nil {
		return nil, err
	}

	var result []models.Notification
	err := dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := t.repomanager.Envelopes(tx).DrainNotifications(ctx, senderID)
		if err != nil {
			return fmt.Errorf("drain notifications: %w", err)
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

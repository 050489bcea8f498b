package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/server/delivery"
	"github.com/dmitrijs2005/gophmsg/internal/server/messaging"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
)

// Authenticator resolves a session token to an identifier.
type Authenticator interface {
	Authenticate(token string) (int64, error)
}

// InboxMessage is one opened envelope. Err is set, and Body nil, when the
// envelope could not be opened.
type InboxMessage struct {
	ID             int64
	From           int64
	SentAt         time.Time
	Body           []byte
	NewlyDelivered bool
	State          models.DeliveryState
	Err            error
}

// MessageService sends, reads and acknowledges messages on behalf of an
// authenticated session.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pipeline    *messaging.Pipeline
	tracker     *delivery.Tracker
	auth        Authenticator
	recorder    events.Recorder
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, p *messaging.Pipeline, t *delivery.Tracker,
	a Authenticator, rec events.Recorder) *MessageService {
	if rec == nil {
		rec = events.Nop{}
	}
	return &MessageService{db: db, repomanager: m, pipeline: p, tracker: t, auth: a, recorder: rec}
}

// Send encrypts plaintext for rawRecipient and stores the envelope.
func (s *MessageService) Send(ctx context.Context, token, rawRecipient string, plaintext []byte) (env *models.Envelope, err error) {
	ev := events.Start(events.OpSend, 0)
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	sender, err := s.auth.Authenticate(token)
	if err != nil {
		return nil, err
	}
	ev.Actor = sender

	recipient, err := models.ParseIdentifier(strings.TrimSpace(rawRecipient))
	if err != nil {
		return nil, err
	}
	ev.Peer = recipient

	env, err = s.pipeline.Send(ctx, sender, recipient, plaintext)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Envelopes(s.db).Create(ctx, env); err != nil {
		return nil, fmt.Errorf("error storing envelope: %w", err)
	}
	ev.Envelope = env.ID

	return env, nil
}

// Inbox returns every envelope addressed to the session's identity, opened
// with passphrase. Querying the inbox marks pending envelopes delivered.
func (s *MessageService) Inbox(ctx context.Context, token string, passphrase []byte) (msgs []InboxMessage, err error) {
	ev := events.Start(events.OpInbox, 0)
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	owner, err := s.auth.Authenticate(token)
	if err != nil {
		return nil, err
	}
	ev.Actor = owner

	inbox, err := s.tracker.FetchInbox(ctx, owner)
	if err != nil {
		return nil, err
	}
	ev.Count = len(inbox.NewlyDelivered)

	opened, err := s.pipeline.OpenBatch(ctx, inbox.Envelopes, owner, passphrase)
	if err != nil {
		return nil, err
	}

	fresh := make(map[int64]bool, len(inbox.NewlyDelivered))
	for _, id := range inbox.NewlyDelivered {
		fresh[id] = true
	}

	msgs = make([]InboxMessage, 0, len(opened))
	for _, o := range opened {
		msgs = append(msgs, InboxMessage{
			ID:             o.Envelope.ID,
			From:           o.Envelope.SenderID,
			SentAt:         o.Envelope.CreatedAt,
			Body:           o.Plaintext,
			NewlyDelivered: fresh[o.Envelope.ID],
			State:          o.Envelope.State(),
			Err:            o.Err,
		})
		if o.Err != nil {
			failed := events.Start(events.OpOpen, owner)
			failed.Peer = o.Envelope.SenderID
			failed.Envelope = o.Envelope.ID
			s.recorder.Record(ctx, failed.Finish(o.Err))
		}
	}

	return msgs, nil
}

// Notifications drains delivery receipts for envelopes the session's
// identity has sent. Each receipt is returned once.
func (s *MessageService) Notifications(ctx context.Context, token string) (n []models.Notification, err error) {
	ev := events.Start(events.OpNotifications, 0)
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	sender, err := s.auth.Authenticate(token)
	if err != nil {
		return nil, err
	}
	ev.Actor = sender

	n, err = s.tracker.DrainNotifications(ctx, sender)
	if err != nil {
		return nil, err
	}
	ev.Count = len(n)

	return n, nil
}

// Status reports how far envelopeID has progressed. Only its sender and
// recipient may ask; anyone else gets common.ErrorNotFound.
func (s *MessageService) Status(ctx context.Context, token string, envelopeID int64) (state models.DeliveryState, err error) {
	ev := events.Start(events.OpStatus, 0)
	ev.Envelope = envelopeID
	defer func() { s.recorder.Record(ctx, ev.Finish(err)) }()

	caller, err := s.auth.Authenticate(token)
	if err != nil {
		return 0, err
	}
	ev.Actor = caller

	env, err := s.repomanager.Envelopes(s.db).GetByID(ctx, envelopeID)
	if err != nil {
		return 0, err
	}
	if env.SenderID != caller && env.RecipientID != caller {
		return 0, common.ErrorNotFound
	}

	return env.State(), nil
}

const (
	subjectPrefix = "Subject:"
	contentPrefix = "Content:"
)

// Compose formats a message body as "Subject:<subject>\nContent:<content>".
func Compose(subject, content string) []byte {
	return []byte(subjectPrefix + subject + "\n" + contentPrefix + content)
}

// ParseBody splits a body produced by Compose. Bodies in any other shape
// are returned whole as content with ok false.
func ParseBody(body []byte) (subject, content string, ok bool) {
	s := string(body)
	head, rest, found := strings.Cut(s, "\n")
	if !found || !strings.HasPrefix(head, subjectPrefix) || !strings.HasPrefix(rest, contentPrefix) {
		return "", s, false
	}
	return strings.TrimPrefix(head, subjectPrefix), strings.TrimPrefix(rest, contentPrefix), true
}

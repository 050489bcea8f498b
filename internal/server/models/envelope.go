package models

import (
	"errors"
	"fmt"
	"time"
)

// EnvelopeSchemaVersion is written with every envelope and checked on open.
const EnvelopeSchemaVersion = 1

// TimestampLayout is how CreatedAt values are stored.
const TimestampLayout = time.RFC3339Nano

var (
	ErrInvalidTransition   = errors.New("invalid delivery state transition")
	ErrUnsupportedEnvelope = errors.New("unsupported envelope version")
)

// Envelope is one encrypted message as stored. Only the recipient's private
// key can recover the symmetric key in WrappedKey, and with it the plaintext.
type Envelope struct {
	ID           int64
	Version      int
	SenderID     int64
	RecipientID  int64
	WrappedKey   []byte
	Nonce        []byte
	Ciphertext   []byte
	CreatedAt    time.Time
	Delivered    bool
	SeenNotified bool
}

// Notification tells a sender that one of their envelopes reached its
// recipient.
type Notification struct {
	EnvelopeID  int64
	RecipientID int64
}

func (e *Envelope) CheckVersion() error {
	if e.Version != EnvelopeSchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedEnvelope, e.Version)
	}
	return nil
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

package models

// DeliveryState is derived from an envelope's flags. States only move
// forward: Sent, then Delivered, then SeenNotified.
type DeliveryState int

const (
	StateSent DeliveryState = iota
	StateDelivered
	StateSeenNotified
)

func (s DeliveryState) String() string {
	switch s {
	case StateSent:
		return "sent"
	case StateDelivered:
		return "delivered"
	case StateSeenNotified:
		return "seen_notified"
	default:
		return "unknown"
	}
}

func (e *Envelope) State() DeliveryState {
	switch {
	case e.SeenNotified:
		return StateSeenNotified
	case e.Delivered:
		return StateDelivered
	default:
		return StateSent
	}
}

// MarkDelivered moves Sent to Delivered and reports whether it changed
// anything. Calling it again is a no-op.
func (e *Envelope) MarkDelivered() bool {
	if e.Delivered {
		return false
	}
	e.Delivered = true
	return true
}

// MarkSeenNotified moves Delivered to SeenNotified and reports whether it
// changed anything. An envelope that was never delivered is rejected.
func (e *Envelope) MarkSeenNotified() (bool, error) {
	if !e.Delivered {
		return false, ErrInvalidTransition
	}
	if e.SeenNotified {
		return false, nil
	}
	e.SeenNotified = true
	return true, nil
}

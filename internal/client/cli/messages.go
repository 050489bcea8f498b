package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
	"github.com/fatih/color"
)

const timeLayout = "2006-01-02 15:04"

var errBadMessageNumber = errors.New("message number must be a positive integer")

// Send prompts for a recipient, subject and content and sends the message.
func (a *App) Send(ctx context.Context) error {
	recipient, err := getSimpleText(a.reader, "Recipient identifier", a.out)
	if err != nil {
		return err
	}

	subject, err := getSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}

	content, err := getMultiline(a.reader, "Content", a.out)
	if err != nil {
		return err
	}

	env, err := a.messages.Send(ctx, a.token, recipient, services.Compose(subject, content))
	if err != nil {
		return a.sessionError(err)
	}

	printSuccess(a.out, fmt.Sprintf("Message #%d sent to %d", env.ID, env.RecipientID))
	return nil
}

// Inbox prints every message addressed to the logged in identity. Reading
// the inbox is what marks messages delivered.
func (a *App) Inbox(ctx context.Context) error {
	msgs, err := a.messages.Inbox(ctx, a.token, a.password)
	if err != nil {
		return a.sessionError(err)
	}

	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "Inbox is empty")
		return nil
	}

	for _, m := range msgs {
		header := fmt.Sprintf("#%d from %d at %s", m.ID, m.From, m.SentAt.In(time.Local).Format(timeLayout))
		if m.NewlyDelivered {
			header += " " + color.GreenString("[new]")
		} else if m.State == models.StateSeenNotified {
			header += " " + color.HiBlackString("[receipt sent]")
		}
		fmt.Fprintln(a.out, color.CyanString("→")+" "+header)

		if m.Err != nil {
			printError(a.out, m.Err)
			continue
		}

		subject, content, ok := services.ParseBody(m.Body)
		if ok {
			fmt.Fprintf(a.out, "  Subject: %s\n", subject)
			fmt.Fprintf(a.out, "  Content: %s\n", content)
		} else {
			fmt.Fprintf(a.out, "  %s\n", content)
		}
	}

	return nil
}

// Notifications prints receipts for sent messages that have been read since
// the last call.
func (a *App) Notifications(ctx context.Context) error {
	n, err := a.messages.Notifications(ctx, a.token)
	if err != nil {
		return a.sessionError(err)
	}

	if len(n) == 0 {
		fmt.Fprintln(a.out, "No new notifications")
		return nil
	}

	for _, item := range n {
		printSuccess(a.out, fmt.Sprintf("Message #%d was read by %d", item.EnvelopeID, item.RecipientID))
	}
	return nil
}

// Status asks for a message number and prints how far it has progressed.
func (a *App) Status(ctx context.Context) error {
	raw, err := getSimpleText(a.reader, "Message number", a.out)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return errBadMessageNumber
	}

	state, err := a.messages.Status(ctx, a.token, id)
	if err != nil {
		return a.sessionError(err)
	}

	fmt.Fprintf(a.out, "Message #%d: %s\n", id, stateLabel(state))
	return nil
}

func stateLabel(s models.DeliveryState) string {
	switch s {
	case models.StateSent:
		return color.YellowString("sent, not read yet")
	case models.StateDelivered:
		return color.GreenString("read")
	case models.StateSeenNotified:
		return color.GreenString("read, receipt collected")
	default:
		return s.String()
	}
}

package cli

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/fatih/color"
)

var errPasswordMismatch = errors.New("passwords do not match")

// Register prompts for an identifier and a password (twice) and creates the
// identity. Key generation can take a moment, so a spinner is shown.
func (a *App) Register(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter identifier (10 digits, starting with 5)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if subtle.ConstantTimeCompare(password, confirm) != 1 {
		return errPasswordMismatch
	}

	stop := startSpinner(a.out, "Generating key pair...")
	identity, err := a.identity.Register(ctx, id, password)
	stop()
	if err != nil {
		return err
	}

	printSuccess(a.out, fmt.Sprintf("Registered %s", color.YellowString("%d", identity.ID)))
	return nil
}

// Login authenticates and starts a session. The password is kept to unlock
// the private key when the inbox is read.
func (a *App) Login(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter identifier", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, err := a.identity.Login(ctx, id, password)
	if err != nil {
		return err
	}

	a.startSession(session, password)
	printSuccess(a.out, fmt.Sprintf("Logged in as %s", color.YellowString("%d", session.Identifier)))
	return nil
}

func (a *App) Whoami(_ context.Context) error {
	fmt.Fprintf(a.out, "Logged in as %d\n", a.identifier)
	return nil
}

// Logout wipes the in-memory password and drops the session token.
func (a *App) Logout(_ context.Context) error {
	a.clearSession()
	printSuccess(a.out, "Logged out")
	return nil
}

const historyLimit = 20

// History prints the latest audited operations of the logged in identity.
func (a *App) History(ctx context.Context) error {
	evs, err := a.identity.History(ctx, a.token, historyLimit)
	if err != nil {
		return a.sessionError(err)
	}

	if len(evs) == 0 {
		fmt.Fprintln(a.out, "No recorded activity")
		return nil
	}

	for _, e := range evs {
		line := fmt.Sprintf("%s  %-13s ", e.Time.In(time.Local).Format(timeLayout), e.Operation)
		if e.Outcome == events.OutcomeOK {
			line += color.GreenString("ok")
		} else {
			line += color.RedString("failed: %s", e.Error)
		}
		if e.Envelope != 0 {
			line += fmt.Sprintf("  #%d", e.Envelope)
		}
		if e.Peer != 0 {
			line += fmt.Sprintf("  peer %d", e.Peer)
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

// sessionError ends the session when the token is no longer accepted.
func (a *App) sessionError(err error) error {
	if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
		a.clearSession()
	}
	return err
}

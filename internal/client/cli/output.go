package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/cryptox"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
	"github.com/fatih/color"
)

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, color.GreenString("✓")+" "+msg)
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, color.YellowString("!")+" "+msg)
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, color.RedString("✗")+" "+userMessage(err))
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(w, color.CyanString("→")+" "+hint)
	}
}

// userMessage maps known errors to short explanations. Anything else is
// shown as is.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrMalformedIdentifier):
		return "Malformed identifier"
	case errors.Is(err, common.ErrorAlreadyExists):
		return "This identifier is already registered"
	case errors.Is(err, common.ErrorUnauthorized):
		return "Wrong identifier or password"
	case errors.Is(err, common.ErrTooManyAttempts):
		return "Too many login attempts"
	case errors.Is(err, common.ErrRecipientUnknown):
		return "Recipient is not registered"
	case errors.Is(err, common.ErrTokenExpired):
		return "Session expired"
	case errors.Is(err, common.ErrInvalidToken):
		return "Session is not valid"
	case errors.Is(err, common.ErrorNotFound):
		return "No such message"
	case errors.Is(err, services.ErrAuditDisabled):
		return "Activity history is not enabled"
	case errors.Is(err, cryptox.ErrKeyNotFound):
		return "Private key file not found"
	case errors.Is(err, cryptox.ErrKeyCorrupt):
		return "Private key could not be unlocked"
	case errors.Is(err, cryptox.ErrEmptyPassphrase):
		return "Password must not be empty"
	case errors.Is(err, cryptox.ErrUnwrapFailed), errors.Is(err, cryptox.ErrAuthenticationFailed):
		return "Message could not be decrypted: " + err.Error()
	default:
		return err.Error()
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, common.ErrMalformedIdentifier):
		return "Identifiers are 10 digits starting with 5, e.g. " + color.YellowString("5551234567")
	case errors.Is(err, common.ErrTooManyAttempts):
		return "Wait a little and try again"
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken):
		return "Run " + color.YellowString("login") + " again"
	case errors.Is(err, common.ErrRecipientUnknown):
		return "Ask them to " + color.YellowString("register") + " first"
	default:
		return ""
	}
}

// startSpinner shows progress for slow steps such as key generation. The
// spinner stays silent when w is not a terminal.
func startSpinner(w io.Writer, message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

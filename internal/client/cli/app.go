package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/events"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
)

// IdentityAPI is the part of services.IdentityService the CLI uses.
type IdentityAPI interface {
	Register(ctx context.Context, rawID string, password []byte) (*models.Identity, error)
	Login(ctx context.Context, rawID string, password []byte) (*services.Session, error)
	History(ctx context.Context, token string, limit int) ([]events.Event, error)
}

// MessageAPI is the part of services.MessageService the CLI uses.
type MessageAPI interface {
	Send(ctx context.Context, token, rawRecipient string, plaintext []byte) (*models.Envelope, error)
	Inbox(ctx context.Context, token string, passphrase []byte) ([]services.InboxMessage, error)
	Notifications(ctx context.Context, token string) ([]models.Notification, error)
	Status(ctx context.Context, token string, envelopeID int64) (models.DeliveryState, error)
}

type App struct {
	identity IdentityAPI
	messages MessageAPI
	reader   *bufio.Reader
	out      io.Writer

	identifier int64
	token      string
	password   []byte
}

func NewApp(identity IdentityAPI, messages MessageAPI, in io.Reader, out io.Writer) *App {
	return &App{
		identity: identity,
		messages: messages,
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

// Run starts the REPL and blocks until the user leaves or ctx is done. The
// session, including the cached password, is wiped before it returns.
func (a *App) Run(ctx context.Context) {
	defer a.clearSession()

	fmt.Fprintln(a.out, "Welcome to gophmsg (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%d) ", a.identifier)
}

func (a *App) startSession(s *services.Session, password []byte) {
	a.clearSession()
	a.identifier = s.Identifier
	a.token = s.Token
	a.password = append([]byte(nil), password...)
}

func (a *App) clearSession() {
	common.WipeByteArray(a.password)
	a.password = nil
	a.token = ""
	a.identifier = 0
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Send(ctx context.Context) error
	Inbox(ctx context.Context) error
	Notifications(ctx context.Context) error
	Status(ctx context.Context) error
	History(ctx context.Context) error
	Whoami(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// Handler errors are printed and the loop continues. It returns on EOF, on
// "exit"/"quit", or once ctx is done, even while waiting for a command.
//
//	Not logged in: help, register, login, exit | quit
//	Logged in:     help, send, inbox, notifications, status, history, whoami, logout, exit | quit
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "gophmsg %s> ", statusFn())
		line, err := readLine(ctx, reader)
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nBye!")
			return
		}
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])

		var cmdErr error
		switch cmd {
		case "help", "?":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: send, inbox, notifications, status, history, whoami, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: register, login, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "send", "inbox", "notifications", "n", "status", "history", "whoami", "logout":
			if !a.isLoggedIn() {
				printWarning(out, "Log in first")
				continue
			}
			switch cmd {
			case "send":
				cmdErr = a.Send(ctx)
			case "inbox":
				cmdErr = a.Inbox(ctx)
			case "notifications", "n":
				cmdErr = a.Notifications(ctx)
			case "status":
				cmdErr = a.Status(ctx)
			case "history":
				cmdErr = a.History(ctx)
			case "whoami":
				cmdErr = a.Whoami(ctx)
			case "logout":
				cmdErr = a.Logout(ctx)
			}

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			printError(out, cmdErr)
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line from reader, giving up when ctx is done. The read
// itself cannot be interrupted: after cancellation it finishes in the
// background and its result is dropped, so reader must not be used again.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := reader.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

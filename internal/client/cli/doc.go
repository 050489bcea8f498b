// Package cli provides the interactive gophmsg terminal client.
//
// It replaces the forms of a graphical front end with a small REPL: register
// an identity, log in, send a message, read the inbox and collect delivery
// receipts. The password entered at login is held in memory for the session
// because it also unlocks the private key needed to open the inbox; it is
// wiped on logout and on exit.
//
// The REPL is started with App.Run, which blocks until the user exits or the
// context is cancelled.
package cli

package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	AddAccount(ctx context.Context) error
	RegisterAccount(ctx context.Context) error
	ListAccounts(ctx context.Context) error
	ListProfiles(ctx context.Context) error
	SwitchAccount(ctx context.Context, userID string) error
	DeleteAccount(ctx context.Context, userID string) error
	Passwd(ctx context.Context, action string) error
	ShowNuke(ctx context.Context) error
	Connection(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  add                      log in to an existing account and store it
  register                 register a new account and store it
  accounts                 list stored accounts
  profiles                 list remote profiles of stored accounts
  switch <user id>         make an account active (re-login)
  delete <user id>         remove a stored account
  passwd set|update|delete manage the application password
  nuke                     show the duress password
  conn [direct|onion|i2p]  show or set the connection type
  help                     show this message
  exit | quit              leave the program`

// runREPL starts a simple read-eval-print loop for the mxkeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("mx> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "add":
			_ = a.AddAccount(ctx)

		case "register":
			_ = a.RegisterAccount(ctx)

		case "a", "accounts":
			_ = a.ListAccounts(ctx)

		case "p", "profiles":
			_ = a.ListProfiles(ctx)

		case "switch":
			if len(args) == 0 {
				printlnFn("Usage: switch <user id>")
				continue
			}
			_ = a.SwitchAccount(ctx, args[0])

		case "delete":
			if len(args) == 0 {
				printlnFn("Usage: delete <user id>")
				continue
			}
			_ = a.DeleteAccount(ctx, args[0])

		case "passwd":
			if len(args) == 0 {
				printlnFn("Usage: passwd set|update|delete")
				continue
			}
			_ = a.Passwd(ctx, args[0])

		case "nuke":
			_ = a.ShowNuke(ctx)

		case "conn":
			_ = a.Connection(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// teamctl balances rosters offline, issues sign-in tokens, prepares card
// images and talks to a running futdraw server over gRPC.
package main

import (
	"errors"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/Billy-Davies-2/futdraw/internal/logger"
)

var stdout io.Writer = os.Stdout

var baseCfg = new(struct {
	LogLevel string `long:"log-level" env:"FUTDRAW_LOG_LEVEL" default:"warn" description:"Logging level (debug, info, warn, error)"`
})

// OutputConfig is shared by commands that print results.
type OutputConfig struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" choice:"json" default:"table" description:"Output format"`
}

func newParser(options flags.Options) (*flags.Parser, error) {
	parser := flags.NewParser(baseCfg, options)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logger.Init(baseCfg.LogLevel)
		return cmd.Execute(args)
	}

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"balance", "Balance a roster file", `
Split the players of a YAML or JSON roster file into three teams with the
same greedy balancer the server uses. Ratings are derived from attributes.`, &cmdBalance{}},
		{"token", "Issue a sign-in token", `
Sign a custom token for an owner. Browsers sign in with /auth/login?token=...,
API and gRPC clients send it as "Authorization: Bearer ...".`, &cmdToken{}},
		{"image", "Normalize a card image", `
Scale and crop an image to the 300x400 portrait card format and write a PNG.`, &cmdImage{}},
		{"players", "List a server roster", `
List the roster of the token's owner on a running server.`, &cmdPlayers{}},
		{"draw", "Draw teams on a server", `
Balance the current selection of the token's owner on a running server.`, &cmdDraw{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

func main() {
	parser, err := newParser(flags.Default)
	if err != nil {
		logger.Error("Failed to build command parser", "error", err)
		os.Exit(1)
	}
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

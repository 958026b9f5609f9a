// Autofill Core replays recorded browser form-filling steps.
//
// Steps are authored over the REST API (or imported into the database)
// and replayed against a headless Chrome, per website, with {{variable}}
// placeholders filled from a caller supplied value set.
//
//	autofill serve                       # REST + WebSocket API, MQTT run commands
//	autofill run --website shop --vars alice.yaml
//	autofill locate --url https://shop.example/login --css "input[name=email]"
//	autofill migrate --status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnv names the configuration file when --config is not given.
const configEnv = "AUTOFILL_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// options holds the flags shared by every command.
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "autofill",
		Short:         "Replay recorded form-filling steps in a browser",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"configuration file (default $"+configEnv+", built-in defaults when unset)")

	root.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newLocateCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

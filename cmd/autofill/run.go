package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/step"
	"github.com/nerrad567/autofill-core/internal/variables"
)

type runOptions struct {
	websiteID  string
	ownerID    string
	varsFile   string
	startIndex int
}

func newRunCmd(opts *options) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay one website's steps and print the run result",
		Long: `Replay one website's steps in a fresh browser and print the final run
result as JSON. The command fails when the run does not succeed.

The variables file is a flat YAML mapping of placeholder names to values:

  email: alice@example.com
  password: s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, opts, ro)
		},
	}

	f := cmd.Flags()
	f.StringVar(&ro.websiteID, "website", "", "website whose steps are replayed (required)")
	f.StringVar(&ro.ownerID, "owner", "", "owner recorded on the run result")
	f.StringVar(&ro.varsFile, "vars", "", "YAML file of variable values")
	f.IntVar(&ro.startIndex, "start", 0, "skip this many steps, resuming an earlier run")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}

func runOnce(cmd *cobra.Command, opts *options, ro *runOptions) error {
	vars, err := loadVariables(ro.varsFile)
	if err != nil {
		return err
	}

	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "database", db.Close)

	b, err := launchBrowser(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "browser", b.Close)

	deps := replay.Deps{
		Steps:    step.NewRegistry(step.NewSQLiteRepository(db.DB)),
		Sessions: b,
		Results:  replay.NewSQLiteResultRepository(db.DB),
		Logger:   log.Component("replay"),
	}
	deps.RetryWaitMin, deps.RetryWaitMax = cfg.GetRetryWait()
	engine := replay.NewEngine(deps)

	result, err := engine.Run(ctx, replay.RunRequest{
		WebsiteID:  ro.websiteID,
		OwnerID:    ro.ownerID,
		Variables:  vars,
		StartIndex: ro.startIndex,
	})
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if result.Status != replay.StatusSuccess {
		return fmt.Errorf("run %s %s at step %d/%d: %s",
			result.ID, result.Status, result.CurrentStepIndex+1, result.TotalSteps, result.Message)
	}
	return nil
}

// loadVariables reads a flat YAML mapping. An empty path yields no variables.
func loadVariables(path string) (variables.Map, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variables: %w", err)
	}
	var vars variables.Map
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parsing variables %s: %w", path, err)
	}
	return vars, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

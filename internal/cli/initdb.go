package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/app"
)

// InitDBResult lists the database files that were prepared.
type InitDBResult struct {
	Files []string `json:"files"`
}

// NewInitDBCommand creates the init-db command.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or migrate every store",
		Long: `Create every configured database file and its tables, and apply
pending migrations. Running it again is a no-op.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(rootOpts, cmd)
		},
	}
}

func runInitDB(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	reg, err := app.NewRegistry(cfg)
	if err != nil {
		return formatter.Fail("invalid store layout", err)
	}
	defer reg.Close()

	if err := reg.EnsureAll(cmd.Context()); err != nil {
		return formatter.Fail("failed to initialize stores", err)
	}

	files := reg.Files()
	for _, f := range files {
		formatter.VerboseLog("ready: %s", f)
	}

	if formatter.Format == "json" {
		return formatter.Success(InitDBResult{Files: files})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d database file(s) ready\n", len(files))
	return nil
}

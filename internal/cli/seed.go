package cli

import (
	"github.com/spf13/cobra"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml|file.cue>",
		Short: "Load tasks and records from a seed file",
		Long: `Validate a YAML or CUE seed file against the record schema and write
its records through the same path the API uses. Tasks are upserted, so a
seed that carries ids updates those rows.

Nothing is written if the file does not validate.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := seed.Load(path)
	if err != nil {
		_ = formatter.Error(string(apperr.CodeValidation), err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid seed file", err)
	}
	formatter.VerboseLog("%s: %d task(s), %d feedback, %d behavior(s), %d chat summary(ies)",
		path, len(s.Tasks), len(s.Feedback), len(s.Behaviors), len(s.ChatHistory))

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context(), cfg)
	if err != nil {
		return formatter.Fail("failed to open stores", err)
	}
	defer svc.Close()

	sum, err := seed.Apply(cmd.Context(), svc.tracker, s)
	if err != nil {
		return formatter.Fail("seed stopped after "+sum.String(), err)
	}
	return formatter.Success(sum)
}

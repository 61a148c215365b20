package cli

import (
	"github.com/spf13/cobra"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
)

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logs",
		Short:         "Print the audit log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(rootOpts, cmd)
		},
	}
}

func runLogs(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	log, err := audit.Open(cfg.AuditLogPath())
	if err != nil {
		return formatter.Fail("failed to open audit log", err)
	}
	defer log.Close()

	data, err := log.Read()
	if err != nil {
		return formatter.Fail("failed to read audit log", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"path": log.Path(), "content": string(data)})
	}
	_, err = formatter.Writer.Write(data)
	return err
}

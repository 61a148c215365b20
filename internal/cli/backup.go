package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/backup"
)

// BackupResult names the archive written by the backup command.
type BackupResult struct {
	File string `json:"file"`
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a zip of consistent snapshots of every store",
		Long: `Snapshot every database file and write them to a single zip archive
named backup-<UTC timestamp>.zip. The server may keep running meanwhile.

Example:
  ecofmm backup
  ecofmm backup --out /var/backups/ecofmm`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(rootOpts, outDir, cmd)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: configured backup dir)")

	return cmd
}

func runBackup(opts *RootOptions, outDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = cfg.BackupPath()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return formatter.Fail("failed to create output directory", err)
	}

	svc, err := openServices(cmd.Context(), cfg)
	if err != nil {
		return formatter.Fail("failed to open stores", err)
	}
	defer svc.Close()

	stores, err := svc.stores.Stores()
	if err != nil {
		return formatter.Fail("failed to open stores", err)
	}
	sources := make([]backup.Source, len(stores))
	for i, st := range stores {
		sources[i] = st
		formatter.VerboseLog("snapshot: %s", st.Path())
	}

	path, err := backup.CreateFile(cmd.Context(), outDir, sources, time.Now())
	if err != nil {
		return formatter.Fail("backup failed", err)
	}
	svc.audit.Record("Backup created: " + path)

	if formatter.Format == "json" {
		return formatter.Success(BackupResult{File: path})
	}
	fmt.Fprintf(formatter.Writer, "✓ Backup written to %s\n", path)
	return nil
}

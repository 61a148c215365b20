package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
)

// secretBytes is the entropy of a generated token; it renders as 64 hex digits.
const secretBytes = 32

// SecretResult reports a generated token.
type SecretResult struct {
	Token string `json:"token"`
	File  string `json:"file"`
}

// NewCreateSecretCommand creates the create-secret command.
func NewCreateSecretCommand(rootOpts *RootOptions) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "create-secret",
		Short: "Generate a bearer token and store it in .env",
		Long: `Generate a random bearer token, print it, and set ` + config.EnvSecret + `
in the dotenv file. Other keys in the file are kept.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateSecret(rootOpts, envFile, cmd)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file to update")

	return cmd
}

// newSecret returns a random token as lowercase hex.
func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func runCreateSecret(opts *RootOptions, envFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	token, err := newSecret()
	if err != nil {
		return formatter.Fail("failed to generate secret", err)
	}
	if err := config.WriteSecret(envFile, token); err != nil {
		return formatter.Fail("failed to save secret", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SecretResult{Token: token, File: envFile})
	}
	fmt.Fprintf(formatter.Writer, "Generated %s: %s\n", config.EnvSecret, token)
	fmt.Fprintf(formatter.Writer, "Saved to %s\n", envFile)
	return nil
}

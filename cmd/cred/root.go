package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/config"
	"xdao.co/cred/keys"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagKeyStore  = "keystore"
	flagSchemaDir = "schema-dir"
	flagCASDir    = "cas-dir"
	flagTimeout   = "timeout"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cred [sub-command]",
		Short: "Issue, verify and decode compact signed credentials",
		Long: `cred works with credential URIs of the form

	CRED:<TYPE>:<VERSION>:<SIGNATURE>:<KEYID>:<PAYLOAD>

Verification resolves the issuer key named by KEYID through the local cache,
a DNS TXT record, https://KEYID and the public key repository, in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: setupLogging,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := cmd.PersistentFlags()
	pf.String(flagConfig, "", "path to a YAML or JSON config file")
	pf.String(flagLogLevel, "", "log level: debug, info, warn or error (overrides config)")
	pf.String(flagKeyStore, "", "key store directory (default ~/.xdao/cred/keys)")
	pf.String(flagSchemaDir, "", "local directory of <type>.<version>.fields schemas (overrides config)")
	pf.StringSlice(flagCASDir, nil, "bundle store directory, repeatable (overrides config)")
	pf.Duration(flagTimeout, 0, "HTTP timeout for key and schema fetches (overrides config)")

	cmd.AddCommand(
		newSignCmd(),
		newVerifyCmd(),
		newDecodeCmd(),
		newResolveKeyCmd(),
		newHashCmd(),
		newPackCmd(),
		newUnpackCmd(),
		newSchemaCmd(),
		newKeyCmd(),
		newBundleCmd(),
	)
	return cmd
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}
	if v, _ := cmd.Flags().GetString(flagLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString(flagSchemaDir); v != "" {
		cfg.SchemaDir = v
	}
	if v, _ := cmd.Flags().GetStringSlice(flagCASDir); len(v) > 0 {
		cfg.CASDirs = v
	}
	if v, _ := cmd.Flags().GetDuration(flagTimeout); v > 0 {
		cfg.HTTPTimeout = config.Duration(v)
	}
	return cfg, cfg.Validate()
}

// setupLogging installs a text logger on stderr into the command context.
func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	cmd.SetContext(slogcontext.NewCtx(cmd.Context(), logger))
	return nil
}

func openRuntime(cmd *cobra.Command) (*config.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cfg.Open(cmd.Context())
}

func openKeyStore(cmd *cobra.Command) (*keys.KeyStore, error) {
	dir, _ := cmd.Flags().GetString(flagKeyStore)
	return keys.CreateKeyStore(dir)
}

func readFileArg(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

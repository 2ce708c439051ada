package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kshao/chatvault/internal/config"
	"github.com/kshao/chatvault/internal/crypto"
	"github.com/kshao/chatvault/internal/logging"
	"github.com/kshao/chatvault/internal/store"
)

// rootOptions carries flag values shared by every subcommand.
type rootOptions struct {
	configDir string
	dataDir   string
	logLevel  string
	logJSON   bool
	password  string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "chatvault",
		Short:   "Encrypted local archive for chat exports",
		Version: Version,
		Long: `chatvault imports conversation exports from ChatGPT, Claude, Gemini,
Qwen and WhatsApp into a local SQLite vault. Conversation titles, authors
and message bodies are encrypted with a key derived from your password;
the key never touches disk.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configDir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = opts.dataDir
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("json-log") {
				cfg.LogJSON = opts.logJSON
			}
			opts.cfg = cfg
			logging.Init(os.Stderr, cfg.LogLevel, cfg.LogJSON)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configDir, "config-dir", "", "directory containing chatvault.yaml")
	pf.StringVar(&opts.dataDir, "data-dir", "", "vault data directory (overrides config)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.logJSON, "json-log", false, "emit logs as JSON")
	pf.StringVarP(&opts.password, "password", "p", "", "vault password (falls back to CHATVAULT_PASSWORD, then a prompt)")

	cmd.AddCommand(
		newInitCmd(opts),
		newImportCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
	)
	return cmd
}

// resolvePassword returns the vault password from the flag, the
// environment, or an interactive prompt, in that order.
func (o *rootOptions) resolvePassword() (string, error) {
	if o.password != "" {
		return o.password, nil
	}
	if env := os.Getenv("CHATVAULT_PASSWORD"); env != "" {
		return env, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return pw, nil
}

// openVault opens the store under the configured data directory and unlocks
// it. Callers own the returned store and must Close it.
func (o *rootOptions) openVault() (*store.Store, error) {
	password, err := o.resolvePassword()
	if err != nil {
		return nil, err
	}

	svc := crypto.NewService(o.cfg.Limits.KDFIterations)
	st, err := store.Open(o.cfg.DataDir, svc)
	if err != nil {
		return nil, err
	}
	if err := st.Unlock(password); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault and set its password",
		Long: `init creates the vault database under the data directory, generates a
fresh key-derivation salt and binds the vault to your password. Running it
against an existing vault just verifies the password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openVault()
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Vault ready at %s\n", opts.cfg.DataDir)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openVault()
			if err != nil {
				return err
			}
			defer st.Close()

			convs, err := st.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Vault is empty.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tTYPE\tSTARTED\tUPDATED\tNAME")
			for _, conv := range convs {
				started := humanize.Time(conv.StartTimeUTC())
				updated := humanize.Time(conv.EndTimeUTC())
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					shortID(conv.ID), conv.SourceApp, conv.ChatType, started, updated, conv.DisplayName)
			}
			return w.Flush()
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show CONVERSATION_ID",
		Short: "Print the messages of one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openVault()
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return fmt.Errorf("no messages for conversation %q", args[0])
			}

			out := cmd.OutOrStdout()
			for _, msg := range msgs {
				ts := msg.Time().Format("2006-01-02 15:04:05")
				fmt.Fprintf(out, "[%s] %s:\n", ts, msg.Author)
				for _, line := range strings.Split(msg.Content, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
}

// shortID keeps listings readable; full ids come out of `import --json`.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

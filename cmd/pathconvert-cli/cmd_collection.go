package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "List collections and control which take part in the graph",
	}
	cmd.AddCommand(
		collectionListCmd(),
		collectionStateCmd("enable", "Include collections in recommendations", true),
		collectionStateCmd("disable", "Remove collections and their edges from recommendations", false),
		collectionPreviewCmd(),
	)

	return cmd
}

func collectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List synced collections with their recommendation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cols, err := apiClient.Collections.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}

			return render(cmd.OutOrStdout(), flagFmt, collectionsView(cols))
		},
	}
}

func collectionStateCmd(verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := apiClient.Collections.SetEnabled(cmd.Context(), args, enabled)
			if err != nil {
				return fmt.Errorf("%s collections: %w", verb, err)
			}

			return render(cmd.OutOrStdout(), flagFmt, updatedView{Updated: n})
		},
	}
}

func collectionPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <handle>",
		Short: "Show the buttons the storefront renders on a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := apiClient.Collections.Preview(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("previewing %s: %w", args[0], err)
			}

			return render(cmd.OutOrStdout(), flagFmt, recommendationsView(recs))
		},
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/client"
)

const (
	minButtons = 1
	maxButtons = 20
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change storefront display settings",
	}
	cmd.AddCommand(settingsGetCmd(), settingsSetCmd())

	return cmd
}

func settingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := apiClient.Settings.Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("getting settings: %w", err)
			}

			return render(cmd.OutOrStdout(), flagFmt, settingsView{s})
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var (
		buttons   int
		alignment string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change max buttons and/or alignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildSettingsRequest(cmd, buttons, alignment)
			if err != nil {
				return err
			}

			s, err := apiClient.Settings.Update(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("updating settings: %w", err)
			}

			return render(cmd.OutOrStdout(), flagFmt, settingsView{s})
		},
	}

	cmd.Flags().IntVar(&buttons, "max-buttons", 0, fmt.Sprintf("Buttons shown per collection (%d-%d)", minButtons, maxButtons))
	cmd.Flags().StringVar(&alignment, "alignment", "", "Button alignment: left|center|right")

	return cmd
}

// buildSettingsRequest includes only the flags the user set.
func buildSettingsRequest(cmd *cobra.Command, buttons int, alignment string) (*client.UpdateSettingsRequest, error) {
	req := &client.UpdateSettingsRequest{}

	if cmd.Flags().Changed("max-buttons") {
		if buttons < minButtons || buttons > maxButtons {
			return nil, fmt.Errorf("--max-buttons must be between %d and %d", minButtons, maxButtons)
		}

		req.MaxButtons = &buttons
	}

	if cmd.Flags().Changed("alignment") {
		switch alignment {
		case "left", "center", "right":
		default:
			return nil, errors.New("--alignment must be left, center or right")
		}

		req.Alignment = &alignment
	}

	if req.MaxButtons == nil && req.Alignment == nil {
		return nil, errors.New("nothing to change: set --max-buttons or --alignment")
	}

	return req, nil
}

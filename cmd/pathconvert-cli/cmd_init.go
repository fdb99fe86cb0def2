package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/client"
)

func newInitCmd() *cobra.Command {
	var (
		url         string
		apiKey      string
		profileName string
		skipCheck   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save a server URL and shop API key to ~/.pathconvert/config.yaml",
		Long: "Prompts for the server URL and the API key printed by `pathconvert shop add`, " +
			"checks them against the server and stores them as a named profile. " +
			"Passing --api-key skips the prompts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if apiKey == "" {
				var err error
				if url, apiKey, err = promptConnection(cmd.InOrStdin(), out, url); err != nil {
					return err
				}
			}

			if url == "" {
				url = defaultURL
			}

			if apiKey == "" {
				return errors.New("an API key is required")
			}

			if !skipCheck {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()

				ver, err := checkConnection(ctx, client.New(url, client.WithAPIKey(apiKey)))
				if err != nil {
					return fmt.Errorf("checking %s: %w", url, err)
				}

				fmt.Fprintf(out, "Connected to pathconvert %s at %s\n", ver, url)
			}

			path, err := configPath()
			if err != nil {
				return err
			}

			if err := saveProfile(path, profileName, profile{URL: url, APIKey: apiKey}); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Fprintf(out, "Saved profile %q to %s\n", profileName, path)
			fmt.Fprintln(out, "Next: pathconvert-cli job run --watch")

			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Server URL (default "+defaultURL+")")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Shop API key")
	cmd.Flags().StringVar(&profileName, "profile", defaultProfile, "Profile name to save and activate")
	cmd.Flags().BoolVar(&skipCheck, "no-check", false, "Save without contacting the server")

	return cmd
}

func promptConnection(in io.Reader, out io.Writer, url string) (string, string, error) {
	r := bufio.NewReader(in)

	if url == "" {
		fmt.Fprintf(out, "Server URL [%s]: ", defaultURL)

		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", err
		}

		url = strings.TrimSpace(line)
	}

	fmt.Fprint(out, "API key: ")

	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", err
	}

	return url, strings.TrimSpace(line), nil
}

// checkConnection confirms the server answers and accepts the key, and
// returns the server version.
func checkConnection(ctx context.Context, c *client.Client) (string, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return "", err
	}

	if _, err := c.Settings.Get(ctx); err != nil {
		if client.IsUnauthorized(err) {
			return "", errors.New("API key rejected")
		}

		return "", err
	}

	if health.Version == "" {
		return "unknown", nil
	}

	return health.Version, nil
}

// saveProfile adds or replaces one profile, keeping the others.
func saveProfile(path, name string, p profile) error {
	f, err := loadConfigFile(path)
	if err != nil {
		f = &configFile{}
	}

	f.setProfile(name, p)

	return saveConfigFile(path, f)
}

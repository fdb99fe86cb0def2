// Command pathconvert-cli operates one shop's recommendation graph through
// the pathconvert REST API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("pathconvert-cli version %s (commit: %s, built: %s)", version, commit, buildDate)
	}

	return fmt.Sprintf("pathconvert-cli version %s-dev", version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "pathconvert-cli",
		Short:             "pathconvert CLI: run jobs and manage collection recommendations",
		Version:           versionString(),
		PersistentPreRunE: connect,
		SilenceUsage:      true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagURL, "url", "", "pathconvert server URL (env: "+envURL+", default "+defaultURL+")")
	root.PersistentFlags().StringVar(&flagKey, "api-key", "", "Shop API key (env: "+envAPIKey+")")
	root.PersistentFlags().StringVar(&flagFmt, "format", formatJSON, "Output format: json|table|quiet")

	// init and doctor resolve their own connection.
	offline := func(*cobra.Command, []string) error { return validateFormat(flagFmt) }

	initCmd := newInitCmd()
	initCmd.PersistentPreRunE = offline
	doctorCmd := newDoctorCmd()
	doctorCmd.PersistentPreRunE = offline

	root.AddCommand(initCmd, doctorCmd, newJobCmd(), newCollectionCmd(), newSettingsCmd())

	return root
}

// connect builds the API client from flags, environment and config file.
// An unreadable config file is reported but does not stop the command.
func connect(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(flagFmt); err != nil {
		return err
	}

	var file *configFile

	if path, err := configPath(); err == nil {
		file, err = loadConfigFile(path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring config: %v\n", err)
		}
	}

	conn := resolveConnection(flagURL, flagKey, os.Getenv, file)

	var opts []client.Option
	if conn.APIKey != "" {
		opts = append(opts, client.WithAPIKey(conn.APIKey))
	}

	apiClient = client.New(conn.URL, opts...)

	return nil
}

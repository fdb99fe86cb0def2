package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/client"
)

const doctorTimeout = 5 * time.Second

var errDoctorFailed = errors.New("doctor found issues")

type checkResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, connectivity, readiness and the last job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results := runDoctor(cmd.Context(), os.Getenv)
			if err := printDoctor(cmd.OutOrStdout(), cmd.Flags().Changed("format"), results); err != nil {
				return err
			}

			for _, r := range results {
				if !r.Passed {
					return errDoctorFailed
				}
			}

			return nil
		},
	}
}

// runDoctor stops at the first check later checks depend on.
func runDoctor(ctx context.Context, getenv func(string) string) []checkResult {
	var results []checkResult

	path, err := configPath()
	if err != nil {
		return append(results, checkResult{Name: "Config file", Detail: err.Error()})
	}

	file, err := loadConfigFile(path)
	if err != nil {
		results = append(results, checkResult{Name: "Config file", Detail: err.Error(), Hint: "Fix or remove " + path})
	} else {
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: path})
	}

	conn := resolveConnection(flagURL, flagKey, getenv, file)

	anon := client.New(conn.URL)

	version, err := withTimeout(ctx, func(ctx context.Context) (string, error) {
		h, err := anon.Health(ctx)
		if err != nil {
			return "", err
		}

		return h.Version, nil
	})
	if err != nil {
		return append(results, checkResult{
			Name: "Server reachable", Detail: conn.URL,
			Hint: fmt.Sprintf("Is `pathconvert` running? %v", err),
		})
	}

	results = append(results, checkResult{Name: "Server reachable", Passed: true, Detail: fmt.Sprintf("%s (%s)", conn.URL, version)})
	results = append(results, readinessChecks(ctx, anon)...)

	if conn.APIKey == "" {
		return append(results, checkResult{
			Name: "API key",
			Hint: "Set --api-key, " + envAPIKey + ", or run pathconvert-cli init",
		})
	}

	authed := client.New(conn.URL, client.WithAPIKey(conn.APIKey))

	if _, err := withTimeout(ctx, func(ctx context.Context) (*client.Settings, error) {
		return authed.Settings.Get(ctx)
	}); err != nil {
		return append(results, checkResult{Name: "Authentication", Detail: err.Error(), Hint: "Check the key printed by `pathconvert shop add`"})
	}

	results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})

	return append(results, lastJobCheck(ctx, authed))
}

func readinessChecks(ctx context.Context, c *client.Client) []checkResult {
	ready, err := withTimeout(ctx, c.Ready)
	if ready == nil {
		return []checkResult{{Name: "Server ready", Detail: fmt.Sprint(err)}}
	}

	names := make([]string, 0, len(ready.Checks))
	for name := range ready.Checks {
		names = append(names, name)
	}

	slices.Sort(names)

	results := make([]checkResult, 0, len(names))
	for _, name := range names {
		status := ready.Checks[name]
		results = append(results, checkResult{Name: "Ready: " + name, Passed: status == "ok", Detail: status})
	}

	return results
}

// lastJobCheck fails only when the most recent job failed.
func lastJobCheck(ctx context.Context, c *client.Client) checkResult {
	job, err := withTimeout(ctx, c.Jobs.Latest)

	switch {
	case client.IsNotFound(err):
		return checkResult{Name: "Last job", Passed: true, Detail: "none yet", Hint: "Run: pathconvert-cli job run --watch"}
	case err != nil:
		return checkResult{Name: "Last job", Detail: err.Error()}
	case job.Status == client.JobFailed:
		return checkResult{Name: "Last job", Detail: fmt.Sprintf("%s failed: %s", job.Type, job.Error), Hint: "Rerun: pathconvert-cli job run --watch"}
	default:
		return checkResult{Name: "Last job", Passed: true, Detail: fmt.Sprintf("%s %s (%d%%)", job.Type, job.Status, job.Progress)}
	}
}

func withTimeout[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, doctorTimeout)
	defer cancel()

	return fn(ctx)
}

// printDoctor writes a checklist unless --format was given explicitly.
func printDoctor(w io.Writer, explicitFormat bool, results []checkResult) error {
	if explicitFormat {
		return render(w, flagFmt, doctorView(results))
	}

	for _, r := range results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
		}

		fmt.Fprintf(w, "%s %s", mark, r.Name)

		if r.Detail != "" {
			fmt.Fprintf(w, ": %s", r.Detail)
		}

		fmt.Fprintln(w)

		if r.Hint != "" && !r.Passed {
			fmt.Fprintf(w, "     %s\n", r.Hint)
		}
	}

	return nil
}

type doctorView []checkResult

func (v doctorView) value() any { return []checkResult(v) }
func (v doctorView) columns() []string { return []string{"CHECK", "PASSED", "DETAIL"} }

func (v doctorView) rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{r.Name, yesNo(r.Passed), dash(r.Detail)})
	}

	return rows
}

func (v doctorView) keys() []string {
	var failed []string

	for _, r := range v {
		if !r.Passed {
			failed = append(failed, r.Name)
		}
	}

	return failed
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathconvert/pathconvert/client"
)

var jobTypes = map[string]string{
	"all":   client.JobAnalyseDeploy,
	"sync":  client.JobFetchCollections,
	"embed": client.JobEmbedCollections,
	"graph": client.JobBuildEdges,
}

var errJobFailed = errors.New("job failed")

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Run and inspect pipeline jobs",
	}
	cmd.AddCommand(jobRunCmd(), jobGetCmd(), jobLatestCmd(), jobWatchCmd())

	return cmd
}

// resolveJobType accepts a short alias or a full job type.
func resolveJobType(s string) (string, error) {
	if t, ok := jobTypes[s]; ok {
		return t, nil
	}

	for _, t := range jobTypes {
		if s == t {
			return t, nil
		}
	}

	return "", fmt.Errorf("unknown job type %q (use all, sync, embed or graph)", s)
}

func jobRunCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [all|sync|embed|graph]",
		Short: "Queue a job (default: all, the full analyse and deploy pipeline)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "all"
			if len(args) == 1 {
				kind = args[0]
			}

			jobType, err := resolveJobType(kind)
			if err != nil {
				return err
			}

			job, err := apiClient.Jobs.Create(cmd.Context(), jobType)
			if client.IsNotEntitled(err) {
				return errors.New("the shop's plan does not allow running jobs")
			}

			if err != nil {
				return fmt.Errorf("queueing job: %w", err)
			}

			if !watch {
				return render(cmd.OutOrStdout(), flagFmt, jobView{job})
			}

			return watchJob(cmd, job.ID, interval)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Follow progress until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval for --watch")

	return cmd
}

func jobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := apiClient.Jobs.Get(cmd.Context(), args[0])
			if client.IsNotFound(err) {
				return fmt.Errorf("job %s not found", args[0])
			}

			if err != nil {
				return fmt.Errorf("getting job: %w", err)
			}

			return render(cmd.OutOrStdout(), flagFmt, jobView{job})
		},
	}
}

func jobLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := apiClient.Jobs.Latest(cmd.Context())
			if client.IsNotFound(err) {
				return errors.New("no jobs have been run yet")
			}

			if err != nil {
				return fmt.Errorf("getting latest job: %w", err)
			}

			return render(cmd.OutOrStdout(), flagFmt, jobView{job})
		},
	}
}

func jobWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a job's progress until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd, args[0], interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval")

	return cmd
}

// watchJob prints progress lines to stderr until the job is terminal, then
// renders the final job. A failed job is an error so the exit status is 1.
func watchJob(cmd *cobra.Command, id string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := apiClient.Jobs.Wait(ctx, id, interval, func(j *client.Job) {
		if flagFmt != formatQuiet {
			progressLine(cmd.ErrOrStderr(), j)
		}
	})
	if err != nil {
		return fmt.Errorf("watching job: %w", err)
	}

	if err := render(cmd.OutOrStdout(), flagFmt, jobView{job}); err != nil {
		return err
	}

	if job.Status == client.JobFailed {
		return fmt.Errorf("%w: %s", errJobFailed, job.Error)
	}

	return nil
}

func progressLine(w io.Writer, j *client.Job) {
	fmt.Fprintf(w, "[%3d%%] %s\n", j.Progress, j.Step)
}

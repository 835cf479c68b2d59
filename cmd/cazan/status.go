package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/aeliadev/cazan/internal/artifact"
	"github.com/aeliadev/cazan/internal/cache"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/project"
	"github.com/aeliadev/cazan/internal/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lock and build state of the project",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		l, err := projectLayout()
		if err != nil {
			fail(err)
		}
		if err := runStatus(cmd.Context(), l, cmd.OutOrStdout()); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, l project.Layout, out io.Writer) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(out, "Project root: %s\n", cyan(l.Root))
	if !l.Initialized() {
		fmt.Fprintf(out, "%s Not initialized %s\n", yellow("⚠"), gray("(run `cazan init`)"))
		return nil
	}

	st, err := config.IsStale(l.ConfigFile(), l.ChecksumFile())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "Lock:     %s\n", yellow(config.FileName+" is missing"))
	case err != nil:
		return err
	case !st.Stale:
		fmt.Fprintf(out, "Lock:     %s %s\n", green("up-to-date"), gray(st.Locked.Short(12)))
	case st.Reason == config.ReasonUnlocked:
		fmt.Fprintf(out, "Lock:     %s %s\n", yellow("not locked"), gray("(run `cazan lock`)"))
	default:
		fmt.Fprintf(out, "Lock:     %s %s\n", yellow("stale ("+string(st.Reason)+")"), gray("(run `cazan lock`)"))
	}

	m, err := artifact.Read(l.ArtifactFile())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "Artifact: %s %s\n", yellow("not built"), gray("(run `cazan prebuild`)"))
	case err != nil:
		fmt.Fprintf(out, "Artifact: %s\n", yellow(fmt.Sprintf("unreadable: %v", err)))
	default:
		fmt.Fprintf(out, "Artifact: %d entries in %s\n", len(m), cyan(l.Rel(l.ArtifactFile())))
	}

	if r, err := report.Read(l.ReportFile()); err == nil {
		fmt.Fprintf(out, "Last build: %s at %s (%d built, %d cached, %d failed)\n",
			gray(r.BuildID), r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			r.Totals.Built, r.Totals.Cached, r.Totals.Failed)
	}

	if _, err := os.Stat(l.CacheFile()); err == nil {
		c, err := cache.Open(l.CacheFile())
		if err != nil {
			return err
		}
		defer c.Close()
		n, err := c.Len(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Cache:    %d entries\n", n)
	}
	return nil
}

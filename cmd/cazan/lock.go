package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aeliadev/cazan/internal/lock"
	"github.com/aeliadev/cazan/internal/project"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	lockForce        bool
	lockAllowUnknown bool
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Validate cazan.json and lock it into .cazan/config.json",
	Long: `Validate cazan.json and store a locked copy with its checksum.

Nothing is written when cazan.json has not changed since the last lock.
Unknown fields are dropped from the locked copy with a warning unless
--allow-unknown is given. --force skips validation entirely.

Examples:
  cazan lock
  cazan lock --allow-unknown
  cazan lock --force`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		l, err := projectLayout()
		if err != nil {
			fail(err)
		}
		opts := lock.Options{Force: lockForce, AllowUnknown: lockAllowUnknown}
		if err := runLock(cmd.Context(), l, opts, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.Flags().BoolVarP(&lockForce, "force", "f", false, "Copy cazan.json without validation")
	lockCmd.Flags().BoolVarP(&lockAllowUnknown, "allow-unknown", "u", false, "Keep unknown fields in the locked config")
}

func runLock(ctx context.Context, l project.Layout, opts lock.Options, out, errOut io.Writer) error {
	res, err := lock.NewManager(l).Lock(ctx, opts)
	if err != nil {
		if errors.Is(err, lock.ErrNotInitialized) {
			return project.ErrNotInitialized
		}
		return err
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	for _, w := range res.Warnings {
		fmt.Fprintln(errOut, yellow(w))
	}

	switch res.Status {
	case lock.StatusUpToDate:
		fmt.Fprintf(out, "%s Already up-to-date\n", green("✓"))
	default:
		fmt.Fprintf(out, "%s Locked config\n", green("✓"))
	}
	return nil
}

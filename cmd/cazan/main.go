// Command cazan pre-builds sprite hit-boxes for cazan game projects.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aeliadev/cazan/internal/logging"
	"github.com/aeliadev/cazan/internal/project"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var (
	projectDir string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "cazan",
	Short: "Pre-build sprite hit-boxes for cazan projects",
	Long: `cazan turns the sprites of a game project into triangle hit-boxes.

A project is a directory holding cazan.json. Typical workflow:
  cazan init        # scaffold .cazan/ and a default cazan.json
  cazan lock        # validate cazan.json and lock it
  cazan prebuild    # build .cazan/build/assets.json`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(logLevel, logFormat, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(logging.WithLogger(ctx, logger))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project root directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Diagnostic log level: "+strings.Join(logging.Levels, ", "))
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Diagnostic log format: "+strings.Join(logging.Formats, ", "))
}

// projectLayout resolves the --dir flag.
func projectLayout() (project.Layout, error) {
	return project.New(projectDir)
}

// fail prints err and exits with status 1.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fail(err)
	}
}

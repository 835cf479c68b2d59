package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/project"
	"github.com/aeliadev/cazan/internal/prompt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new cazan project in the current directory",
	Long: `Initialize a cazan project by creating:
  - .cazan/ and .cazan/build/ (generated state)
  - assets/ (sprite sources)
  - cazan.json (only when it does not exist yet)

With --force an existing .cazan/ directory is removed and recreated. An
existing cazan.json is always kept.

Example:
  cazan init
  cazan init --interactive
  cazan init --force`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		l, err := projectLayout()
		if err != nil {
			fail(err)
		}

		var cfg *config.ProjectConfig
		if initInteractive {
			cfg, err = askProjectConfig(l, os.Stdin, cmd.OutOrStdout())
			if err != nil {
				fail(err)
			}
		}

		if err := runInit(l, project.InitOptions{Force: initForce, Config: cfg}, cmd.OutOrStdout()); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Recreate .cazan/ if the project is already initialized")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for name, version and authors")
}

func askProjectConfig(l project.Layout, in io.ReadCloser, out io.Writer) (*config.ProjectConfig, error) {
	if _, err := os.Stat(l.ConfigFile()); err == nil {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(out, "%s %s already exists and will be kept\n", yellow("⚠"), config.FileName)
		return nil, nil
	}
	rl, err := prompt.NewReadline(in, out)
	if err != nil {
		return nil, err
	}
	defer rl.Close()
	return prompt.ProjectConfig(rl, config.DefaultProjectConfig(filepath.Base(l.Root)), out)
}

func runInit(l project.Layout, opts project.InitOptions, out io.Writer) error {
	res, err := project.Init(l, opts)
	if errors.Is(err, project.ErrAlreadyInitialized) {
		return fmt.Errorf("%w (use --force to re-initialize)", err)
	}
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if res.Reinitialized {
		fmt.Fprintf(out, "%s Re-initialized cazan project\n\n", green("✓"))
	} else {
		fmt.Fprintf(out, "%s Initialized cazan project\n\n", green("✓"))
	}
	fmt.Fprintf(out, "  Project root: %s\n", cyan(l.Root))
	if res.WroteConfig {
		fmt.Fprintf(out, "  Config: %s (created)\n", cyan(config.FileName))
	} else {
		fmt.Fprintf(out, "  Config: %s (kept)\n", cyan(config.FileName))
	}
	if res.CreatedAssets {
		fmt.Fprintf(out, "  Assets: %s (created)\n", cyan(project.AssetsDir+"/"))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s Next steps:\n", gray("→"))
	fmt.Fprintf(out, "  %s\n", gray("cazan lock"))
	fmt.Fprintf(out, "  %s\n", gray("cazan prebuild"))
	return nil
}

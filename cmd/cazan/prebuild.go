package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/aeliadev/cazan/internal/artifact"
	"github.com/aeliadev/cazan/internal/build"
	"github.com/aeliadev/cazan/internal/cache"
	"github.com/aeliadev/cazan/internal/config"
	"github.com/aeliadev/cazan/internal/discovery"
	"github.com/aeliadev/cazan/internal/geometry"
	"github.com/aeliadev/cazan/internal/lock"
	"github.com/aeliadev/cazan/internal/logging"
	"github.com/aeliadev/cazan/internal/progress"
	"github.com/aeliadev/cazan/internal/project"
	"github.com/aeliadev/cazan/internal/report"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	prebuildAssets  []string
	prebuildExclude []string
	prebuildEpsilon float64
	prebuildOutput  string
	prebuildKey     string
	prebuildWorkers int
	prebuildTimeout time.Duration
	prebuildNoCache bool
)

var prebuildCmd = &cobra.Command{
	Use:   "prebuild",
	Short: "Build triangle hit-boxes for the project's sprites",
	Long: `Trace, simplify and triangulate every sprite and write the result to
.cazan/build/assets.json, keyed by the sprite's content checksum.

Sprites come from --assets, or from the "assets" list of the locked config.
Each entry is a directory (searched recursively) or a glob pattern such as
assets/**/*.png. Only .png, .jpg, .jpeg and .gif files are built.

Settings can also be given through CAZAN_WORKERS, CAZAN_FILE_TIMEOUT,
CAZAN_KEY_MODE and CAZAN_CACHE; flags take precedence.

Examples:
  cazan prebuild
  cazan prebuild -a "assets/player-*.png" -e 1.5
  cazan prebuild --key path --workers 4 --no-cache`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		l, err := projectLayout()
		if err != nil {
			fail(err)
		}

		opts, err := prebuildOptionsFromFlags(cmd)
		if err != nil {
			fail(err)
		}

		term := progress.Detect(os.Stdout)
		if err := runPrebuild(cmd.Context(), l, opts, term, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(prebuildCmd)
	prebuildCmd.Flags().StringArrayVarP(&prebuildAssets, "assets", "a", nil, "Asset directory or glob pattern (repeatable)")
	prebuildCmd.Flags().StringArrayVar(&prebuildExclude, "exclude", nil, "Glob pattern of assets to skip (repeatable)")
	prebuildCmd.Flags().Float64VarP(&prebuildEpsilon, "epsilon", "e", config.DefaultEpsilon, "Ramer-Douglas-Peucker tolerance in pixels")
	prebuildCmd.Flags().StringVarP(&prebuildOutput, "output", "o", "", "Artifact path (default .cazan/build/assets.json)")
	prebuildCmd.Flags().StringVar(&prebuildKey, "key", string(config.KeyChecksum), "Artifact key: checksum or path")
	prebuildCmd.Flags().IntVar(&prebuildWorkers, "workers", 0, "Worker pool size (default number of CPUs)")
	prebuildCmd.Flags().DurationVar(&prebuildTimeout, "timeout", 0, "Per-asset timeout (default 60s)")
	prebuildCmd.Flags().BoolVar(&prebuildNoCache, "no-cache", false, "Do not read or write the result cache")
}

type prebuildOptions struct {
	Assets   []string
	Exclude  []string
	Epsilon  *float64
	Output   string
	Settings config.BuildSettings
}

// prebuildOptionsFromFlags layers flags over environment settings.
func prebuildOptionsFromFlags(cmd *cobra.Command) (prebuildOptions, error) {
	settings, err := config.BuildSettingsFromEnv()
	if err != nil {
		return prebuildOptions{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		settings.Workers = prebuildWorkers
	}
	if flags.Changed("timeout") {
		settings.FileTimeout = prebuildTimeout
	}
	if flags.Changed("key") {
		mode, err := config.ParseKeyMode(prebuildKey)
		if err != nil {
			return prebuildOptions{}, err
		}
		settings.KeyMode = mode
	}
	if prebuildNoCache {
		settings.CacheEnabled = false
	}
	if err := settings.Validate(); err != nil {
		return prebuildOptions{}, err
	}

	opts := prebuildOptions{
		Assets:   prebuildAssets,
		Exclude:  prebuildExclude,
		Output:   prebuildOutput,
		Settings: settings,
	}
	if flags.Changed("epsilon") {
		eps := prebuildEpsilon
		opts.Epsilon = &eps
	}
	return opts, nil
}

func runPrebuild(ctx context.Context, l project.Layout, opts prebuildOptions, term progress.Terminal, out, errOut io.Writer) error {
	logger := logging.FromContext(ctx)
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if err := l.RequireInitialized(); err != nil {
		return err
	}

	if st, err := config.IsStale(l.ConfigFile(), l.ChecksumFile()); err != nil {
		logger.Debug("Staleness check failed.", "error", err)
	} else if st.Stale {
		fmt.Fprintln(errOut, yellow(lock.StaleWarning))
	}

	cfg, err := loadBuildConfig(l, errOut)
	if err != nil {
		return err
	}

	inputs := opts.Assets
	if len(inputs) == 0 {
		inputs = cfg.Assets
	}
	assets, err := discovery.Discover(l.Root, inputs, discovery.Options{Exclude: opts.Exclude})
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		fmt.Fprintln(out, "Nothing to build")
		return nil
	}

	epsilon := cfg.EffectiveEpsilon(opts.Epsilon)
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon <= 0 {
		return fmt.Errorf("epsilon must be a positive number (got %g)", epsilon)
	}
	logger.Debug("Prebuild starting.", "assets", len(assets), "epsilon", epsilon, "settings", opts.Settings.String())

	var resultCache build.Cache
	if opts.Settings.CacheEnabled {
		c, err := cache.Open(l.CacheFile())
		if err != nil {
			fmt.Fprintf(errOut, "%s\n", yellow(fmt.Sprintf("Warning result cache unavailable: %v", err)))
		} else {
			defer c.Close()
			if ttl := opts.Settings.CacheTTL; ttl > 0 {
				if n, err := c.PruneOlderThan(ctx, time.Now().Add(-ttl)); err != nil {
					logger.Debug("Cache prune failed.", "error", err)
				} else if n > 0 {
					logger.Debug("Pruned cache entries.", "removed", n, "ttl", ttl)
				}
			}
			resultCache = c
		}
	}

	rep := progress.New(out, term.SlotCount(len(assets)), term.Options())
	started := time.Now()
	orch := build.NewOrchestrator(geometry.NewImagePipeline(), build.Options{
		Epsilon:     epsilon,
		Workers:     opts.Settings.Workers,
		FileTimeout: opts.Settings.FileTimeout,
		KeyMode:     opts.Settings.KeyMode,
		Cache:       resultCache,
		Reporter:    rep,
	})
	res, runErr := orch.Run(ctx, assets)
	if err := rep.Finish(); err != nil {
		logger.Debug("Progress output failed.", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("build interrupted: %w", runErr)
	}

	dest := opts.Output
	if dest == "" {
		dest = l.ArtifactFile()
	} else if !filepath.IsAbs(dest) {
		dest = filepath.Join(l.Root, dest)
	}
	// A build where nothing succeeded keeps the previous artifact.
	allFailed := res.Built+res.Cached == 0 && res.Failed > 0
	if !allFailed {
		if err := artifact.Write(res.Artifacts, dest); err != nil {
			return err
		}
	}

	summary := report.New(res, report.Meta{
		StartedAt: started,
		Epsilon:   epsilon,
		KeyMode:   string(opts.Settings.KeyMode),
		Artifact:  l.Rel(dest),
	})
	if err := summary.Write(l.ReportFile()); err != nil {
		fmt.Fprintln(errOut, yellow(fmt.Sprintf("Warning %v", err)))
	}

	for _, c := range res.Collisions {
		fmt.Fprintln(errOut, yellow(fmt.Sprintf("Warning `%s` and `%s` share key %s; keeping `%s`",
			c.Dropped, c.Kept, c.Key, c.Kept)))
	}

	if failures := res.Failures(); len(failures) > 0 {
		fmt.Fprintf(errOut, "%s %d of %d assets failed:\n", red("✗"), len(failures), len(res.Outcomes))
		for _, f := range failures {
			fmt.Fprintf(errOut, "  %v\n", f.Err)
		}
	}

	if allFailed {
		fmt.Fprintln(errOut, yellow(fmt.Sprintf("Warning every asset failed; %s was left unchanged", l.Rel(dest))))
		return nil
	}

	fmt.Fprintf(out, "%s Built %d assets (%d cached) into %s\n",
		green("✓"), res.Built+res.Cached, res.Cached, cyan(l.Rel(dest)))
	return nil
}

// loadBuildConfig prefers the locked snapshot and falls back to validating
// cazan.json when nothing has been locked yet.
func loadBuildConfig(l project.Layout, errOut io.Writer) (*config.ProjectConfig, error) {
	cfg, err := config.LoadSnapshot(l.LockedConfigFile())
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("locked config: %w", err)
	}

	parsed, err := config.Load(l.ConfigFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config.DefaultProjectConfig(filepath.Base(l.Root)), nil
		}
		return nil, err
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintln(errOut, yellow("Warning config is not locked; using cazan.json directly"))
	return parsed.Config, nil
}

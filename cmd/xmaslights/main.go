package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coreman2200/xmaslights/internal/app"
	"github.com/coreman2200/xmaslights/internal/config"
	"github.com/coreman2200/xmaslights/internal/diagnostics"
	"github.com/coreman2200/xmaslights/internal/led"
	"github.com/coreman2200/xmaslights/internal/server"
	"github.com/coreman2200/xmaslights/internal/settings"
	"github.com/coreman2200/xmaslights/internal/tests"
)

type flags struct {
	configPath string
	driver     string
	color      string
	addr       string
	linkAddr   string
	logLevel   string
	maxLights  int
	fps        int
	brightness uint8
	budgetMW   float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("xmaslights exited")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command { return buildRoot(&flags{}) }

func buildRoot(f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:           "xmaslights",
		Short:         "Drive an addressable LED strip through a rotation of holiday effects",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			return runController(cfg)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "config.yaml", "path to config.yaml")
	pf.StringVar(&f.driver, "driver", "", "driver: spi | pwm | sim | fake")
	pf.StringVar(&f.color, "color", "", "LED color order on the wire (e.g. GRB, RGB)")
	pf.StringVar(&f.addr, "addr", "", "status page listen address")
	pf.StringVar(&f.linkAddr, "link-addr", "", "listen address for the configuration link, preview and metrics")
	pf.StringVar(&f.logLevel, "log-level", "", "debug | info | warn | error")
	pf.IntVar(&f.maxLights, "max-lights", 0, "hardware pixel count")
	pf.IntVar(&f.fps, "fps", 0, "target frames per second")
	pf.Uint8Var(&f.brightness, "brightness", 0, "global brightness 0..255")
	pf.Float64Var(&f.budgetMW, "budget-mw", 0, "power ceiling in milliwatts, 0 disables")

	root.AddCommand(newSimulateCmd(f), newSelftestCmd(f))
	return root
}

// loadConfig reads the config file, then applies only the flags the user
// actually set.
func loadConfig(fl *pflag.FlagSet, f *flags) (*config.Config, error) {
	setupLogging("info")
	cfg, err := config.Load(f.configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Info().Str("path", f.configPath).Msg("no config file; using defaults")
	}
	if fl.Changed("driver") {
		cfg.Driver = f.driver
	}
	if fl.Changed("color") {
		cfg.ColorOrder = f.color
	}
	if fl.Changed("addr") {
		cfg.HTTP.Addr = f.addr
	}
	if fl.Changed("link-addr") {
		cfg.Link.Addr = f.linkAddr
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fl.Changed("max-lights") {
		cfg.MaxLights = f.maxLights
	}
	if fl.Changed("fps") {
		cfg.FPS = f.fps
	}
	if fl.Changed("brightness") {
		cfg.Brightness = f.brightness
	}
	if fl.Changed("budget-mw") {
		cfg.Power.BudgetMW = f.budgetMW
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// initCore builds the core and logs a diagnostic in full if hardware failed.
func initCore(cfg *config.Config, o app.Overrides) (*app.Core, error) {
	core, err := app.InitCore(cfg, o, log.Logger)
	if err != nil {
		var d *diagnostics.Diagnostic
		if errors.As(err, &d) {
			d.Log(log.Logger)
		}
		return nil, err
	}
	return core, nil
}

func runController(cfg *config.Config) error {
	core, err := initCore(cfg, app.Overrides{})
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, cancel := signalContext()
	defer cancel()

	status := server.NewStatus(server.StatusOptions{
		Status:  core.Loop,
		Refresh: cfg.HTTP.StatusRefresh,
		Log:     log.Logger,
	})
	control := server.NewControl(server.ControlOptions{
		Link:    core.Link,
		Frames:  core.Preview,
		Metrics: core.Metrics.Handler(),
		Log:     log.Logger,
	})
	statusDone, err := server.Run(ctx, cfg.HTTP.Addr, status, log.Logger)
	if err != nil {
		d := diagnostics.Link(cfg.HTTP.Addr, err)
		d.Log(log.Logger)
		return d
	}
	controlDone, err := server.Run(ctx, cfg.Link.Addr, control, log.Logger)
	if err != nil {
		cancel()
		<-statusDone
		d := diagnostics.Link(cfg.Link.Addr, err)
		d.Log(log.Logger)
		return d
	}
	log.Info().Str("name", core.Link.Name).Str("addr", cfg.Link.Addr).Msg("advertising configuration service")

	loopDone := make(chan error, 1)
	go func() { loopDone <- core.Run(ctx) }()

	var statusErr, controlErr error
	select {
	case statusErr = <-statusDone:
		cancel()
		controlErr = <-controlDone
		err = <-loopDone
	case controlErr = <-controlDone:
		cancel()
		statusErr = <-statusDone
		err = <-loopDone
	case err = <-loopDone:
		cancel()
		statusErr, controlErr = <-statusDone, <-controlDone
	}
	if statusErr != nil || controlErr != nil {
		log.Error().AnErr("status", statusErr).AnErr("control", controlErr).Msg("http server stopped")
		err = errors.Join(err, statusErr, controlErr)
	}
	log.Info().Msg("shutting down")
	return err
}

func newSimulateCmd(f *flags) *cobra.Command {
	var dur time.Duration
	var every int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the effect rotation headless and log frame summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			cfg.Driver = "fake"
			l := log.With().Str("component", "fake").Logger()
			store := &settings.MemStore{}
			core, err := initCore(cfg, app.Overrides{
				Driver: &led.Fake{Log: &l, Every: every},
				Store:  store,
			})
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, cancel := signalContext()
			defer cancel()
			ctx, cancel = context.WithTimeout(ctx, dur)
			defer cancel()
			if err := core.Run(ctx); err != nil {
				return err
			}
			st := core.Loop.Status()
			log.Info().
				Float64("fps", st.FPS).
				Float64("power_mw", st.PowerMW).
				Str("effect", st.Name).
				Int("index", st.Index).
				Msg("simulation finished")
			return nil
		},
	}
	cmd.Flags().DurationVar(&dur, "duration", 12*time.Second, "how long to run")
	cmd.Flags().IntVar(&every, "every", 25, "log one summary per this many frames")
	return cmd
}

func newSelftestCmd(f *flags) *cobra.Command {
	var pattern string
	var step time.Duration
	var cycles int
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Show wiring test patterns on the strip",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			kinds := tests.Kinds
			if pattern != "" {
				kinds = []tests.Kind{tests.Kind(pattern)}
			}
			core, err := initCore(cfg, app.Overrides{Store: &settings.MemStore{}})
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, cancel := signalContext()
			defer cancel()
			for _, k := range kinds {
				if err := runPattern(ctx, core, tests.Plan{Kind: k, Cycles: cycles}, step); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", fmt.Sprintf("one of %v; all when empty", tests.Kinds))
	cmd.Flags().DurationVar(&step, "step", 50*time.Millisecond, "time each pattern frame stays up")
	cmd.Flags().IntVar(&cycles, "cycles", 2, "repetitions of the rgb_channels pattern")
	return cmd
}

func runPattern(ctx context.Context, core *app.Core, plan tests.Plan, step time.Duration) error {
	r := tests.NewRunner(plan)
	log.Info().Str("pattern", string(plan.Kind)).Msg("selftest")
	frames := 0
	t := time.NewTicker(step)
	defer t.Stop()
	for r.Step(core.FB) {
		if err := core.FB.Show(); err != nil {
			return err
		}
		frames++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if frames == 0 {
		return fmt.Errorf("unknown pattern %q", plan.Kind)
	}
	return nil
}

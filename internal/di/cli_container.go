package di

import (
	"flag"
	"os"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/threat-alert-engine/internal/adapters/intake"
	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/factors"
	"github.com/mikey/threat-alert-engine/internal/logging"
	"github.com/mikey/threat-alert-engine/internal/metrics"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Severity band flags; a zero wait is derived from alert
	AlertThreshold    float64
	WaitThreshold     float64
	ElevatedThreshold float64
	CriticalThreshold float64
	FailSafe          string

	// Calibration flags
	PriorLogit  float64
	Temperature float64

	KnownFactors string
	NoQuestions  bool

	// Input and output flags
	InputFile  string
	Output     string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, os.Args[1:])
}

// ParseFlagSet registers the CLI flags on fs and parses args
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	fs.Float64Var(&flags.AlertThreshold, "alert", core.DefaultAlertThreshold, "Probability at which a standard alert is raised")
	fs.Float64Var(&flags.WaitThreshold, "wait", 0, "Probability at which the engine waits for more evidence (default alert x 0.5)")
	fs.Float64Var(&flags.ElevatedThreshold, "elevated", core.DefaultElevatedThreshold, "Probability for an elevated alert")
	fs.Float64Var(&flags.CriticalThreshold, "critical", core.DefaultCriticalThreshold, "Probability for a critical alert")
	fs.StringVar(&flags.FailSafe, "fail-safe", "standard", "Decision for unresolvable evidence (standard, elevated, critical)")

	fs.Float64Var(&flags.PriorLogit, "prior-logit", core.DefaultPriorLogit, "Baseline log-odds with no evidence")
	fs.Float64Var(&flags.Temperature, "temperature", 1, "Calibration temperature (>= 1)")

	fs.StringVar(&flags.KnownFactors, "factors", "", "Comma-separated list of additional known factors")
	fs.BoolVar(&flags.NoQuestions, "no-questions", false, "Do not rank follow-up questions")

	fs.StringVar(&flags.InputFile, "file", "", "Input event file (use stdin if not specified)")
	fs.StringVar(&flags.Output, "output", "text", "Output format (text, json)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Load settings from the config file instead of flags")

	_ = fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register alert service without persistence or incident fusion
	if err := container.Provide(func(
		agg *core.Aggregator,
		thresholds core.Thresholds,
		catalog *factors.Catalog,
		logger *zap.Logger,
		opts core.ServiceOptions,
	) (*core.AlertService, error) {
		return core.NewAlertService(agg, thresholds, nil, nil, catalog, logger, metrics.New(), opts)
	}); err != nil {
		return nil, err
	}

	// Register CLI intake
	if err := container.Provide(func(svc *core.AlertService, logger *zap.Logger, cfg *config.Config) *intake.CLIIntake {
		return intake.NewCLIIntake(svc, logger, os.Stdout, cfg.GetBool("cli.verbose"))
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("server.intake_type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("store.enabled", false)
	v.Set("incident.enabled", false)
	v.Set("reasoner.enabled", !flags.NoQuestions)

	v.Set("thresholds.alert", flags.AlertThreshold)
	if flags.WaitThreshold > 0 {
		v.Set("thresholds.wait", flags.WaitThreshold)
	}
	v.Set("thresholds.elevated", flags.ElevatedThreshold)
	v.Set("thresholds.critical", flags.CriticalThreshold)
	v.Set("thresholds.fail_safe", flags.FailSafe)

	v.Set("aggregator.prior_logit", flags.PriorLogit)
	v.Set("aggregator.temperature", flags.Temperature)

	if flags.KnownFactors != "" {
		v.Set("factors.known", splitList(flags.KnownFactors))
	}

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

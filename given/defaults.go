package given

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/jsamuelsen/go-given/internal/platform/config"
	"github.com/jsamuelsen/go-given/internal/platform/logging"
	"github.com/jsamuelsen/go-given/internal/platform/telemetry"
)

// ProfileEnv names the environment variable selecting given.<profile>.yaml.
const ProfileEnv = "GIVEN_PROFILE"

var (
	defaultsOnce  sync.Once
	defaultTrace  bool
	defaultLogger *slog.Logger
)

// loadDefaults reads the configuration once per process. Invalid
// configuration falls back to built-in defaults with a warning.
func loadDefaults() {
	defaultsOnce.Do(func() {
		cfg, err := loadConfig()
		if err != nil {
			defaultLogger = logging.New(&logging.Config{Level: "info", Format: "pretty", Component: "given"})
			defaultLogger.Warn(Tag+" ignoring configuration", slog.Any("error", err))
			return
		}

		defaultTrace = cfg.Trace.Enabled
		defaultLogger = logging.New(&logging.Config{
			Level:     cfg.Log.Level,
			Format:    cfg.Log.Format,
			Component: "given",
			File: logging.FileConfig{
				Enabled:    cfg.Log.File.Enabled,
				Path:       cfg.Log.File.Path,
				MaxSizeMB:  cfg.Log.File.MaxSizeMB,
				MaxBackups: cfg.Log.File.MaxBackups,
				MaxAgeDays: cfg.Log.File.MaxAgeDays,
				Compress:   cfg.Log.File.Compress,
			},
		})
	})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(os.Getenv(ProfileEnv))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve fills unset options from the process defaults.
func (s *settings) resolve() {
	if s.trace == nil || s.logger == nil {
		loadDefaults()
	}
	if s.trace == nil {
		enabled := defaultTrace
		s.trace = &enabled
	}
	if s.logger == nil {
		s.logger = defaultLogger
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}
}

// StartTelemetry installs OpenTelemetry providers from the telemetry
// configuration section, typically from TestMain. The returned function
// flushes and stops them.
func StartTelemetry(ctx context.Context) (func(context.Context) error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	provider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	return provider.Shutdown, nil
}

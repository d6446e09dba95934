// Package main runs a small traced given scenario against a local HTTP fixture.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/go-given/given"
	"github.com/jsamuelsen/go-given/internal/platform/config"
	"github.com/jsamuelsen/go-given/internal/platform/logging"
	"github.com/jsamuelsen/go-given/internal/platform/telemetry"
	"github.com/jsamuelsen/go-given/steps"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the demo.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load and validate configuration (fail fast)
	cfg, err := config.Load(os.Getenv(given.ProfileEnv))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 2. Initialize logging
	logger := logging.New(&logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "given-demo",
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	logger.Info("starting demo",
		slog.String("version", Version),
		slog.String("commit", Commit),
	)

	// 3. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Exporter:     cfg.Telemetry.Exporter,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 4. Run the scenario. The demo always traces; GIVEN_TRACE_ENABLED only
	// sets the default for library users.
	err = given.Run(ctx, scenario(telProvider), magicFunction,
		given.WithTrace(true),
		given.WithLogger(logger),
		given.WithScenario("magic function returns the external number"),
		given.WithTracerProvider(telProvider.TracerProvider()),
		given.WithMeterProvider(telProvider.MeterProvider()),
	)
	if err != nil {
		return fmt.Errorf("scenario failed: %w", err)
	}

	logger.Info("demo passed")
	return nil
}

// scenario prepares an external number and an HTTP service that returns it.
func scenario(p *telemetry.Provider) []given.Step {
	return []given.Step{
		steps.Value("external number", 7),
		steps.TempDir("workdir"),
		steps.GinServer("magic service", func(e *gin.Engine) {
			e.GET("/magic", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"number": 7})
			})
			if reg := p.Registry(); reg != nil {
				e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
			}
		}),
	}
}

func magicFunction(c *given.Context) error {
	srv := given.MustValue[*steps.Server](c, "magic service")
	want := given.MustValue[int](c, "external number")

	var got int
	var callErr error
	c.When("I call the magic function", func(*given.Mock) {
		got, callErr = fetchNumber(c.Context(), srv)
	})
	if callErr != nil {
		return callErr
	}

	var checkErr error
	c.Then(fmt.Sprintf("it should return %d", want), func(*given.Mock) {
		if got != want {
			checkErr = fmt.Errorf("expected %d, got %d", want, got)
		}
	})
	if checkErr != nil {
		return checkErr
	}

	c.Result("the answer is written to the work dir", func(*given.Mock) {
		path := given.MustValue[string](c, "workdir") + "/answer.txt"
		checkErr = os.WriteFile(path, fmt.Appendf(nil, "%d\n", got), 0o600)
	})
	return checkErr
}

func fetchNumber(ctx context.Context, srv *steps.Server) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/magic", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := srv.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Number *int `json:"number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}
	if payload.Number == nil {
		return 0, errors.New("response has no number")
	}

	return *payload.Number, nil
}

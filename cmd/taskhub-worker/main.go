// Command taskhub-worker connects to a coordinator and executes orchestrator and activity work items.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cschleiden/go-taskhub/activity"
	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/coordinator/remote"
	"github.com/cschleiden/go-taskhub/internal/config"
	"github.com/cschleiden/go-taskhub/metrics/prometheus"
	"github.com/cschleiden/go-taskhub/worker"
	"github.com/cschleiden/go-taskhub/workflow"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var configPath = flag.String("config", "taskhub.yaml", "Path to the worker configuration file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := newTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()

		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}()

	coordinatorOptions := []coordinator.Option{coordinator.WithLogger(logger)}
	if tp.provider != nil {
		coordinatorOptions = append(coordinatorOptions, coordinator.WithTracerProvider(tp.provider))
	}

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		coordinatorOptions = append(coordinatorOptions, coordinator.WithMetrics(prometheus.New(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logger.Info("serving metrics", "addr", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
				cancel()
			}
		}()
	}

	c, err := remote.New(cfg.Coordinator.Address,
		remote.WithCoordinatorOptions(coordinatorOptions...),
		remote.WithMaxReconnectInterval(cfg.Coordinator.MaxReconnectInterval),
		remote.WithDialOptions(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	w := worker.New(c, &worker.Options{
		Pollers:                      cfg.Worker.Pollers,
		MaxParallelOrchestratorTasks: cfg.Worker.MaxParallelOrchestratorTasks,
		MaxParallelActivityTasks:     cfg.Worker.MaxParallelActivityTasks,
		PollingInterval:              cfg.Worker.PollingInterval,
	})

	if err := register(w); err != nil {
		return err
	}

	if err := w.Start(ctx); err != nil {
		return err
	}

	logger.Info("worker started", "coordinator", cfg.Coordinator.Address)

	<-ctx.Done()

	logger.Info("shutting down, waiting for in-flight work items")

	if metricsServer != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()

		if err := metricsServer.Shutdown(sctx); err != nil {
			logger.Warn("shutting down metrics server", "error", err)
		}
	}

	return w.WaitForCompletion()
}

func register(w *worker.Worker) error {
	if err := w.RegisterActivity(Echo); err != nil {
		return err
	}

	return w.RegisterOrchestrator(EchoOrchestrator)
}

// Echo returns its input unchanged.
func Echo(ctx activity.Context) (any, error) {
	return ctx.RawInput(), nil
}

func EchoOrchestrator(ctx *workflow.OrchestrationContext) (any, error) {
	var input any
	if err := ctx.GetInput(&input); err != nil {
		return nil, err
	}

	var output any
	if err := ctx.CallActivity(Echo, workflow.WithActivityInput(input)).Await(&output); err != nil {
		return nil, err
	}

	return output, nil
}

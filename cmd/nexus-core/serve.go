package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus-core/internal/agent"
	"github.com/haasonsaas/nexus-core/internal/audit"
	"github.com/haasonsaas/nexus-core/internal/bridge"
	"github.com/haasonsaas/nexus-core/internal/channels/console"
	"github.com/haasonsaas/nexus-core/internal/config"
	"github.com/haasonsaas/nexus-core/internal/llm"
	"github.com/haasonsaas/nexus-core/internal/memory"
	"github.com/haasonsaas/nexus-core/internal/observability"
	"github.com/haasonsaas/nexus-core/internal/policy"
	"github.com/haasonsaas/nexus-core/internal/prompt"
	"github.com/haasonsaas/nexus-core/internal/redact"
	"github.com/haasonsaas/nexus-core/internal/scheduler"
	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/internal/tools"
	"github.com/haasonsaas/nexus-core/internal/workspace"
	"github.com/haasonsaas/nexus-core/pkg/models"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// coreHandler adapts the orchestrator to the bridge's event callbacks.
type coreHandler struct {
	orch *agent.Orchestrator
}

func (h *coreHandler) HandleInbound(msg models.InboundMessage) {
	h.orch.HandleInbound(context.Background(), msg, uuid.NewString())
}

func (h *coreHandler) HandleDeliveryReceipt(chatID string, ids []string) {
	h.orch.RegisterOutboundProviderIDs(chatID, ids)
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	redactor := redact.New(cfg.RedactPatterns, nil)
	logger := observability.NewLogger(observability.LogConfig{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		Output:   os.Stderr,
		Redactor: redactor,
	})
	slog.SetDefault(logger)

	metrics := observability.NewMetrics(nil)
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "nexus-core",
		ServiceVersion: version,
		Endpoint:       cfg.TraceEndpoint,
	})

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	mem := memory.NewStore(cfg.MemoryDir, cfg.SessionWindowTurns, cfg.Location)
	journal := memory.NewJournal(cfg.MemoryDir, cfg.Location)

	ws, err := workspace.New(cfg.WorkspaceDir, logger)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	defer ws.Close()

	registry := tools.NewRegistry(logger, metrics)
	router := llm.NewRouter(llm.Config{
		BaseURL:       cfg.APIBaseURL,
		APIKey:        cfg.APIKey,
		PrimaryModel:  cfg.PrimaryModel,
		FallbackModel: cfg.FallbackModel,
		ComplexModel:  cfg.ComplexModel,
		Timeout:       cfg.RequestTimeout.Std(),
	}, logger, metrics)

	orch := agent.New(agent.Options{
		Store:               st,
		Memory:              mem,
		Journal:             journal,
		Redactor:            redactor,
		Prompts:             prompt.NewBuilder(ws, mem, cfg.SkillsDir, logger),
		Registry:            registry,
		Policy:              policy.NewEngine(st, cfg.ConfirmationTTL.Std(), logger),
		Router:              router,
		RedactedLog:         audit.NewLog(filepath.Join(filepath.Dir(cfg.DBPath), "redacted.log"), redactor),
		Logger:              logger,
		Metrics:             metrics,
		Tracer:              tracer,
		MaxSteps:            cfg.MaxSteps,
		ObservationMaxChars: cfg.ObservationMaxChars,
	})

	sched := scheduler.New(st, cfg.Location, logger, orch.EmitScheduled)
	if err := registry.Register(tools.NewSchedulerTool(sched)); err != nil {
		return err
	}
	if err := registry.Register(tools.NewMemoryTool(mem)); err != nil {
		return err
	}

	loaded, failed := sched.Restore()
	logger.Info("jobs rehydrated", "loaded", loaded, "failed", failed)
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridgeClient := bridge.NewClient(bridge.Config{
		URL:    cfg.BridgeURL,
		Secret: cfg.BridgeSecret,
	}, &coreHandler{orch: orch}, logger)
	orch.BindSink(models.ChannelWhatsApp, agent.SinkFunc(bridgeClient.SendOutbound))
	go bridgeClient.Run(ctx)

	cons := console.New(os.Stdin, os.Stdout, logger)
	orch.BindSink(models.ChannelConsole, cons)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Info("nexus core running",
		"bridge_url", cfg.BridgeURL, "db_path", cfg.DBPath, "timezone", cfg.Timezone)

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- cons.Run(ctx, func(msg models.InboundMessage, traceID string) {
			orch.HandleInbound(ctx, msg, traceID)
		})
	}()

	select {
	case <-ctx.Done():
	case err := <-consoleDone:
		if err != nil {
			logger.Warn("console loop ended", "error", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
	logger.Info("nexus core stopped")
	return nil
}

// Command draftloop is the main entry point for the draftloop content bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"draftloop/internal/chat/discordbot"
	"draftloop/internal/config"
	"draftloop/internal/content"
	"draftloop/internal/drafting"
	"draftloop/internal/health"
	"draftloop/internal/mining"
	"draftloop/internal/observe"
	"draftloop/internal/pipeline"
	"draftloop/internal/registry"
	"draftloop/internal/scheduler"
	"draftloop/internal/store"
	"draftloop/internal/tldv"
	"draftloop/pkg/provider/llm"
	"draftloop/pkg/provider/llm/anyllm"
	"draftloop/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "draftloop: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "draftloop: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Level(),
	}))
	slog.SetDefault(logger)

	slog.Info("draftloop starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "draftloop",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Record store ──────────────────────────────────────────────────────────
	st, pool, err := store.Connect(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to record store", "err", err)
		return 1
	}
	defer pool.Close()

	// ── Idea registry, seeded from the store ──────────────────────────────────
	reg := registry.New()
	seedRegistry(ctx, reg, st)

	// ── LLM provider and drafting service ─────────────────────────────────────
	provider, err := buildLLMProvider(cfg.Drafting.Provider)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err, "provider", cfg.Drafting.Provider.Name)
		return 1
	}
	svc := buildDraftingService(provider, cfg.Drafting.Voice)

	// ── Discord bot ───────────────────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:   cfg.Discord.Token,
		OwnerID: cfg.Discord.OwnerID,
	})
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	defer func() {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}()

	// ── Mining ────────────────────────────────────────────────────────────────
	// New ideas are announced in the owner DM as they are recorded.
	queue := mining.NewQueue(svc, reg, st, func(idea content.ContentIdea) {
		text := fmt.Sprintf("💡 New idea: **%s** — “%s”", idea.Theme, idea.Hook)
		if _, err := bot.SendMessage(ctx, text); err != nil {
			slog.Warn("announce idea failed", "idea_id", idea.ID, "err", err)
		}
	})
	miner := mining.NewMiner(svc, st, reg, queue)

	// ── Transcript polling ────────────────────────────────────────────────────
	fetcher, err := buildFetcher(ctx, cfg, st, queue)
	if err != nil {
		slog.Error("failed to create tl;dv client", "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	p := pipeline.New(pipeline.Config{
		Registry:  reg,
		Drafting:  svc,
		Transport: bot,
		Store:     st,
		Miner:     miner,
	})
	bot.SetHandler(p)

	// ── Scheduler ─────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Fetcher:      fetcher,
		Miner:        miner,
		Interviewer:  p,
		Registry:     reg,
		CronSpec:     cfg.Schedule.ContentCron,
		PollInterval: cfg.Schedule.PollInterval.Std(),
		MiningWindow: cfg.MiningWindow(),
	})
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "err", err)
		return 1
	}
	defer sched.Stop()
	p.SetCycleRunner(sched)

	// ── HTTP server: health + metrics ─────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "database", Check: pool.Ping},
		health.Checker{Name: "discord", Check: func(context.Context) error {
			if !bot.Session().DataReady {
				return errors.New("gateway not ready")
			}
			return nil
		}},
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}

	printStartupSummary(cfg)
	slog.Info("draftloop ready — press Ctrl+C to shut down")

	// ── Run until a signal arrives ────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return bot.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	llmValue := cfg.Drafting.Provider.Name
	if cfg.Drafting.Provider.Model != "" {
		llmValue += " / " + cfg.Drafting.Provider.Model
	}
	tldvValue := "(disabled)"
	if cfg.TLDV.APIKey != "" {
		tldvValue = "polling every " + cfg.Schedule.PollInterval.Std().String()
	}

	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║        draftloop — startup summary       ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	printRow("LLM", llmValue)
	printRow("tl;dv", tldvValue)
	printRow("Content cron", cfg.Schedule.ContentCron)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚══════════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(default)"
	}
	if len(value) > 25 {
		value = value[:22] + "…"
	}
	fmt.Printf("║  %-12s : %-25s ║\n", label, value)
}

// seedRegistry rebuilds the in-memory registry from the record store. A
// seeding failure is not fatal: the bot starts with an empty registry and
// duplicate suppression degrades until the store recovers.
func seedRegistry(ctx context.Context, reg *registry.Registry, st store.Store) {
	ideas, err := st.ListIdeas(ctx)
	if err != nil {
		slog.Warn("registry seeding: list ideas failed, starting empty", "err", err)
		return
	}
	transcriptIDs, err := st.AllTranscriptIDs(ctx)
	if err != nil {
		slog.Warn("registry seeding: list transcripts failed", "err", err)
	}
	reg.LoadExisting(ideas, transcriptIDs)
	slog.Info("registry seeded", "ideas", len(ideas), "transcripts", len(transcriptIDs))
}

// buildLLMProvider constructs the configured LLM backend. "openai" uses the
// native SDK; every other provider name goes through the any-llm-go bridge.
func buildLLMProvider(entry config.ProviderEntry) (llm.Provider, error) {
	model := entry.Model
	if model == "" {
		model = "gpt-4o"
	}

	if entry.Name == "openai" {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, model, opts...)
}

// buildDraftingService wires the provider into the drafting service.
func buildDraftingService(provider llm.Provider, voice string) *drafting.LLMService {
	var opts []drafting.Option
	if voice != "" {
		opts = append(opts, drafting.WithVoice(voice))
	}
	return drafting.NewLLMService(provider, opts...)
}

// buildFetcher creates the transcript poller, or a no-op fetcher when tl;dv
// polling is not configured.
func buildFetcher(ctx context.Context, cfg *config.Config, st store.Store, queue *mining.Queue) (scheduler.Fetcher, error) {
	if cfg.TLDV.APIKey == "" {
		slog.Info("tl;dv polling disabled (no api key)")
		return noopFetcher{}, nil
	}

	var opts []tldv.Option
	if cfg.TLDV.BaseURL != "" {
		opts = append(opts, tldv.WithBaseURL(cfg.TLDV.BaseURL))
	}
	client, err := tldv.New(cfg.TLDV.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	return tldv.NewPoller(client, st, cfg.MiningWindow(), func(t content.Transcript) {
		queue.Enqueue(ctx, t)
	}), nil
}

// noopFetcher satisfies scheduler.Fetcher when polling is disabled.
type noopFetcher struct{}

func (noopFetcher) FetchNew(context.Context) (int, error) { return 0, nil }

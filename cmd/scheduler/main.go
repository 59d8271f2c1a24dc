package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/tubeseo-agent/internal/agent/optimizer"
	"github.com/tubeseo-agent/internal/candidate"
	"github.com/tubeseo-agent/internal/config"
	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/internal/generation/providers"
	"github.com/tubeseo-agent/internal/history"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform/youtube"
	"github.com/tubeseo-agent/internal/review"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/internal/storage/sqlite"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tubeseo-scheduler",
		Short: "Background scheduler for the TubeSEO agent",
		Long: `Runs the periodic optimization cycle for every user with automation enabled.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting TubeSEO Agent Scheduler")

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	if cfg.Server.HealthEnabled {
		go startHealthServer(cfg.Server.HealthAddress)
	}

	// Initialize rate limiter
	limiter := ratelimit.NewDefaultLimiter()

	// Initialize YouTube client factory
	factory := youtube.NewFactory(youtube.Config{
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
	}, repo, limiter, log)

	// History ledger and review queue
	ledger := history.New(repo, log)
	queue := review.NewQueue(repo, factory, ledger, log)

	callTimeout := parseDuration(cfg.Scheduler.CallTimeout, 60*time.Second)
	retryWait := parseDuration(cfg.Scheduler.RetryWait, 20*time.Second)

	// Per-user generation chains are built from the credential vault at
	// processing time so key changes take effect without a restart.
	buildChains := func(creds []*models.ProviderCredential) (*generation.Chain, *generation.Chain) {
		text, image := providers.FromCredentials(creds, limiter, log)
		return generation.NewChain(text, retryWait, log),
			generation.NewChain(image, retryWait, log)
	}

	agent := optimizer.NewAgent(
		repo,
		factory,
		ledger,
		queue,
		buildChains,
		youtube.NewChannelContext(limiter, log),
		optimizer.Config{
			Policy: candidate.Policy{
				MinAge:   time.Duration(cfg.Policy.MinAgeHours) * time.Hour,
				Cooldown: time.Duration(cfg.Policy.CooldownHours) * time.Hour,
			},
			CandidatesPerTick:  cfg.Policy.CandidatesPerTick,
			CallTimeout:        callTimeout,
			GenerateThumbnails: cfg.Media.Enabled,
			MediaDir:           cfg.Media.Dir,
			RecentTitleCount:   cfg.Policy.RecentTitleCount,
		},
		log,
	)

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	// Schedule the optimization tick
	_, err = c.AddFunc(cfg.Scheduler.TickCron, func() {
		ctx := context.Background()

		result, err := agent.Tick(ctx, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Scheduled tick failed")
			return
		}

		log.Info().
			Int("users_due", result.UsersDue).
			Int("users_processed", result.UsersProcessed).
			Int("suggestions_queued", result.SuggestionsQueued).
			Msg("Scheduled tick completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.TickCron).Msg("Optimization tick scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer(addr string) {
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("TubeSEO Agent Scheduler"))
	})

	log.Info().Str("addr", addr).Msg("Health check server starting")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}

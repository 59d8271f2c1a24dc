package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

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
	userID  string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tubeseo",
		Short: "YouTube SEO optimization agent",
		Long: `An agent that periodically analyzes your YouTube uploads, generates
improved titles, descriptions, and tags with AI, and queues the
suggestions for your review before anything is applied.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user ID to operate on (defaults to TUBESEO_USER)")

	// Add subcommands
	rootCmd.AddCommand(reviewsCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(oauthCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if userID == "" {
		userID = os.Getenv("TUBESEO_USER")
	}

	return nil
}

// requireUser guards commands that operate on a single user's data.
func requireUser() error {
	if userID == "" {
		return fmt.Errorf("a user is required: pass --user or set TUBESEO_USER")
	}
	return nil
}

func newFactory(limiter *ratelimit.MultiLimiter) *youtube.Factory {
	return youtube.NewFactory(youtube.Config{
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
	}, repo, limiter, log)
}

func newAgent(limiter *ratelimit.MultiLimiter) *optimizer.Agent {
	factory := newFactory(limiter)
	ledger := history.New(repo, log)
	queue := review.NewQueue(repo, factory, ledger, log)

	retryWait := 20 * time.Second
	if d, err := time.ParseDuration(cfg.Scheduler.RetryWait); err == nil && d > 0 {
		retryWait = d
	}
	callTimeout := 60 * time.Second
	if d, err := time.ParseDuration(cfg.Scheduler.CallTimeout); err == nil && d > 0 {
		callTimeout = d
	}

	buildChains := func(creds []*models.ProviderCredential) (*generation.Chain, *generation.Chain) {
		text, image := providers.FromCredentials(creds, limiter, log)
		return generation.NewChain(text, retryWait, log),
			generation.NewChain(image, retryWait, log)
	}

	return optimizer.NewAgent(
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
}

// ============ REVIEWS COMMANDS ============

func reviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Manage pending review suggestions",
	}

	cmd.AddCommand(reviewsListCmd())
	cmd.AddCommand(reviewsShowCmd())
	cmd.AddCommand(reviewsApproveCmd())
	cmd.AddCommand(reviewsRejectCmd())
	return cmd
}

func reviewsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending suggestions awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			queue := review.NewQueue(repo, nil, history.New(repo, log), log)
			rows, err := queue.List(ctx, userID)
			if err != nil {
				return err
			}

			if len(rows) == 0 {
				fmt.Println("No pending reviews.")
				return nil
			}

			fmt.Printf("\n=== Pending Reviews (%d) ===\n\n", len(rows))
			for _, r := range rows {
				status := ""
				if r.NeedsManualParse() {
					status = " [raw response, needs manual review]"
				}
				fmt.Printf("Video:    %s%s\n", r.VideoID, status)
				fmt.Printf("Current:  %s\n", r.CurrentTitle)
				if r.NewTitle != "" {
					fmt.Printf("Proposed: %s\n", r.NewTitle)
				}
				fmt.Printf("Provider: %s\n", r.Provider)
				fmt.Printf("Created:  %s\n\n", r.CreatedAt.Format(time.RFC1123))
			}
			return nil
		},
	}
}

func reviewsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [video-id]",
		Short: "Show a pending suggestion in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			queue := review.NewQueue(repo, nil, history.New(repo, log), log)
			r, err := queue.Get(ctx, userID, args[0])
			if err != nil {
				if errors.Is(err, review.ErrNotFound) {
					return fmt.Errorf("no pending review for video %s", args[0])
				}
				return err
			}

			fmt.Printf("\n=== Review: %s ===\n\n", r.VideoID)
			fmt.Printf("--- Current ---\n")
			fmt.Printf("Title:       %s\n", r.CurrentTitle)
			fmt.Printf("Description: %s\n", truncate(r.CurrentDescription, 500))
			fmt.Printf("Tags:        %s\n\n", strings.Join(r.CurrentTags, ", "))

			if r.NeedsManualParse() {
				fmt.Printf("--- Raw response (unparseable) ---\n%s\n", r.RawResponse)
				return nil
			}

			fmt.Printf("--- Proposed ---\n")
			fmt.Printf("Title:       %s\n", r.NewTitle)
			fmt.Printf("Description: %s\n", r.NewDescription)
			fmt.Printf("Tags:        %s\n", strings.Join(r.NewTags, ", "))
			if r.ThumbnailPath != "" {
				fmt.Printf("Thumbnail:   %s\n", r.ThumbnailPath)
			}
			return nil
		},
	}
}

func reviewsApproveCmd() *cobra.Command {
	var (
		editTitle       string
		editDescription string
		editTags        []string
	)

	cmd := &cobra.Command{
		Use:   "approve [video-id]",
		Short: "Approve a suggestion and apply it to the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			limiter := ratelimit.NewDefaultLimiter()
			queue := review.NewQueue(repo, newFactory(limiter), history.New(repo, log), log)

			var edits *review.Edits
			if editTitle != "" || editDescription != "" || len(editTags) > 0 {
				edits = &review.Edits{
					Title:       editTitle,
					Description: editDescription,
					Tags:        editTags,
				}
			}

			if err := queue.Approve(ctx, userID, args[0], edits); err != nil {
				return fmt.Errorf("approve failed: %w", err)
			}

			fmt.Printf("Approved. Metadata applied to video %s.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&editTitle, "title", "", "Override the proposed title before applying")
	cmd.Flags().StringVar(&editDescription, "description", "", "Override the proposed description before applying")
	cmd.Flags().StringSliceVar(&editTags, "tags", nil, "Override the proposed tags before applying")
	return cmd
}

func reviewsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject [video-id]",
		Short: "Discard a suggestion without touching the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			queue := review.NewQueue(repo, nil, history.New(repo, log), log)
			if err := queue.Reject(ctx, userID, args[0]); err != nil {
				if errors.Is(err, review.ErrNotFound) {
					return fmt.Errorf("no pending review for video %s", args[0])
				}
				return err
			}

			fmt.Printf("Rejected. Suggestion for video %s discarded.\n", args[0])
			return nil
		},
	}
}

// ============ OPTIMIZE COMMAND ============

func optimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize [video-id]",
		Short: "Generate a suggestion for one video immediately",
		Long: `Runs the generation pipeline for a single video, bypassing the
automation schedule and the age/cooldown filters. The result lands in the
review queue like any scheduled suggestion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			agent := newAgent(ratelimit.NewDefaultLimiter())

			fmt.Printf("Generating suggestion for video %s...\n", args[0])
			row, err := agent.OptimizeNow(ctx, userID, args[0])
			if err != nil {
				return err
			}

			if row.NeedsManualParse() {
				fmt.Println("Provider output was not parseable; raw response queued for manual review.")
			} else {
				fmt.Printf("\nProposed title: %s\n", row.NewTitle)
			}
			fmt.Printf("Queued for review. Run 'tubeseo reviews show %s' to inspect.\n", args[0])
			return nil
		},
	}
}

// ============ AUTOMATION COMMANDS ============

func automationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Manage the automation schedule",
	}

	cmd.AddCommand(automationShowCmd())
	cmd.AddCommand(automationEnableCmd())
	cmd.AddCommand(automationDisableCmd())
	return cmd
}

func automationShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the automation schedule for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			settings, err := repo.GetAutomationSettings(ctx, userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Println("Automation not configured. Run 'tubeseo automation enable' first.")
					return nil
				}
				return err
			}

			fmt.Printf("Active:    %v\n", settings.Active)
			fmt.Printf("Frequency: every %d hours\n", settings.FrequencyHours)
			if settings.LastRun != nil {
				fmt.Printf("Last run:  %s\n", settings.LastRun.Format(time.RFC1123))
			}
			if settings.NextRun != nil {
				fmt.Printf("Next run:  %s\n", settings.NextRun.Format(time.RFC1123))
			}
			if settings.Persona != "" {
				fmt.Printf("Persona:   %s\n", settings.Persona)
			}
			return nil
		},
	}
}

func automationEnableCmd() *cobra.Command {
	var (
		frequency int
		persona   string
	)

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable scheduled optimization for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			settings, err := repo.GetAutomationSettings(ctx, userID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				settings = &models.AutomationSettings{UserID: userID}
			}

			settings.Active = true
			if frequency > 0 {
				settings.FrequencyHours = frequency
			}
			if settings.FrequencyHours <= 0 {
				settings.FrequencyHours = 24
			}
			if persona != "" {
				settings.Persona = persona
			}

			if err := repo.SaveAutomationSettings(ctx, settings); err != nil {
				return err
			}

			fmt.Printf("Automation enabled: every %d hours. The next scheduler tick will pick this user up.\n", settings.FrequencyHours)
			return nil
		},
	}

	cmd.Flags().IntVar(&frequency, "frequency", 0, "Hours between optimization cycles (default 24)")
	cmd.Flags().StringVar(&persona, "persona", "", "Channel style description fed into prompts")
	return cmd
}

func automationDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable scheduled optimization for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			settings, err := repo.GetAutomationSettings(ctx, userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Println("Automation was not configured.")
					return nil
				}
				return err
			}

			settings.Disable()
			if err := repo.SaveAutomationSettings(ctx, settings); err != nil {
				return err
			}

			fmt.Println("Automation disabled.")
			return nil
		},
	}
}

// ============ HISTORY COMMAND ============

func historyCmd() *cobra.Command {
	var (
		videoID string
		action  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the optimization history ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			filter := storage.DefaultHistoryFilter()
			if videoID != "" {
				filter.VideoID = &videoID
			}
			if action != "" {
				filter.ActionTaken = &action
			}
			if limit > 0 {
				filter.Limit = limit
			}

			entries, err := history.New(repo, log).List(ctx, userID, filter)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No history entries.")
				return nil
			}

			fmt.Printf("\n=== History (%d) ===\n\n", len(entries))
			for _, e := range entries {
				fmt.Printf("%s  %-10s %s  %s\n",
					e.CreatedAt.Format("2006-01-02 15:04"),
					e.ActionTaken,
					e.VideoID,
					truncate(e.VideoTitle, 60))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "Filter by video ID")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action (analyzed, optimized)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show")
	return cmd
}

// ============ KEYS COMMANDS ============

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage generation provider API keys",
	}

	cmd.AddCommand(keysSetCmd())
	cmd.AddCommand(keysListCmd())
	cmd.AddCommand(keysDeleteCmd())
	return cmd
}

func keysSetCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "set [provider] [api-key]",
		Short: "Store an API key for a generation provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			provider := strings.ToLower(args[0])
			switch provider {
			case models.ProviderAnthropic, models.ProviderGemini, models.ProviderOpenAI, models.ProviderHuggingFace:
			case models.ProviderPollinations:
				return fmt.Errorf("%s needs no API key", provider)
			default:
				return fmt.Errorf("unknown provider %q", provider)
			}

			cred := &models.ProviderCredential{
				UserID:   userID,
				Provider: provider,
				APIKey:   args[1],
				Model:    model,
			}
			if err := repo.SaveCredential(ctx, cred); err != nil {
				return err
			}

			fmt.Printf("Key stored for %s.\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Override the provider's default model")
	return cmd
}

func keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured providers (keys are never shown)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			creds, err := repo.GetCredentials(ctx, userID)
			if err != nil {
				return err
			}

			if len(creds) == 0 {
				fmt.Println("No provider keys configured. Image generation will fall back to the free provider.")
				return nil
			}

			for _, c := range creds {
				model := c.Model
				if model == "" {
					model = "(default)"
				}
				fmt.Printf("%-14s model: %s  updated: %s\n", c.Provider, model, c.UpdatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func keysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [provider]",
		Short: "Remove a provider's API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			if err := repo.DeleteCredential(ctx, userID, strings.ToLower(args[0])); err != nil {
				return err
			}

			fmt.Printf("Key removed for %s.\n", args[0])
			return nil
		},
	}
}

// ============ OAUTH COMMANDS ============

func oauthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "YouTube account authorization",
	}

	cmd.AddCommand(oauthLoginCmd())
	cmd.AddCommand(oauthStatusCmd())
	return cmd
}

func oauthLoginCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Connect the user's YouTube account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			factory := newFactory(ratelimit.NewDefaultLimiter())

			fmt.Printf("Starting OAuth server on port %d...\n", port)
			authURL, err := factory.Authorize(ctx, userID, port)
			if authURL != "" {
				fmt.Printf("\nPlease open this URL in your browser:\n%s\n", authURL)
			}
			if err != nil {
				return fmt.Errorf("OAuth failed: %w", err)
			}

			fmt.Println("\nAuthentication successful!")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port for OAuth callback server")
	return cmd
}

func oauthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the stored YouTube token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			ctx := context.Background()

			token, err := repo.GetToken(ctx, userID)
			if err != nil {
				fmt.Println("Status: Not authenticated")
				fmt.Println("Run 'tubeseo oauth login' to connect your YouTube account")
				return nil
			}

			valid := token.ExpiresAt.After(time.Now())
			fmt.Printf("Status:     %s\n", map[bool]string{true: "Valid", false: "Expired (will refresh automatically)"}[valid])
			fmt.Printf("Expires at: %s\n", token.ExpiresAt.Format(time.RFC1123))
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package youtube

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"

	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

// Scopes required for metadata updates and analytics reads.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.force-ssl",
	"https://www.googleapis.com/auth/yt-analytics.readonly",
}

// Config holds the OAuth app credentials shared by all users.
type Config struct {
	ClientID     string
	ClientSecret string
}

// Factory builds per-user YouTube clients from tokens in the store.
type Factory struct {
	oauthConfig *oauth2.Config
	repo        storage.Repository
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewFactory creates a client factory.
func NewFactory(cfg Config, repo storage.Repository, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Factory {
	return &Factory{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
		repo:        repo,
		rateLimiter: limiter,
		log:         log.WithComponent("youtube"),
	}
}

// ForUser returns an authenticated client for the user, refreshing and
// persisting the stored token as needed. A missing or unusable token yields
// a platform.AuthError.
func (f *Factory) ForUser(ctx context.Context, userID string) (platform.Client, error) {
	stored, err := f.repo.GetToken(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &platform.AuthError{UserID: userID, Err: fmt.Errorf("no stored token")}
		}
		return nil, err
	}

	source := &persistingTokenSource{
		userID: userID,
		repo:   f.repo,
		stored: stored,
		source: f.oauthConfig.TokenSource(ctx, stored.ToOAuth2Token()),
		log:    f.log,
	}

	// Probe the token once so auth failures surface here, not mid-call.
	if _, err := source.Token(); err != nil {
		return nil, &platform.AuthError{UserID: userID, Err: err}
	}

	httpClient := oauth2.NewClient(ctx, source)

	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	analytics, err := youtubeanalytics.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics service: %w", err)
	}

	return &Client{
		userID:      userID,
		service:     service,
		analytics:   analytics,
		rateLimiter: f.rateLimiter,
		log:         f.log.WithUserID(userID),
	}, nil
}

// persistingTokenSource writes refreshed tokens back to the store so the
// next cycle starts from a valid access token.
type persistingTokenSource struct {
	userID string
	repo   storage.Repository
	stored *models.OAuthToken
	source oauth2.TokenSource
	mu     sync.Mutex
	log    *logger.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.stored.AccessToken {
		s.stored.FromOAuth2Token(token)
		if err := s.repo.SaveToken(context.Background(), s.stored); err != nil {
			s.log.Warn().Err(err).Str("user_id", s.userID).Msg("Failed to persist refreshed token")
		}
	}
	return token, nil
}

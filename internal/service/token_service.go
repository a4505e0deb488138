package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenService exchanges stored refresh tokens for new access tokens via
// the provider's OAuth endpoint. Refresh tokens rotate: both halves of the
// pair are replaced on success.
type TokenService struct {
	store         Datastore
	publisher     Publisher
	httpClient    *http.Client
	tokenURL      string
	clientSecrets map[models.Environment]string
	logger        *zap.Logger
}

// NewTokenService creates a new token service
func NewTokenService(store Datastore, publisher Publisher, tokenURL string, clientSecrets map[models.Environment]string) *TokenService {
	return &TokenService{
		store:         store,
		publisher:     publisher,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		tokenURL:      tokenURL,
		clientSecrets: clientSecrets,
		logger:        util.GetLogger(),
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshOAuthTokens exchanges the stored refresh token for a new pair and
// persists both. A non-2xx response from the provider surfaces as a generic
// error with no retry; the caller is expected to prompt re-authentication.
func (ts *TokenService) RefreshOAuthTokens(ctx context.Context, creatorID string, env models.Environment) error {
	ctx, span := util.StartSpan(ctx, "TokenService.RefreshOAuthTokens")
	defer span.End()

	if !env.Valid() {
		return fmt.Errorf("unknown environment: %s", env)
	}

	cred, err := ts.store.GetCredential(ctx, creatorID, env)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return fmt.Errorf("no %s refresh token stored for creator %s", env, creatorID)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_secret", ts.clientSecrets[env])

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		util.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		util.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	cred.AccessToken = tokens.AccessToken
	cred.RefreshToken = tokens.RefreshToken
	if err := ts.store.UpsertCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	util.TokenRefreshesTotal.Inc()
	ts.logger.Info("OAuth tokens refreshed",
		zap.String("creator_id", creatorID),
		zap.String("environment", string(env)))

	event := &models.TokenRefreshedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTokenRefreshed,
			Timestamp: time.Now(),
		},
		CreatorID:   creatorID,
		Environment: env,
	}
	if err := ts.publisher.PublishTokenRefreshed(ctx, event); err != nil {
		ts.logger.Error("Failed to publish TokenRefreshed event", zap.Error(err))
	}

	return nil
}

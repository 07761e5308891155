package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"projectboard/internal/cache"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UIAbilities is granted to tokens issued from the board UI.
var UIAbilities = []string{"project-board:*"}

const tokenSecretBytes = 32

// IssuedToken is the result of Issue. Plaintext is never persisted.
type IssuedToken struct {
	Token      *models.APIToken `json:"token"`
	Plaintext  string           `json:"-"`
	DisplayKey string           `json:"display_key,omitempty"`
}

// IssueTokenInput describes a new API token.
type IssueTokenInput struct {
	Name      string
	Abilities []string
	ExpiresAt *time.Time
}

// TokenAuthority issues, validates and revokes API bearer tokens.
type TokenAuthority struct {
	store      *repository.Store
	rdb        *redis.Client
	displayTTL time.Duration
	now        func() time.Time
}

// NewTokenAuthority creates a TokenAuthority. rdb holds one-time display entries;
// without it tokens can only be shown in the issuing response.
func NewTokenAuthority(store *repository.Store, rdb *redis.Client, displayTTL time.Duration) *TokenAuthority {
	if displayTTL <= 0 {
		displayTTL = 10 * time.Minute
	}
	return &TokenAuthority{store: store, rdb: rdb, displayTTL: displayTTL, now: time.Now}
}

// HashToken returns the hex sha256 digest stored for a plaintext token.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Issue creates a token for user and stages the plaintext for one display.
func (a *TokenAuthority) Issue(ctx context.Context, user *models.User, in IssueTokenInput) (*IssuedToken, error) {
	if user == nil || user.ID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	name := strings.TrimSpace(in.Name)
	if err := invalid(validation.ValidateName("name", name)); err != nil {
		return nil, err
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(a.now()) {
		return nil, models.NewValidationError("expires_at must be in the future")
	}
	abilities := models.StringList(in.Abilities)
	if len(abilities) == 0 {
		abilities = models.StringList{models.AbilityAll}
	}

	plaintext, err := newSecret()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	token := &models.APIToken{
		UserID:    user.ID,
		Name:      name,
		TokenHash: HashToken(plaintext),
		Abilities: abilities,
		ExpiresAt: in.ExpiresAt,
	}
	if err := a.store.Tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	issued := &IssuedToken{Token: token, Plaintext: plaintext}
	if a.rdb != nil {
		key := uuid.NewString()
		if err := a.rdb.Set(ctx, cache.TokenDisplayKey(key), plaintext, a.displayTTL).Err(); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "token display staging failed",
				slog.Uint64("token_id", uint64(token.ID)),
				slog.String("error", err.Error()),
			)
		} else {
			issued.DisplayKey = key
		}
	}
	return issued, nil
}

// Reveal returns the staged plaintext once. Later reads fail with TokenDisplayExpired.
func (a *TokenAuthority) Reveal(ctx context.Context, displayKey string) (string, error) {
	if a.rdb == nil || displayKey == "" {
		return "", models.NewTokenDisplayExpiredError()
	}
	plaintext, err := a.rdb.GetDel(ctx, cache.TokenDisplayKey(displayKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", models.NewTokenDisplayExpiredError()
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return plaintext, nil
}

// Authenticate resolves a bearer token and checks ability. An empty ability only checks validity.
// The returned token carries its owner in User.
func (a *TokenAuthority) Authenticate(ctx context.Context, bearer, ability string) (*models.APIToken, error) {
	outcome := "ok"
	defer func() { observability.TokenAuthentications.WithLabelValues(outcome).Inc() }()

	if bearer == "" {
		outcome = "missing"
		return nil, models.NewUnauthorizedError("API token required")
	}
	token, err := a.store.Tokens.FindByHash(ctx, HashToken(bearer))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			outcome = "invalid"
			return nil, models.NewUnauthorizedError("Invalid API token")
		}
		outcome = "error"
		return nil, err
	}
	if token.User == nil {
		outcome = "invalid"
		return nil, models.NewUnauthorizedError("Invalid API token")
	}

	now := a.now()
	if token.IsExpired(now) {
		outcome = "expired"
		return nil, models.NewTokenExpiredError()
	}
	if err := CheckAbility(token, ability); err != nil {
		outcome = "forbidden"
		return nil, err
	}

	if err := a.store.Tokens.TouchLastUsed(ctx, token.ID, now); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "token last_used_at update failed",
			slog.Uint64("token_id", uint64(token.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		token.LastUsedAt = &now
	}
	return token, nil
}

// CheckAbility fails with Forbidden unless token grants ability. An empty ability passes.
func CheckAbility(token *models.APIToken, ability string) error {
	if ability == "" || token.Can(ability) {
		return nil
	}
	return models.NewForbiddenError(fmt.Sprintf("Token does not have the '%s' ability", ability))
}

// List returns the user's tokens, newest first.
func (a *TokenAuthority) List(ctx context.Context, user *models.User) ([]models.APIToken, error) {
	return a.store.Tokens.ListByUser(ctx, user.PrincipalID())
}

// Revoke deletes one of the user's tokens.
func (a *TokenAuthority) Revoke(ctx context.Context, user *models.User, tokenID uint) error {
	return a.store.Tokens.Delete(ctx, user.PrincipalID(), tokenID)
}

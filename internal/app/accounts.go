package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/user"
	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// ErrAuthDisabled is returned by token operations when no signing secret is configured.
var ErrAuthDisabled = errors.New("authentication is not configured")

// Session is the login response: a token pair and the account it belongs to.
type Session struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   user.View       `json:"user"`
}

// Accounts implements registration, login and token refresh on top of the users service.
type Accounts struct {
	users  *UserService
	tokens *auth.HMACTokens
	log    logger.Logger
	now    func() time.Time
}

func NewAccounts(users *UserService, tokens *auth.HMACTokens, log logger.Logger) *Accounts {
	if log == nil {
		log = logger.Nop()
	}
	return &Accounts{
		users:  users,
		tokens: tokens,
		log:    log.With("component", "accounts"),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Enabled reports whether tokens can be issued.
func (a *Accounts) Enabled() bool {
	return a.tokens != nil
}

// Register creates an account. Username and email must be unused.
func (a *Accounts) Register(ctx context.Context, dto user.Register) (*user.View, error) {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.Email = strings.TrimSpace(dto.Email)

	repo := a.users.Repository()
	for _, field := range []struct{ name, value string }{
		{"username", dto.Username},
		{"email", dto.Email},
	} {
		existing, err := repo.FindOne(ctx, document.Filter{field.name: field.value})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, controller.NewConflictError(field.name+" is already taken",
				map[string]interface{}{"field": field.name})
		}
	}

	created, err := a.users.Create(ctx, dto)
	if err != nil {
		return nil, err
	}
	a.log.WithContext(ctx).Info("account registered", "user_id", created.ID)
	return created, nil
}

// Login checks credentials, records the login time and issues a token pair. Unknown
// usernames and wrong passwords fail alike with user.ErrInvalidCredentials.
func (a *Accounts) Login(ctx context.Context, dto user.Login) (*Session, error) {
	if a.tokens == nil {
		return nil, ErrAuthDisabled
	}
	repo := a.users.Repository()
	account, err := repo.FindOne(ctx, document.Filter{"username": strings.TrimSpace(dto.Username)})
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, user.ErrInvalidCredentials
	}
	if err := user.VerifyPassword(account.Password, dto.Password); err != nil {
		a.log.WithContext(ctx).Warn("login rejected", "user_id", account.ID.Hex())
		return nil, err
	}

	updated, err := repo.UpdateByID(ctx, account.ID.Hex(), document.BuildUpdate(document.Set("last_online", a.now())))
	if err != nil {
		return nil, err
	}

	tokens, err := a.tokens.Issue(updated.ID.Hex(), updated.Username, updated.Roles()...)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &Session{Tokens: tokens, User: user.ToView(*updated)}, nil
}

// Refresh exchanges a refresh token for a new pair. Roles are read again from the stored
// account, so flag changes apply from the next refresh.
func (a *Accounts) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if a.tokens == nil {
		return nil, ErrAuthDisabled
	}
	claims, err := a.tokens.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	account, err := a.users.Repository().FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, document.ErrInvalidIdentifier) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if account == nil {
		return nil, user.ErrInvalidCredentials
	}
	tokens, err := a.tokens.Issue(account.ID.Hex(), account.Username, account.Roles()...)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return tokens, nil
}

// Me returns the account named by the access token claims in ctx.
func (a *Accounts) Me(ctx context.Context) (*user.View, error) {
	claims := auth.GetClaims(ctx)
	if claims == nil {
		return nil, auth.ErrInvalidToken
	}
	view, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, user.ErrInvalidCredentials
	}
	return view, nil
}

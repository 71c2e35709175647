package app

import (
	"errors"
	"net/http"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/user"
	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/authz"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Routes mounts the account endpoints and one CRUD resource per collection under /api.
//
//	POST /api/users/login     {username, password} -> {tokens, user}
//	POST /api/users/register  user.Register -> user.View
//	POST /api/users/refresh   {refresh_token} -> token pair
//	GET  /api/users/me        the authenticated account
//
// The account endpoints exist only when a token issuer is configured. They are mounted
// before the users resource so /me is not taken for an identifier.
func (s *State) Routes(r router.Router) {
	var write, admin []router.MiddlewareFunc
	if s.tokens != nil {
		if s.requireAuthForWrites {
			write = []router.MiddlewareFunc{authz.OptionalAuthenticate(s.tokens), authz.RequireAuthenticatedWrites()}
		}
		admin = []router.MiddlewareFunc{authz.Authenticate(s.tokens), authz.RequireRole(user.RoleSuperuser)}

		h := &accountHandlers{accounts: s.Accounts, state: s}
		g := r.Group("/api/users")
		g.POST("/login", h.login)
		g.POST("/register", h.register)
		g.POST("/refresh", h.refresh)
		g.GET("/me", h.me, authz.Authenticate(s.tokens))
	}

	controller.NewCrudController("anime", s.Anime, s.log).Register(r, "/api/anime", write...)
	controller.NewCrudController("manga", s.Manga, s.log).Register(r, "/api/manga", write...)
	controller.NewCrudController("character", s.Characters, s.log).Register(r, "/api/characters", write...)
	controller.NewCrudController("person", s.People, s.log).Register(r, "/api/people", write...)
	controller.NewCrudController("genre", s.Genres, s.log).Register(r, "/api/genres", write...)
	controller.NewCrudController("producer", s.Producers, s.log).Register(r, "/api/producers", write...)
	controller.NewCrudController("magazine", s.Magazines, s.log).Register(r, "/api/magazines", write...)
	controller.NewCrudController("club", s.Clubs, s.log).Register(r, "/api/clubs", write...)
	controller.NewCrudController("anime review", s.AnimeReviews, s.log).Register(r, "/api/reviews/anime", write...)
	controller.NewCrudController("manga review", s.MangaReviews, s.log).Register(r, "/api/reviews/manga", write...)
	// Every users route needs a superuser once auth is on, and password hashes stay out of queries.
	controller.NewCrudController("user", s.Users, s.log).
		GuardReads(admin...).
		HideFields("password").
		Register(r, "/api/users", admin...)
}

type accountHandlers struct {
	accounts *Accounts
	state    *State
}

func (h *accountHandlers) login(c router.Context) error {
	var dto user.Login
	if err := h.decode(c, &dto); err != nil {
		return h.fail(c, err)
	}
	session, err := h.accounts.Login(c.Request().Context(), dto)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, session)
}

func (h *accountHandlers) register(c router.Context) error {
	var dto user.Register
	if err := h.decode(c, &dto); err != nil {
		return h.fail(c, err)
	}
	created, err := h.accounts.Register(c.Request().Context(), dto)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Created(c, created)
}

func (h *accountHandlers) refresh(c router.Context) error {
	var dto user.Refresh
	if err := h.decode(c, &dto); err != nil {
		return h.fail(c, err)
	}
	tokens, err := h.accounts.Refresh(c.Request().Context(), dto.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, tokens)
}

func (h *accountHandlers) me(c router.Context) error {
	view, err := h.accounts.Me(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return controller.Success(c, view)
}

func (h *accountHandlers) decode(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		return controller.NewValidationErrorWithCode("validation.invalid_body", "request body is not valid JSON",
			map[string]interface{}{"reason": err.Error()})
	}
	return controller.ValidateDTO(dto)
}

// fail maps credential and token failures to 401 and leaves the rest to controller.MapError.
func (h *accountHandlers) fail(c router.Context, err error) error {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		err = controller.NewUnauthorizedError("invalid username or password")
	case errors.Is(err, auth.ErrExpiredToken):
		err = controller.NewUnauthorizedError("token expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		err = controller.NewUnauthorizedError("invalid token")
	case errors.Is(err, ErrAuthDisabled):
		err = controller.NewNotFoundError("authentication is not configured")
	}

	ctx := c.Request().Context()
	status, body := controller.MapError(ctx, err)
	if status >= http.StatusInternalServerError {
		h.state.log.WithContext(ctx).Error("account request failed",
			"path", c.Request().URL.Path,
			"code", body.Code,
			"error", err,
		)
	}
	return c.JSON(status, body)
}

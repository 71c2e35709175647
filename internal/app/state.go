// Package app wires the catalog entities to storage, the CRUD services and the HTTP routes.
package app

import (
	"context"
	"fmt"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/anime"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/character"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/club"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/genre"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/magazine"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/manga"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/person"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/producer"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/review"
	"github.com/ponzu-dev/ponzu-back/internal/catalog/user"
	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/crud"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

type (
	AnimeService     = crud.Service[anime.Anime, anime.View, anime.Create, anime.Patch]
	MangaService     = crud.Service[manga.Manga, manga.View, manga.Create, manga.Patch]
	CharacterService = crud.Service[character.Character, character.View, character.Create, character.Patch]
	PersonService    = crud.Service[person.Person, person.View, person.Create, person.Patch]
	GenreService     = crud.Service[genre.Genre, genre.View, genre.Create, genre.Patch]
	ProducerService  = crud.Service[producer.Producer, producer.View, producer.Create, producer.Patch]
	MagazineService  = crud.Service[magazine.Magazine, magazine.View, magazine.Create, magazine.Patch]
	ClubService      = crud.Service[club.Club, club.View, club.Create, club.Patch]
	ReviewService    = crud.Service[review.Review, review.View, review.Create, review.Patch]
	UserService      = crud.Service[user.User, user.View, user.Register, user.Patch]
)

// Options tunes NewState.
type Options struct {
	CountMode document.CountMode
	Logger    logger.Logger
	// Tokens enables the login endpoints and bearer authentication. Nil disables both.
	Tokens *auth.HMACTokens
	// RequireAuthForWrites demands a bearer token on every write route.
	RequireAuthForWrites bool
}

// State holds one service per collection. It is built once and shared read-only by all
// handlers.
type State struct {
	Anime        *AnimeService
	Manga        *MangaService
	Characters   *CharacterService
	People       *PersonService
	Genres       *GenreService
	Producers    *ProducerService
	Magazines    *MagazineService
	Clubs        *ClubService
	AnimeReviews *ReviewService
	MangaReviews *ReviewService
	Users        *UserService
	Accounts     *Accounts

	tokens               *auth.HMACTokens
	requireAuthForWrites bool
	log                  logger.Logger
}

// NewState binds every collection to executor.
func NewState(executor document.Executor, opts Options) (*State, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.CountMode == "" {
		opts.CountMode = document.CountEstimated
	}
	if opts.RequireAuthForWrites && opts.Tokens == nil {
		return nil, fmt.Errorf("requiring auth for writes needs a token issuer")
	}

	s := &State{
		tokens:               opts.Tokens,
		requireAuthForWrites: opts.RequireAuthForWrites,
		log:                  opts.Logger,
	}
	b := binder{executor: executor, opts: opts}

	s.Anime = bind(&b, anime.Collection, anime.ToView, func(*AnimeService) {})
	s.Manga = bind(&b, manga.Collection, manga.ToView, func(*MangaService) {})
	s.Characters = bind(&b, character.Collection, character.ToView, func(*CharacterService) {})
	s.People = bind(&b, person.Collection, person.ToView, func(*PersonService) {})
	s.Genres = bind(&b, genre.Collection, genre.ToView, func(*GenreService) {})
	s.Producers = bind(&b, producer.Collection, producer.ToView, func(*ProducerService) {})
	s.Magazines = bind(&b, magazine.Collection, magazine.ToView, func(*MagazineService) {})
	s.Clubs = bind(&b, club.Collection, club.ToView, func(*ClubService) {})
	s.AnimeReviews = bind(&b, review.AnimeCollection, review.ToView, func(*ReviewService) {})
	s.MangaReviews = bind(&b, review.MangaCollection, review.ToView, func(*ReviewService) {})
	s.Users = bind(&b, user.Collection, user.ToView, func(svc *UserService) {
		svc.BeforeCreate(user.HashRegister).BeforeUpdate(user.HashPatch)
	})
	if b.err != nil {
		return nil, b.err
	}

	s.Accounts = NewAccounts(s.Users, opts.Tokens, opts.Logger)
	return s, nil
}

// EnsureIndexes creates the unique indexes that back account identity: no two users share a
// username or an email, whichever route writes them.
func (s *State) EnsureIndexes(ctx context.Context) error {
	for _, field := range []string{"username", "email"} {
		if err := s.Users.Repository().EnsureUniqueIndex(ctx, field); err != nil {
			return fmt.Errorf("ensure %s.%s index: %w", user.Collection, field, err)
		}
	}
	return nil
}

// binder keeps the first construction error so NewState can bind every collection in
// sequence and check once.
type binder struct {
	executor document.Executor
	opts     Options
	err      error
}

func bind[E any, R any, C crud.Creatable[E], U crud.Updatable](b *binder, collection string, toRead func(E) R, configure func(*crud.Service[E, R, C, U])) *crud.Service[E, R, C, U] {
	if b.err != nil {
		return nil
	}
	log := b.opts.Logger.With("collection", collection)
	repo, err := document.NewRepository[E](b.executor, collection,
		document.WithCountMode(b.opts.CountMode),
		document.WithLogger(log),
	)
	if err != nil {
		b.err = fmt.Errorf("bind %s: %w", collection, err)
		return nil
	}
	svc, err := crud.NewService[E, R, C, U](repo, toRead, log)
	if err != nil {
		b.err = fmt.Errorf("bind %s: %w", collection, err)
		return nil
	}
	configure(svc)
	return svc
}

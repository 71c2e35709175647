// Package review defines user reviews of anime and manga entries. Both kinds share one
// shape and live in separate collections.
package review

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collections holding each kind of review.
const (
	AnimeCollection = "anime_reviews"
	MangaCollection = "manga_reviews"
)

// Accepted score range, inclusive.
const (
	MinScore = 1
	MaxScore = 10
)

// Reactions counts reader reactions by kind.
type Reactions struct {
	Overall     int64 `bson:"overall" json:"overall"`
	Nice        int64 `bson:"nice" json:"nice"`
	LoveIt      int64 `bson:"love_it" json:"love_it"`
	Funny       int64 `bson:"funny" json:"funny"`
	Confusing   int64 `bson:"confusing" json:"confusing"`
	Informative int64 `bson:"informative" json:"informative"`
	WellWritten int64 `bson:"well_written" json:"well_written"`
	Creative    int64 `bson:"creative" json:"creative"`
}

// Review is the stored record. Entry and User hold hex ids of the reviewed entry and
// its author.
type Review struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	MalID           int64              `bson:"mal_id"`
	URL             string             `bson:"url"`
	Type            string             `bson:"type"`
	Reactions       Reactions          `bson:"reactions"`
	Date            time.Time          `bson:"date"`
	Review          string             `bson:"review"`
	Score           int                `bson:"score"`
	Tags            []string           `bson:"tags"`
	IsSpoiler       bool               `bson:"is_spoiler"`
	IsPreliminary   bool               `bson:"is_preliminary"`
	EpisodesWatched *int64             `bson:"episodes_watched,omitempty"`
	Entry           string             `bson:"entry"`
	User            string             `bson:"user"`
}

// View is the JSON form of a Review.
type View struct {
	ID              string    `json:"id"`
	MalID           int64     `json:"mal_id"`
	URL             string    `json:"url"`
	Type            string    `json:"type"`
	Reactions       Reactions `json:"reactions"`
	Date            time.Time `json:"date"`
	Review          string    `json:"review"`
	Score           int       `json:"score"`
	Tags            []string  `json:"tags"`
	IsSpoiler       bool      `json:"is_spoiler"`
	IsPreliminary   bool      `json:"is_preliminary"`
	EpisodesWatched *int64    `json:"episodes_watched,omitempty"`
	Entry           string    `json:"entry"`
	User            string    `json:"user"`
}

// ToView converts a stored review for responses.
func ToView(r Review) View {
	return View{
		ID:              document.FormatID(r.ID),
		MalID:           r.MalID,
		URL:             r.URL,
		Type:            r.Type,
		Reactions:       r.Reactions,
		Date:            r.Date,
		Review:          r.Review,
		Score:           r.Score,
		Tags:            r.Tags,
		IsSpoiler:       r.IsSpoiler,
		IsPreliminary:   r.IsPreliminary,
		EpisodesWatched: r.EpisodesWatched,
		Entry:           r.Entry,
		User:            r.User,
	}
}

// Create is the body of POST. Review, Score, Entry and User are required.
type Create struct {
	MalID           int64     `json:"mal_id"`
	URL             string    `json:"url"`
	Type            string    `json:"type"`
	Reactions       Reactions `json:"reactions"`
	Date            time.Time `json:"date"`
	Review          string    `json:"review"`
	Score           int       `json:"score"`
	Tags            []string  `json:"tags"`
	IsSpoiler       bool      `json:"is_spoiler"`
	IsPreliminary   bool      `json:"is_preliminary"`
	EpisodesWatched *int64    `json:"episodes_watched"`
	Entry           string    `json:"entry"`
	User            string    `json:"user"`
}

// Validate reports every invalid field at once.
func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(c.Review) == "" {
		errs.Add("review", "is required")
	}
	validateScore(errs, c.Score)
	validateRef(errs, "entry", c.Entry)
	validateRef(errs, "user", c.User)
	validateEpisodes(errs, c.EpisodesWatched)
	return errs.Err()
}

// Entity defaults a missing date to the current time.
func (c Create) Entity() Review {
	date := c.Date
	if date.IsZero() {
		date = time.Now().UTC().Truncate(time.Millisecond)
	}
	return Review{
		MalID:           c.MalID,
		URL:             c.URL,
		Type:            c.Type,
		Reactions:       c.Reactions,
		Date:            date,
		Review:          c.Review,
		Score:           c.Score,
		Tags:            c.Tags,
		IsSpoiler:       c.IsSpoiler,
		IsPreliminary:   c.IsPreliminary,
		EpisodesWatched: c.EpisodesWatched,
		Entry:           c.Entry,
		User:            c.User,
	}
}

// Patch is a partial update; nil fields are left as stored.
type Patch struct {
	MalID           *int64     `json:"mal_id"`
	URL             *string    `json:"url"`
	Type            *string    `json:"type"`
	Reactions       *Reactions `json:"reactions"`
	Date            *time.Time `json:"date"`
	Review          *string    `json:"review"`
	Score           *int       `json:"score"`
	Tags            *[]string  `json:"tags"`
	IsSpoiler       *bool      `json:"is_spoiler"`
	IsPreliminary   *bool      `json:"is_preliminary"`
	EpisodesWatched *int64     `json:"episodes_watched"`
	Entry           *string    `json:"entry"`
	User            *string    `json:"user"`
}

// Validate applies the Create rules to the fields that are present.
func (p Patch) Validate() error {
	errs := controller.FieldErrors{}
	if p.Review != nil && strings.TrimSpace(*p.Review) == "" {
		errs.Add("review", "must not be empty")
	}
	if p.Score != nil {
		validateScore(errs, *p.Score)
	}
	if p.Entry != nil {
		validateRef(errs, "entry", *p.Entry)
	}
	if p.User != nil {
		validateRef(errs, "user", *p.User)
	}
	validateEpisodes(errs, p.EpisodesWatched)
	return errs.Err()
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("url", p.URL),
		document.Opt("type", p.Type),
		document.Opt("reactions", p.Reactions),
		document.Opt("date", p.Date),
		document.Opt("review", p.Review),
		document.Opt("score", p.Score),
		document.Opt("tags", p.Tags),
		document.Opt("is_spoiler", p.IsSpoiler),
		document.Opt("is_preliminary", p.IsPreliminary),
		document.Opt("episodes_watched", p.EpisodesWatched),
		document.Opt("entry", p.Entry),
		document.Opt("user", p.User),
	)
}

func validateScore(errs controller.FieldErrors, score int) {
	if score < MinScore || score > MaxScore {
		errs.Add("score", "must be between 1 and 10")
	}
}

func validateEpisodes(errs controller.FieldErrors, watched *int64) {
	if watched != nil && *watched < 0 {
		errs.Add("episodes_watched", "must not be negative")
	}
}

func validateRef(errs controller.FieldErrors, field, id string) {
	if id == "" {
		errs.Add(field, "is required")
		return
	}
	if _, err := document.ParseID(id); err != nil {
		errs.Add(field, "must be a valid identifier")
	}
}

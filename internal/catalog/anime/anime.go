// Package anime defines anime entries.
//
// The stored record, the read DTO and the create DTO share the Details block; only the
// identifier differs between them.
package anime

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for anime entries.
const Collection = "anime"

// Details holds every field of an anime entry except its identifier.
type Details struct {
	MalID          int64                `bson:"mal_id" json:"mal_id"`
	Images         media.Images         `bson:"images" json:"images"`
	Trailer        media.Trailer        `bson:"trailer" json:"trailer"`
	Approved       bool                 `bson:"approved" json:"approved"`
	Titles         []media.Title        `bson:"titles" json:"titles"`
	Title          string               `bson:"title" json:"title"`
	TitleEnglish   string               `bson:"title_english" json:"title_english"`
	TitleJapanese  string               `bson:"title_japanese" json:"title_japanese"`
	TitleSynonyms  []string             `bson:"title_synonyms" json:"title_synonyms"`
	Type           string               `bson:"type" json:"type"`
	Source         string               `bson:"source" json:"source"`
	Episodes       *int                 `bson:"episodes,omitempty" json:"episodes"`
	Status         string               `bson:"status" json:"status"`
	Airing         bool                 `bson:"airing" json:"airing"`
	Aired          *media.DateRange     `bson:"aired,omitempty" json:"aired"`
	Duration       string               `bson:"duration" json:"duration"`
	Rating         string               `bson:"rating" json:"rating"`
	ScoredBy       int64                `bson:"scored_by" json:"scored_by"`
	Members        int64                `bson:"members" json:"members"`
	Favorites      int64                `bson:"favorites" json:"favorites"`
	Synopsis       string               `bson:"synopsis" json:"synopsis"`
	Background     string               `bson:"background" json:"background"`
	Season         string               `bson:"season" json:"season"`
	Year           *int                 `bson:"year,omitempty" json:"year"`
	Broadcast      *media.Broadcast     `bson:"broadcast,omitempty" json:"broadcast"`
	Producers      []media.MalEntity    `bson:"producers" json:"producers"`
	Licensors      []media.MalEntity    `bson:"licensors" json:"licensors"`
	Studios        []media.MalEntity    `bson:"studios" json:"studios"`
	Genres         []media.MalEntity    `bson:"genres" json:"genres"`
	ExplicitGenres []media.MalEntity    `bson:"explicit_genres" json:"explicit_genres"`
	Themes         []media.MalEntity    `bson:"themes" json:"themes"`
	Demographics   []media.MalEntity    `bson:"demographics" json:"demographics"`
	Relations      []media.Relation     `bson:"relations" json:"relations"`
	Theme          *media.Theme         `bson:"theme,omitempty" json:"theme"`
	External       []media.ExternalLink `bson:"external" json:"external"`
	Streaming      []media.ExternalLink `bson:"streaming" json:"streaming"`
}

// Anime is the stored record.
type Anime struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Details `bson:",inline"`
}

// View is the read DTO.
type View struct {
	ID string `json:"id"`
	Details
}

// ToView maps a stored entry to its read DTO.
func ToView(a Anime) View {
	return View{ID: document.FormatID(a.ID), Details: a.Details}
}

// Create is the create DTO.
type Create struct {
	Details
}

// Validate reports every invalid field at once.
func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(c.Title) == "" {
		errs.Add("title", "is required")
	}
	if c.Episodes != nil && *c.Episodes < 0 {
		errs.Add("episodes", "must not be negative")
	}
	if c.Year != nil && *c.Year < 0 {
		errs.Add("year", "must not be negative")
	}
	return errs.Err()
}

func (c Create) Entity() Anime {
	return Anime{Details: c.Details}
}

// Patch is the update DTO. Nil fields are left unchanged.
type Patch struct {
	MalID          *int64                `json:"mal_id"`
	Images         *media.Images         `json:"images"`
	Trailer        *media.Trailer        `json:"trailer"`
	Approved       *bool                 `json:"approved"`
	Titles         *[]media.Title        `json:"titles"`
	Title          *string               `json:"title"`
	TitleEnglish   *string               `json:"title_english"`
	TitleJapanese  *string               `json:"title_japanese"`
	TitleSynonyms  *[]string             `json:"title_synonyms"`
	Type           *string               `json:"type"`
	Source         *string               `json:"source"`
	Episodes       *int                  `json:"episodes"`
	Status         *string               `json:"status"`
	Airing         *bool                 `json:"airing"`
	Aired          *media.DateRange      `json:"aired"`
	Duration       *string               `json:"duration"`
	Rating         *string               `json:"rating"`
	ScoredBy       *int64                `json:"scored_by"`
	Members        *int64                `json:"members"`
	Favorites      *int64                `json:"favorites"`
	Synopsis       *string               `json:"synopsis"`
	Background     *string               `json:"background"`
	Season         *string               `json:"season"`
	Year           *int                  `json:"year"`
	Broadcast      *media.Broadcast      `json:"broadcast"`
	Producers      *[]media.MalEntity    `json:"producers"`
	Licensors      *[]media.MalEntity    `json:"licensors"`
	Studios        *[]media.MalEntity    `json:"studios"`
	Genres         *[]media.MalEntity    `json:"genres"`
	ExplicitGenres *[]media.MalEntity    `json:"explicit_genres"`
	Themes         *[]media.MalEntity    `json:"themes"`
	Demographics   *[]media.MalEntity    `json:"demographics"`
	Relations      *[]media.Relation     `json:"relations"`
	Theme          *media.Theme          `json:"theme"`
	External       *[]media.ExternalLink `json:"external"`
	Streaming      *[]media.ExternalLink `json:"streaming"`
}

// Validate checks the fields that are present.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return controller.FieldErrors{"title": "must not be empty"}
	}
	return nil
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("images", p.Images),
		document.Opt("trailer", p.Trailer),
		document.Opt("approved", p.Approved),
		document.Opt("titles", p.Titles),
		document.Opt("title", p.Title),
		document.Opt("title_english", p.TitleEnglish),
		document.Opt("title_japanese", p.TitleJapanese),
		document.Opt("title_synonyms", p.TitleSynonyms),
		document.Opt("type", p.Type),
		document.Opt("source", p.Source),
		document.Opt("episodes", p.Episodes),
		document.Opt("status", p.Status),
		document.Opt("airing", p.Airing),
		document.Opt("aired", p.Aired),
		document.Opt("duration", p.Duration),
		document.Opt("rating", p.Rating),
		document.Opt("scored_by", p.ScoredBy),
		document.Opt("members", p.Members),
		document.Opt("favorites", p.Favorites),
		document.Opt("synopsis", p.Synopsis),
		document.Opt("background", p.Background),
		document.Opt("season", p.Season),
		document.Opt("year", p.Year),
		document.Opt("broadcast", p.Broadcast),
		document.Opt("producers", p.Producers),
		document.Opt("licensors", p.Licensors),
		document.Opt("studios", p.Studios),
		document.Opt("genres", p.Genres),
		document.Opt("explicit_genres", p.ExplicitGenres),
		document.Opt("themes", p.Themes),
		document.Opt("demographics", p.Demographics),
		document.Opt("relations", p.Relations),
		document.Opt("theme", p.Theme),
		document.Opt("external", p.External),
		document.Opt("streaming", p.Streaming),
	)
}

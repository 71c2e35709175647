// Package manga defines manga entries.
package manga

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for manga entries.
const Collection = "manga"

// Details holds every field of a manga entry except its identifier.
type Details struct {
	MalID          int64                `bson:"mal_id" json:"mal_id"`
	Images         media.Images         `bson:"images" json:"images"`
	Approved       bool                 `bson:"approved" json:"approved"`
	Titles         []media.Title        `bson:"titles" json:"titles"`
	Title          string               `bson:"title" json:"title"`
	TitleEnglish   string               `bson:"title_english" json:"title_english"`
	TitleJapanese  string               `bson:"title_japanese" json:"title_japanese"`
	TitleSynonyms  []string             `bson:"title_synonyms" json:"title_synonyms"`
	Type           string               `bson:"type" json:"type"`
	Chapters       *int                 `bson:"chapters,omitempty" json:"chapters"`
	Volumes        *int                 `bson:"volumes,omitempty" json:"volumes"`
	Status         string               `bson:"status" json:"status"`
	Publishing     bool                 `bson:"publishing" json:"publishing"`
	Published      media.DateRange      `bson:"published" json:"published"`
	ScoredBy       int64                `bson:"scored_by" json:"scored_by"`
	Members        int64                `bson:"members" json:"members"`
	Favorites      int64                `bson:"favorites" json:"favorites"`
	Synopsis       string               `bson:"synopsis" json:"synopsis"`
	Background     string               `bson:"background" json:"background"`
	Authors        []media.MalEntity    `bson:"authors" json:"authors"`
	Serializations []media.MalEntity    `bson:"serializations" json:"serializations"`
	Genres         []media.MalEntity    `bson:"genres" json:"genres"`
	ExplicitGenres []media.MalEntity    `bson:"explicit_genres" json:"explicit_genres"`
	Themes         []media.MalEntity    `bson:"themes" json:"themes"`
	Demographics   []media.MalEntity    `bson:"demographics" json:"demographics"`
	Relations      []media.Relation     `bson:"relations" json:"relations"`
	External       []media.ExternalLink `bson:"external" json:"external"`
}

// Manga is the stored record.
type Manga struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Details `bson:",inline"`
}

// View is the JSON form of a Manga.
type View struct {
	ID string `json:"id"`
	Details
}

// ToView converts a stored entry for responses.
func ToView(m Manga) View {
	return View{ID: document.FormatID(m.ID), Details: m.Details}
}

// Create is the body of POST. Title is required; chapter and volume counts must not be negative.
type Create struct {
	Details
}

func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(c.Title) == "" {
		errs.Add("title", "is required")
	}
	if c.Chapters != nil && *c.Chapters < 0 {
		errs.Add("chapters", "must not be negative")
	}
	if c.Volumes != nil && *c.Volumes < 0 {
		errs.Add("volumes", "must not be negative")
	}
	return errs.Err()
}

func (c Create) Entity() Manga {
	return Manga{Details: c.Details}
}

// Patch is a partial update; nil fields are left as stored.
type Patch struct {
	MalID          *int64                `json:"mal_id"`
	Images         *media.Images         `json:"images"`
	Approved       *bool                 `json:"approved"`
	Titles         *[]media.Title        `json:"titles"`
	Title          *string               `json:"title"`
	TitleEnglish   *string               `json:"title_english"`
	TitleJapanese  *string               `json:"title_japanese"`
	TitleSynonyms  *[]string             `json:"title_synonyms"`
	Type           *string               `json:"type"`
	Chapters       *int                  `json:"chapters"`
	Volumes        *int                  `json:"volumes"`
	Status         *string               `json:"status"`
	Publishing     *bool                 `json:"publishing"`
	Published      *media.DateRange      `json:"published"`
	ScoredBy       *int64                `json:"scored_by"`
	Members        *int64                `json:"members"`
	Favorites      *int64                `json:"favorites"`
	Synopsis       *string               `json:"synopsis"`
	Background     *string               `json:"background"`
	Authors        *[]media.MalEntity    `json:"authors"`
	Serializations *[]media.MalEntity    `json:"serializations"`
	Genres         *[]media.MalEntity    `json:"genres"`
	ExplicitGenres *[]media.MalEntity    `json:"explicit_genres"`
	Themes         *[]media.MalEntity    `json:"themes"`
	Demographics   *[]media.MalEntity    `json:"demographics"`
	Relations      *[]media.Relation     `json:"relations"`
	External       *[]media.ExternalLink `json:"external"`
}

// Validate rejects a blank title.
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
		document.Opt("approved", p.Approved),
		document.Opt("titles", p.Titles),
		document.Opt("title", p.Title),
		document.Opt("title_english", p.TitleEnglish),
		document.Opt("title_japanese", p.TitleJapanese),
		document.Opt("title_synonyms", p.TitleSynonyms),
		document.Opt("type", p.Type),
		document.Opt("chapters", p.Chapters),
		document.Opt("volumes", p.Volumes),
		document.Opt("status", p.Status),
		document.Opt("publishing", p.Publishing),
		document.Opt("published", p.Published),
		document.Opt("scored_by", p.ScoredBy),
		document.Opt("members", p.Members),
		document.Opt("favorites", p.Favorites),
		document.Opt("synopsis", p.Synopsis),
		document.Opt("background", p.Background),
		document.Opt("authors", p.Authors),
		document.Opt("serializations", p.Serializations),
		document.Opt("genres", p.Genres),
		document.Opt("explicit_genres", p.ExplicitGenres),
		document.Opt("themes", p.Themes),
		document.Opt("demographics", p.Demographics),
		document.Opt("relations", p.Relations),
		document.Opt("external", p.External),
	)
}

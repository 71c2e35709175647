// Package person defines real people: voice actors, authors and staff.
package person

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for people.
const Collection = "people"

// Position is a staff position on one entry, e.g. "Director" or "Story & Art".
type Position struct {
	Position string `bson:"position" json:"position"`
	Media    string `bson:"media" json:"media"`
}

// VoiceRole is a character voiced in one anime.
type VoiceRole struct {
	Role      string `bson:"role" json:"role"`
	Anime     string `bson:"anime" json:"anime"`
	Character string `bson:"character" json:"character"`
}

// Person is the stored record.
type Person struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	MalID          int64              `bson:"mal_id"`
	URL            string             `bson:"url"`
	WebsiteURL     string             `bson:"website_url"`
	Images         media.Images       `bson:"images"`
	Name           string             `bson:"name"`
	GivenName      string             `bson:"given_name"`
	FamilyName     string             `bson:"family_name"`
	AlternateNames []string           `bson:"alternate_names"`
	Birthday       *time.Time         `bson:"birthday,omitempty"`
	Favorites      int64              `bson:"favorites"`
	About          string             `bson:"about"`
	Anime          []Position         `bson:"anime"`
	Manga          []Position         `bson:"manga"`
	Voices         []VoiceRole        `bson:"voices"`
}

// View is the read DTO.
type View struct {
	ID             string       `json:"id"`
	MalID          int64        `json:"mal_id"`
	URL            string       `json:"url"`
	WebsiteURL     string       `json:"website_url"`
	Images         media.Images `json:"images"`
	Name           string       `json:"name"`
	GivenName      string       `json:"given_name"`
	FamilyName     string       `json:"family_name"`
	AlternateNames []string     `json:"alternate_names"`
	Birthday       *time.Time   `json:"birthday,omitempty"`
	Favorites      int64        `json:"favorites"`
	About          string       `json:"about"`
	Anime          []Position   `json:"anime"`
	Manga          []Position   `json:"manga"`
	Voices         []VoiceRole  `json:"voices"`
}

// ToView maps a stored person to its read DTO.
func ToView(p Person) View {
	return View{
		ID:             document.FormatID(p.ID),
		MalID:          p.MalID,
		URL:            p.URL,
		WebsiteURL:     p.WebsiteURL,
		Images:         p.Images,
		Name:           p.Name,
		GivenName:      p.GivenName,
		FamilyName:     p.FamilyName,
		AlternateNames: p.AlternateNames,
		Birthday:       p.Birthday,
		Favorites:      p.Favorites,
		About:          p.About,
		Anime:          p.Anime,
		Manga:          p.Manga,
		Voices:         p.Voices,
	}
}

// Create is the create DTO.
type Create struct {
	MalID          int64        `json:"mal_id"`
	URL            string       `json:"url"`
	WebsiteURL     string       `json:"website_url"`
	Images         media.Images `json:"images"`
	Name           string       `json:"name" validate:"required"`
	GivenName      string       `json:"given_name"`
	FamilyName     string       `json:"family_name"`
	AlternateNames []string     `json:"alternate_names"`
	Birthday       *time.Time   `json:"birthday"`
	Favorites      int64        `json:"favorites"`
	About          string       `json:"about"`
	Anime          []Position   `json:"anime"`
	Manga          []Position   `json:"manga"`
	Voices         []VoiceRole  `json:"voices"`
}

func (c Create) Entity() Person {
	return Person{
		MalID:          c.MalID,
		URL:            c.URL,
		WebsiteURL:     c.WebsiteURL,
		Images:         c.Images,
		Name:           c.Name,
		GivenName:      c.GivenName,
		FamilyName:     c.FamilyName,
		AlternateNames: c.AlternateNames,
		Birthday:       c.Birthday,
		Favorites:      c.Favorites,
		About:          c.About,
		Anime:          c.Anime,
		Manga:          c.Manga,
		Voices:         c.Voices,
	}
}

// Patch is the update DTO. Nil fields are left unchanged.
type Patch struct {
	MalID          *int64        `json:"mal_id"`
	URL            *string       `json:"url"`
	WebsiteURL     *string       `json:"website_url"`
	Images         *media.Images `json:"images"`
	Name           *string       `json:"name"`
	GivenName      *string       `json:"given_name"`
	FamilyName     *string       `json:"family_name"`
	AlternateNames *[]string     `json:"alternate_names"`
	Birthday       *time.Time    `json:"birthday"`
	Favorites      *int64        `json:"favorites"`
	About          *string       `json:"about"`
	Anime          *[]Position   `json:"anime"`
	Manga          *[]Position   `json:"manga"`
	Voices         *[]VoiceRole  `json:"voices"`
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("url", p.URL),
		document.Opt("website_url", p.WebsiteURL),
		document.Opt("images", p.Images),
		document.Opt("name", p.Name),
		document.Opt("given_name", p.GivenName),
		document.Opt("family_name", p.FamilyName),
		document.Opt("alternate_names", p.AlternateNames),
		document.Opt("birthday", p.Birthday),
		document.Opt("favorites", p.Favorites),
		document.Opt("about", p.About),
		document.Opt("anime", p.Anime),
		document.Opt("manga", p.Manga),
		document.Opt("voices", p.Voices),
	)
}

// Package character defines fictional characters and the entries they appear in.
package character

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for characters.
const Collection = "characters"

// Appearance is a role in one anime or manga, referenced by entry id.
type Appearance struct {
	Role  string `bson:"role" json:"role"`
	Media string `bson:"media" json:"media"`
}

// Voice is a voice actor for one language, referenced by person id.
type Voice struct {
	Language string `bson:"language" json:"language"`
	Person   string `bson:"person" json:"person"`
}

// Character is the stored record.
type Character struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	MalID     int64              `bson:"mal_id"`
	URL       string             `bson:"url"`
	Images    media.Images       `bson:"images"`
	Name      string             `bson:"name"`
	NameKanji string             `bson:"name_kanji"`
	Nicknames []string           `bson:"nicknames"`
	Favorites int64              `bson:"favorites"`
	About     string             `bson:"about"`
	Anime     []Appearance       `bson:"anime"`
	Manga     []Appearance       `bson:"manga"`
	Voices    []Voice            `bson:"voices"`
}

// View is the JSON form of a Character.
type View struct {
	ID        string       `json:"id"`
	MalID     int64        `json:"mal_id"`
	URL       string       `json:"url"`
	Images    media.Images `json:"images"`
	Name      string       `json:"name"`
	NameKanji string       `json:"name_kanji"`
	Nicknames []string     `json:"nicknames"`
	Favorites int64        `json:"favorites"`
	About     string       `json:"about"`
	Anime     []Appearance `json:"anime"`
	Manga     []Appearance `json:"manga"`
	Voices    []Voice      `json:"voices"`
}

// ToView converts a stored character for responses.
func ToView(c Character) View {
	return View{
		ID:        document.FormatID(c.ID),
		MalID:     c.MalID,
		URL:       c.URL,
		Images:    c.Images,
		Name:      c.Name,
		NameKanji: c.NameKanji,
		Nicknames: c.Nicknames,
		Favorites: c.Favorites,
		About:     c.About,
		Anime:     c.Anime,
		Manga:     c.Manga,
		Voices:    c.Voices,
	}
}

// Create is the body of POST. Name is required.
type Create struct {
	MalID     int64        `json:"mal_id"`
	URL       string       `json:"url"`
	Images    media.Images `json:"images"`
	Name      string       `json:"name" validate:"required"`
	NameKanji string       `json:"name_kanji"`
	Nicknames []string     `json:"nicknames"`
	Favorites int64        `json:"favorites"`
	About     string       `json:"about"`
	Anime     []Appearance `json:"anime"`
	Manga     []Appearance `json:"manga"`
	Voices    []Voice      `json:"voices"`
}

func (c Create) Entity() Character {
	return Character{
		MalID:     c.MalID,
		URL:       c.URL,
		Images:    c.Images,
		Name:      c.Name,
		NameKanji: c.NameKanji,
		Nicknames: c.Nicknames,
		Favorites: c.Favorites,
		About:     c.About,
		Anime:     c.Anime,
		Manga:     c.Manga,
		Voices:    c.Voices,
	}
}

// Patch is a partial update. A present list replaces the stored one.
type Patch struct {
	MalID     *int64        `json:"mal_id"`
	URL       *string       `json:"url"`
	Images    *media.Images `json:"images"`
	Name      *string       `json:"name"`
	NameKanji *string       `json:"name_kanji"`
	Nicknames *[]string     `json:"nicknames"`
	Favorites *int64        `json:"favorites"`
	About     *string       `json:"about"`
	Anime     *[]Appearance `json:"anime"`
	Manga     *[]Appearance `json:"manga"`
	Voices    *[]Voice      `json:"voices"`
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("url", p.URL),
		document.Opt("images", p.Images),
		document.Opt("name", p.Name),
		document.Opt("name_kanji", p.NameKanji),
		document.Opt("nicknames", p.Nicknames),
		document.Opt("favorites", p.Favorites),
		document.Opt("about", p.About),
		document.Opt("anime", p.Anime),
		document.Opt("manga", p.Manga),
		document.Opt("voices", p.Voices),
	)
}

// Package producer defines studios, licensors and other producing companies.
package producer

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for producers.
const Collection = "producers"

// Producer is the stored record.
type Producer struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	MalID       int64                `bson:"mal_id"`
	Titles      []media.Title        `bson:"titles"`
	Images      *media.Images        `bson:"images,omitempty"`
	Favorites   int64                `bson:"favorites"`
	Count       int64                `bson:"count"`
	Established string               `bson:"established"`
	About       string               `bson:"about"`
	External    []media.ExternalLink `bson:"external"`
}

// View is the read DTO.
type View struct {
	ID          string               `json:"id"`
	MalID       int64                `json:"mal_id"`
	Titles      []media.Title        `json:"titles"`
	Images      *media.Images        `json:"images,omitempty"`
	Favorites   int64                `json:"favorites"`
	Count       int64                `json:"count"`
	Established string               `json:"established"`
	About       string               `json:"about"`
	External    []media.ExternalLink `json:"external"`
}

// ToView maps a stored producer to its read DTO.
func ToView(p Producer) View {
	return View{
		ID:          document.FormatID(p.ID),
		MalID:       p.MalID,
		Titles:      p.Titles,
		Images:      p.Images,
		Favorites:   p.Favorites,
		Count:       p.Count,
		Established: p.Established,
		About:       p.About,
		External:    p.External,
	}
}

// Create is the create DTO. At least one title is required.
type Create struct {
	MalID       int64                `json:"mal_id"`
	Titles      []media.Title        `json:"titles"`
	Images      *media.Images        `json:"images"`
	Favorites   int64                `json:"favorites"`
	Count       int64                `json:"count"`
	Established string               `json:"established"`
	About       string               `json:"about"`
	External    []media.ExternalLink `json:"external"`
}

// Validate reports every invalid field at once.
func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if len(c.Titles) == 0 {
		errs.Add("titles", "at least one title is required")
	}
	for _, t := range c.Titles {
		if t.Title == "" {
			errs.Add("titles", "titles must not be empty")
		}
	}
	return errs.Err()
}

func (c Create) Entity() Producer {
	return Producer{
		MalID:       c.MalID,
		Titles:      c.Titles,
		Images:      c.Images,
		Favorites:   c.Favorites,
		Count:       c.Count,
		Established: c.Established,
		About:       c.About,
		External:    c.External,
	}
}

// Patch is the update DTO. Nil fields are left unchanged.
type Patch struct {
	MalID       *int64                `json:"mal_id"`
	Titles      *[]media.Title        `json:"titles"`
	Images      *media.Images         `json:"images"`
	Favorites   *int64                `json:"favorites"`
	Count       *int64                `json:"count"`
	Established *string               `json:"established"`
	About       *string               `json:"about"`
	External    *[]media.ExternalLink `json:"external"`
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("titles", p.Titles),
		document.Opt("images", p.Images),
		document.Opt("favorites", p.Favorites),
		document.Opt("count", p.Count),
		document.Opt("established", p.Established),
		document.Opt("about", p.About),
		document.Opt("external", p.External),
	)
}

// Package genre defines genre records and their DTOs.
package genre

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for genres.
const Collection = "genres"

// Genre is the stored record.
type Genre struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	MalID int64              `bson:"mal_id"`
	Type  string             `bson:"type"`
	Name  string             `bson:"name"`
	Count int64              `bson:"count"`
}

// View is the read DTO.
type View struct {
	ID    string `json:"id"`
	MalID int64  `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ToView maps a stored genre to its read DTO.
func ToView(g Genre) View {
	return View{
		ID:    document.FormatID(g.ID),
		MalID: g.MalID,
		Type:  g.Type,
		Name:  g.Name,
		Count: g.Count,
	}
}

// Create is the create DTO.
type Create struct {
	MalID int64  `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Validate requires a name; counts and ids must not be negative.
func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(c.Name) == "" {
		errs.Add("name", "is required")
	}
	if c.MalID < 0 {
		errs.Add("mal_id", "must not be negative")
	}
	if c.Count < 0 {
		errs.Add("count", "must not be negative")
	}
	return errs.Err()
}

func (c Create) Entity() Genre {
	return Genre{MalID: c.MalID, Type: c.Type, Name: c.Name, Count: c.Count}
}

// Patch is the update DTO. Nil fields are left unchanged.
type Patch struct {
	MalID *int64  `json:"mal_id"`
	Type  *string `json:"type"`
	Name  *string `json:"name"`
	Count *int64  `json:"count"`
}

func (p Patch) Validate() error {
	errs := controller.FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs.Add("name", "must not be empty")
	}
	if p.Count != nil && *p.Count < 0 {
		errs.Add("count", "must not be negative")
	}
	return errs.Err()
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("type", p.Type),
		document.Opt("name", p.Name),
		document.Opt("count", p.Count),
	)
}

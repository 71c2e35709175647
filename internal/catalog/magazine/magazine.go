// Package magazine defines manga serialization magazines.
package magazine

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for magazines.
const Collection = "magazines"

// Magazine is the stored record. Count is the number of titles serialized in it.
type Magazine struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	MalID int64              `bson:"mal_id"`
	Name  string             `bson:"name"`
	Count int64              `bson:"count"`
}

// View is the JSON form of a Magazine.
type View struct {
	ID    string `json:"id"`
	MalID int64  `json:"mal_id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// ToView converts a stored magazine for responses.
func ToView(m Magazine) View {
	return View{ID: document.FormatID(m.ID), MalID: m.MalID, Name: m.Name, Count: m.Count}
}

// Create is the body of POST. Name is required.
type Create struct {
	MalID int64  `json:"mal_id"`
	Name  string `json:"name" validate:"required"`
	Count int64  `json:"count"`
}

func (c Create) Entity() Magazine {
	return Magazine{MalID: c.MalID, Name: c.Name, Count: c.Count}
}

// Patch is a partial update; nil fields are left as stored.
type Patch struct {
	MalID *int64  `json:"mal_id"`
	Name  *string `json:"name"`
	Count *int64  `json:"count"`
}

func (p Patch) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("mal_id", p.MalID),
		document.Opt("name", p.Name),
		document.Opt("count", p.Count),
	)
}

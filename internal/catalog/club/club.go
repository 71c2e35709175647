// Package club defines user clubs.
package club

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for clubs.
const Collection = "clubs"

// Access levels accepted for a club.
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
	AccessSecret  = "secret"
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Club is the stored record. Members holds user ids.
type Club struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description *string            `bson:"description,omitempty"`
	Members     []string           `bson:"members"`
	Access      string             `bson:"access"`
	Category    string             `bson:"category"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// View is the JSON form of a Club.
type View struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Members     []string  `json:"members"`
	Access      string    `json:"access"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToView converts a stored club for responses.
func ToView(c Club) View {
	return View{
		ID:          document.FormatID(c.ID),
		Name:        c.Name,
		Description: c.Description,
		Members:     c.Members,
		Access:      c.Access,
		Category:    c.Category,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// Create is the body of POST. Name is required and Access, when set, must be a known level.
type Create struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Members     []string `json:"members"`
	Access      string   `json:"access"`
	Category    string   `json:"category"`
}

// Validate reports every invalid field at once.
func (c Create) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(c.Name) == "" {
		errs.Add("name", "is required")
	}
	if c.Access != "" && !validAccess(c.Access) {
		errs.Add("access", "must be one of public, private, secret")
	}
	return errs.Err()
}

// Entity stamps both timestamps with the current time. Access defaults to public.
func (c Create) Entity() Club {
	ts := now()
	access := c.Access
	if access == "" {
		access = AccessPublic
	}
	members := c.Members
	if members == nil {
		members = []string{}
	}
	return Club{
		Name:        c.Name,
		Description: c.Description,
		Members:     members,
		Access:      access,
		Category:    c.Category,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Patch is a partial update.
type Patch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Members     *[]string `json:"members"`
	Access      *string   `json:"access"`
	Category    *string   `json:"category"`
}

// Validate checks the fields that are present.
func (p Patch) Validate() error {
	errs := controller.FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs.Add("name", "must not be empty")
	}
	if p.Access != nil && !validAccess(*p.Access) {
		errs.Add("access", "must be one of public, private, secret")
	}
	return errs.Err()
}

// Update bumps updated_at whenever at least one field changes.
func (p Patch) Update() document.Update {
	fields := []document.Field{
		document.Opt("name", p.Name),
		document.Opt("description", p.Description),
		document.Opt("members", p.Members),
		document.Opt("access", p.Access),
		document.Opt("category", p.Category),
	}
	if document.BuildUpdate(fields...).IsEmpty() {
		return document.Update{}
	}
	return document.BuildUpdate(append(fields, document.Set("updated_at", now()))...)
}

func validAccess(access string) bool {
	switch access {
	case AccessPublic, AccessPrivate, AccessSecret:
		return true
	}
	return false
}

// Package user defines accounts, registration and password handling.
package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Collection is the storage collection for accounts.
const Collection = "users"

// Roles derived from the account flags and carried in issued tokens.
const (
	RoleStaff     = "staff"
	RoleSuperuser = "superuser"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned when a username or password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

var (
	now      = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	hashCost = bcrypt.DefaultCost
)

// User is the stored account. Password holds a bcrypt hash, never the plain text.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Username    string             `bson:"username"`
	Email       string             `bson:"email"`
	Password    string             `bson:"password"`
	IsActive    bool               `bson:"is_active"`
	IsStaff     bool               `bson:"is_staff"`
	IsSuperuser bool               `bson:"is_superuser"`
	Image       *string            `bson:"image,omitempty"`
	Bio         *string            `bson:"bio,omitempty"`
	BirthDate   *time.Time         `bson:"birth_date,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	LastOnline  time.Time          `bson:"last_online"`
}

// Roles lists the roles granted by the account flags.
func (u User) Roles() []string {
	var roles []string
	if u.IsStaff {
		roles = append(roles, RoleStaff)
	}
	if u.IsSuperuser {
		roles = append(roles, RoleSuperuser)
	}
	return roles
}

// View is the read DTO. It never carries the password hash.
type View struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	Image       *string    `json:"image"`
	Bio         *string    `json:"bio"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastOnline  time.Time  `json:"last_online"`
}

// ToView drops the password hash.
func ToView(u User) View {
	return View{
		ID:          document.FormatID(u.ID),
		Username:    u.Username,
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Image:       u.Image,
		Bio:         u.Bio,
		BirthDate:   u.BirthDate,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastOnline:  u.LastOnline,
	}
}

// Register is the create DTO used by both registration and the users collection.
type Register struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Image     *string    `json:"image"`
	Bio       *string    `json:"bio"`
	BirthDate *time.Time `json:"birth_date"`
}

// Validate requires a username, a well-formed email and a password of acceptable length.
func (r Register) Validate() error {
	errs := controller.FieldErrors{}
	if strings.TrimSpace(r.Username) == "" {
		errs.Add("username", "is required")
	}
	validateEmail(errs, r.Email)
	validatePassword(errs, r.Password)
	return errs.Err()
}

// Entity creates an inactive account without privileges. Password is stored as given, so
// callers hash it first with HashRegister.
func (r Register) Entity() User {
	ts := now()
	return User{
		Username:   strings.TrimSpace(r.Username),
		Email:      strings.TrimSpace(r.Email),
		Password:   r.Password,
		Image:      r.Image,
		Bio:        r.Bio,
		BirthDate:  r.BirthDate,
		CreatedAt:  ts,
		UpdatedAt:  ts,
		LastOnline: ts,
	}
}

// Patch is the update DTO. Nil fields are left unchanged.
type Patch struct {
	Username    *string    `json:"username"`
	Email       *string    `json:"email"`
	Password    *string    `json:"password"`
	IsActive    *bool      `json:"is_active"`
	IsStaff     *bool      `json:"is_staff"`
	IsSuperuser *bool      `json:"is_superuser"`
	Image       *string    `json:"image"`
	Bio         *string    `json:"bio"`
	BirthDate   *time.Time `json:"birth_date"`
}

// Validate checks the fields that are present.
func (p Patch) Validate() error {
	errs := controller.FieldErrors{}
	if p.Username != nil && strings.TrimSpace(*p.Username) == "" {
		errs.Add("username", "must not be empty")
	}
	if p.Email != nil {
		validateEmail(errs, *p.Email)
	}
	if p.Password != nil {
		validatePassword(errs, *p.Password)
	}
	return errs.Err()
}

// Update bumps updated_at whenever at least one field changes.
func (p Patch) Update() document.Update {
	fields := []document.Field{
		document.Opt("username", p.Username),
		document.Opt("email", p.Email),
		document.Opt("password", p.Password),
		document.Opt("is_active", p.IsActive),
		document.Opt("is_staff", p.IsStaff),
		document.Opt("is_superuser", p.IsSuperuser),
		document.Opt("image", p.Image),
		document.Opt("bio", p.Bio),
		document.Opt("birth_date", p.BirthDate),
	}
	if document.BuildUpdate(fields...).IsEmpty() {
		return document.Update{}
	}
	return document.BuildUpdate(append(fields, document.Set("updated_at", now()))...)
}

// Login is the credentials body of the login endpoint.
type Login struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Refresh is the body of the token refresh endpoint.
type Refresh struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a stored hash with a candidate password. Any mismatch,
// including a malformed hash, is reported as ErrInvalidCredentials.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashRegister replaces the plain password of a create DTO with its hash.
func HashRegister(_ context.Context, r *Register) error {
	hash, err := HashPassword(r.Password)
	if err != nil {
		return err
	}
	r.Password = hash
	return nil
}

// HashPatch hashes the password of an update DTO when one is present.
func HashPatch(_ context.Context, p *Patch) error {
	if p.Password == nil {
		return nil
	}
	hash, err := HashPassword(*p.Password)
	if err != nil {
		return err
	}
	p.Password = &hash
	return nil
}

func validateEmail(errs controller.FieldErrors, email string) {
	if strings.TrimSpace(email) == "" {
		errs.Add("email", "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		errs.Add("email", "must be a valid address")
	}
}

func validatePassword(errs controller.FieldErrors, password string) {
	if len(password) < minPasswordLength {
		errs.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > 72 {
		errs.Add("password", "must be at most 72 bytes")
	}
}

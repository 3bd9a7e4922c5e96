package undeletable

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthCapability is what authentication code needs from a user record
type AuthCapability interface {
	GetUsername() string
	SetPassword(raw string) error
	CheckPassword(raw string) bool
	HasUsablePassword() bool
}

// unusablePassword never matches a bcrypt hash
const unusablePassword = "!"

// Credentials holds the authentication fields of a user
type Credentials struct {
	Username     string     `db:"username" unique:"true" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

func (c *Credentials) GetUsername() string { return c.Username }

// SetPassword stores a bcrypt hash of raw. An empty raw password marks the
// account as having no usable password.
func (c *Credentials) SetPassword(raw string) error {
	if raw == "" {
		c.PasswordHash = unusablePassword
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hash)
	return nil
}

func (c *Credentials) CheckPassword(raw string) bool {
	if !c.HasUsablePassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(raw)) == nil
}

func (c *Credentials) HasUsablePassword() bool {
	return c.PasswordHash != "" && c.PasswordHash != unusablePassword
}

// User is a soft-deletable account. Deleting a user deactivates it.
type User struct {
	Model
	Credentials
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	IsStaff    bool      `db:"is_staff" json:"is_staff"`
	DateJoined time.Time `db:"date_joined" json:"date_joined"`
}

var _ AuthCapability = (*User)(nil)

// Clean normalizes the email address
func (u *User) Clean() {
	u.Email = NormalizeEmail(u.Email)
}

// FullName is the first name plus the last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) ShortName() string {
	return u.FirstName
}

// NormalizeEmail lowercases the domain part of an address
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

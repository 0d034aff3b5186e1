package core

import (
	"strings"
	"time"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderDemo     = "demo"
)

// User is an authenticated account. PasswordHash is empty for non-password providers.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}

// EmailUserID derives the stable account id used for email/password users.
func EmailUserID(email string) string {
	r := strings.NewReplacer("@", "-", ".", "-")
	return "email-user-" + r.Replace(email)
}

// DefaultDisplayName returns the local part of an email address.
func DefaultDisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

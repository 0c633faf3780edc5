package models

import "time"

// User is an account. PasswordHash is empty for accounts created through
// Google sign-in that never set a password.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Location     string
	Bio          string
	GoogleID     string
	IsGoogleUser bool
	MFAEnabled   bool
	MFASecret    string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// BackupCode is a hashed single-use MFA recovery code.
type BackupCode struct {
	ID        string
	UserID    string
	CodeHash  string
	UsedAt    *time.Time
	CreatedAt time.Time
}

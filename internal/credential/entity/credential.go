package entity

import (
	"time"
)

// Credential is a stored one-time code. The plaintext code is never kept.
type Credential struct {
	ID        int64
	SubjectID int64
	Purpose   Purpose
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// IsActive reports whether the credential can still be consumed at now.
func (c Credential) IsActive(now time.Time) bool {
	return !c.Revoked && c.ExpiresAt.After(now)
}

// Subject is the account a credential is issued to.
type Subject struct {
	ID       int64
	Email    string
	FullName string
}

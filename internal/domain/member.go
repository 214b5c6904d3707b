package domain

import "time"

// MemberStatus represents lifecycle states for a member account.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

// Member is the domain model for accounts that authenticate against the service.
type Member struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       MemberStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Package model defines the domain types shared by the console stores, the
// mock API and the HTTP layer. JSON tags follow the camelCase shape the
// dashboard client expects.
package model

import "time"

// Role is a user's permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleEditor  Role = "editor"
	RoleViewer  Role = "viewer"
)

// UserStatus is a user's account state.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// User is a console account. Timestamps are RFC 3339 strings, matching what
// is persisted in local storage.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Avatar      string     `json:"avatar"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`
	Department  string     `json:"department"`
	Position    string     `json:"position"`
	Phone       string     `json:"phone,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	LastLoginAt string     `json:"lastLoginAt"`
}

// UserRef is the short form of a user embedded in other records.
type UserRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// AvatarURL returns the generated avatar for seed.
func AvatarURL(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + seed
}

// DemoAdmin returns the built-in administrator account signed in by the
// demo credentials.
func DemoAdmin(email string, loginAt time.Time) User {
	return User{
		ID:          "1",
		Name:        "Administrator",
		Email:       email,
		Avatar:      AvatarURL("admin"),
		Role:        RoleAdmin,
		Status:      UserActive,
		Department:  "Engineering",
		Position:    "System Administrator",
		CreatedAt:   "2024-01-01T00:00:00Z",
		LastLoginAt: loginAt.UTC().Format(time.RFC3339),
	}
}

package models

import "time"

// RefreshToken is a stored refresh token. UserName is joined in on lookup
// so a refreshed access token carries the same claims as the first one.
type RefreshToken struct {
	ID        string
	UserID    string
	UserName  string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

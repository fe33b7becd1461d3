package rpc

import "time"

type RegisterUserRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterUserResponse struct{}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	VerifierCandidate []byte `json:"verifier_candidate"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HistoryEntry is the wire form of one stored edit.
type HistoryEntry struct {
	ID          string    `json:"id"`
	SourceImage string    `json:"source_image,omitempty"`
	ResultImage string    `json:"result_image"`
	Prompt      string    `json:"prompt"`
	Feature     string    `json:"feature"`
	CreatedAt   time.Time `json:"created_at"`
}

type FetchHistoryRequest struct {
	UserID string `json:"user_id"`
}

type FetchHistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Version int64          `json:"version"`
}

// UpsertHistoryRequest replaces the whole collection. ExpectedVersion is
// the token from the last fetch, 0 when the user had no record.
type UpsertHistoryRequest struct {
	UserID          string         `json:"user_id"`
	Entries         []HistoryEntry `json:"entries"`
	ExpectedVersion int64          `json:"expected_version"`
}

type UpsertHistoryResponse struct {
	Version int64 `json:"version"`
}

// Owner returns the user the request acts for.
func (r *FetchHistoryRequest) Owner() string { return r.UserID }

// Owner returns the user the request acts for.
func (r *UpsertHistoryRequest) Owner() string { return r.UserID }

package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/rpc"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
	"github.com/dmitrijs2005/imagestudio/internal/server/services"
)

// ---- fakes ----

type fakeUser struct {
	refreshResp *services.TokenPair
	refreshErr  error

	regResp *models.User
	regErr  error

	saltResp []byte
	saltErr  error

	loginResp *services.TokenPair
	loginErr  error
}

func (f *fakeUser) RefreshToken(ctx context.Context, refresh string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}
func (f *fakeUser) Register(ctx context.Context, username string, salt []byte, verifier []byte) (*models.User, error) {
	return f.regResp, f.regErr
}
func (f *fakeUser) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.saltResp, f.saltErr
}
func (f *fakeUser) Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

type fakeHistory struct {
	fetchOut *models.History
	fetchErr error

	upsertVersion int64
	upsertErr     error

	gotUser     string
	gotEntries  []models.HistoryEntry
	gotExpected int64
}

func (f *fakeHistory) Fetch(ctx context.Context, userID string) (*models.History, error) {
	f.gotUser = userID
	return f.fetchOut, f.fetchErr
}

func (f *fakeHistory) Upsert(ctx context.Context, userID string, entries []models.HistoryEntry, expected int64) (int64, error) {
	f.gotUser, f.gotEntries, f.gotExpected = userID, entries, expected
	return f.upsertVersion, f.upsertErr
}

// ---- helpers ----

func newServer(u userSvc, h historySvc) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Discard(), u, h, "k", 0)
}

func asUser(userID string) context.Context {
	return context.WithValue(context.Background(), UserIDKey, userID)
}

// ---- tests ----

func TestRefreshToken_OK(t *testing.T) {
	u := &fakeUser{
		refreshResp: &services.TokenPair{AccessToken: "a", RefreshToken: "r"},
	}
	s := newServer(u, &fakeHistory{})
	resp, err := s.RefreshToken(context.Background(), &rpc.RefreshTokenRequest{RefreshToken: "r0"})
	if err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
	if resp.AccessToken != "a" || resp.RefreshToken != "r" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	s := newServer(&fakeUser{refreshErr: common.ErrRefreshTokenExpired}, &fakeHistory{})
	_, err := s.RefreshToken(context.Background(), &rpc.RefreshTokenRequest{RefreshToken: "r0"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestRegisterUser(t *testing.T) {
	s := newServer(&fakeUser{regResp: &models.User{ID: "u1"}}, &fakeHistory{})
	if _, err := s.RegisterUser(context.Background(), &rpc.RegisterUserRequest{Username: "bob"}); err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}

	s = newServer(&fakeUser{regErr: fmt.Errorf("create: %w", common.ErrorAlreadyExists)}, &fakeHistory{})
	_, err := s.RegisterUser(context.Background(), &rpc.RegisterUserRequest{Username: "bob"})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", status.Code(err))
	}
}

func TestGetSalt(t *testing.T) {
	s := newServer(&fakeUser{saltResp: []byte("salt")}, &fakeHistory{})
	resp, err := s.GetSalt(context.Background(), &rpc.GetSaltRequest{Username: "bob"})
	if err != nil {
		t.Fatalf("GetSalt error: %v", err)
	}
	if string(resp.Salt) != "salt" {
		t.Fatalf("unexpected salt: %q", resp.Salt)
	}
}

func TestLogin(t *testing.T) {
	s := newServer(&fakeUser{loginResp: &services.TokenPair{AccessToken: "a", RefreshToken: "r"}}, &fakeHistory{})
	resp, err := s.Login(context.Background(), &rpc.LoginRequest{Username: "bob"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if resp.AccessToken != "a" || resp.RefreshToken != "r" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}

	s = newServer(&fakeUser{loginErr: common.ErrorUnauthorized}, &fakeHistory{})
	_, err = s.Login(context.Background(), &rpc.LoginRequest{Username: "bob"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestFetchHistory_UsesTokenUser(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &fakeHistory{fetchOut: &models.History{
		Entries: []models.HistoryEntry{{ID: "e1", ResultImage: "img", Prompt: "p", Feature: "edit", CreatedAt: created}},
		Version: 4,
	}}
	s := newServer(&fakeUser{}, h)

	resp, err := s.FetchHistory(asUser("u1"), &rpc.FetchHistoryRequest{})
	if err != nil {
		t.Fatalf("FetchHistory error: %v", err)
	}
	if h.gotUser != "u1" {
		t.Fatalf("fetched for %q, want u1", h.gotUser)
	}
	if resp.Version != 4 || len(resp.Entries) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	want := rpc.HistoryEntry{ID: "e1", ResultImage: "img", Prompt: "p", Feature: "edit", CreatedAt: created}
	if resp.Entries[0] != want {
		t.Fatalf("entry mismatch: got %+v want %+v", resp.Entries[0], want)
	}
}

func TestUpsertHistory(t *testing.T) {
	h := &fakeHistory{upsertVersion: 3}
	s := newServer(&fakeUser{}, h)

	resp, err := s.UpsertHistory(asUser("u1"), &rpc.UpsertHistoryRequest{
		UserID:          "u1",
		Entries:         []rpc.HistoryEntry{{ID: "e1", ResultImage: "img", Feature: "restore"}},
		ExpectedVersion: 2,
	})
	if err != nil {
		t.Fatalf("UpsertHistory error: %v", err)
	}
	if resp.Version != 3 {
		t.Fatalf("version = %d, want 3", resp.Version)
	}
	if h.gotExpected != 2 || len(h.gotEntries) != 1 || h.gotEntries[0].Feature != "restore" {
		t.Fatalf("service got %d %+v", h.gotExpected, h.gotEntries)
	}
}

func TestToStatus(t *testing.T) {
	s := newServer(&fakeUser{}, &fakeHistory{})

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: bad", common.ErrorValidation), codes.InvalidArgument},
		{common.ErrorNotFound, codes.NotFound},
		{fmt.Errorf("upsert: %w", common.ErrVersionConflict), codes.Aborted},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{common.ErrorUnauthorized, codes.Unauthenticated},
		{common.ErrInvalidToken, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{errors.New("db down"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := status.Code(s.toStatus(context.Background(), tt.err)); got != tt.want {
				t.Fatalf("code = %v, want %v", got, tt.want)
			}
		})
	}

	if msg := status.Convert(s.toStatus(context.Background(), errors.New("secret dsn"))).Message(); msg != "internal error" {
		t.Fatalf("internal details leaked: %q", msg)
	}
}

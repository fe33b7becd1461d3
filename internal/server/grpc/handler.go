package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/rpc"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
	"github.com/dmitrijs2005/imagestudio/internal/server/services"
)

type userSvc interface {
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, userName string) ([]byte, error)
	Login(ctx context.Context, userName string, verifierCandidate []byte) (*services.TokenPair, error)
}

type historySvc interface {
	Fetch(ctx context.Context, userID string) (*models.History, error)
	Upsert(ctx context.Context, userID string, entries []models.HistoryEntry, expectedVersion int64) (int64, error)
}

var (
	_ userSvc    = (*services.UserService)(nil)
	_ historySvc = (*services.HistoryService)(nil)
)

func (s *GRPCServer) RegisterUser(ctx context.Context, req *rpc.RegisterUserRequest) (*rpc.RegisterUserResponse, error) {
	s.logger.Info(ctx, "Registration request", "username", req.Username)

	result, err := s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "user_id", result.ID)
	return &rpc.RegisterUserResponse{}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	result, err := s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetSaltResponse{Salt: result}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	tokens, err := s.users.Login(ctx, req.Username, req.VerifierCandidate)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) FetchHistory(ctx context.Context, req *rpc.FetchHistoryRequest) (*rpc.FetchHistoryResponse, error) {
	h, err := s.histories.Fetch(ctx, userIDFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &rpc.FetchHistoryResponse{Entries: make([]rpc.HistoryEntry, 0, len(h.Entries)), Version: h.Version}
	for _, e := range h.Entries {
		resp.Entries = append(resp.Entries, toWire(e))
	}
	return resp, nil
}

func (s *GRPCServer) UpsertHistory(ctx context.Context, req *rpc.UpsertHistoryRequest) (*rpc.UpsertHistoryResponse, error) {
	entries := make([]models.HistoryEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, fromWire(e))
	}

	version, err := s.histories.Upsert(ctx, userIDFromContext(ctx), entries, req.ExpectedVersion)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.UpsertHistoryResponse{Version: version}, nil
}

// toStatus maps service errors onto gRPC codes. Internal failures are
// logged and hidden from the caller.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrVersionConflict):
		return status.Error(codes.Aborted, common.ErrVersionConflict.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func toWire(e models.HistoryEntry) rpc.HistoryEntry {
	return rpc.HistoryEntry{
		ID:          e.ID,
		SourceImage: e.SourceImage,
		ResultImage: e.ResultImage,
		Prompt:      e.Prompt,
		Feature:     e.Feature,
		CreatedAt:   e.CreatedAt,
	}
}

func fromWire(e rpc.HistoryEntry) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          e.ID,
		SourceImage: e.SourceImage,
		ResultImage: e.ResultImage,
		Prompt:      e.Prompt,
		Feature:     e.Feature,
		CreatedAt:   e.CreatedAt,
	}
}

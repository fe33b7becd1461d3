package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/rpc"
)

const saltTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.StudioClient
	health      healthpb.HealthClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults (tests pass a bufconn dialer).
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewStudioClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, refreshes the pair once and retries.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == rpc.MethodRefreshToken {
		return err
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) Register(ctx context.Context, userName string, salt []byte, verifier []byte) error {
	_, err := s.client.RegisterUser(ctx, &rpc.RegisterUserRequest{Username: userName, Salt: salt, Verifier: verifier})
	return s.mapError(err)
}

func (s *GRPCClient) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, saltTimeout)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &rpc.GetSaltRequest{Username: userName})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, userName string, verifier []byte) (string, error) {
	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Username: userName, VerifierCandidate: verifier})
	if err != nil {
		return "", s.mapError(err)
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return resp.AccessToken, nil
}

func (s *GRPCClient) Logout() {
	s.setTokens("", "")
}

// Ping asks the standard health service whether Studio is serving.
func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return s.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Fetch(ctx context.Context, userID string) (*models.History, error) {
	resp, err := s.client.FetchHistory(ctx, &rpc.FetchHistoryRequest{UserID: userID})
	if err != nil {
		return nil, s.mapError(err)
	}

	entries := make([]models.HistoryEntry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entries = append(entries, fromWire(e))
	}
	return &models.History{Entries: entries, Version: resp.Version}, nil
}

func (s *GRPCClient) Upsert(ctx context.Context, userID string, h *models.History) (int64, error) {
	req := &rpc.UpsertHistoryRequest{
		UserID:          userID,
		Entries:         make([]rpc.HistoryEntry, 0, len(h.Entries)),
		ExpectedVersion: h.Version,
	}
	for _, e := range h.Entries {
		req.Entries = append(req.Entries, toWire(e))
	}

	resp, err := s.client.UpsertHistory(ctx, req)
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Version, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.Aborted:
		return common.ErrVersionConflict
	case codes.AlreadyExists:
		return ErrAlreadyExists
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func toWire(e models.HistoryEntry) rpc.HistoryEntry {
	return rpc.HistoryEntry{
		ID:          e.ID,
		SourceImage: e.SourceImage,
		ResultImage: e.ResultImage,
		Prompt:      e.Prompt,
		Feature:     e.Feature.String(),
		CreatedAt:   e.CreatedAt,
	}
}

func fromWire(e rpc.HistoryEntry) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          e.ID,
		SourceImage: e.SourceImage,
		ResultImage: e.ResultImage,
		Prompt:      e.Prompt,
		Feature:     feature.Feature(e.Feature),
		CreatedAt:   e.CreatedAt,
	}
}

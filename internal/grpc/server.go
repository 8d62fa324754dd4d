// Package grpc serves TeamService: roster, selection and draw calls for API
// clients, plus a stateless Balance call.
package grpc

import (
	"context"
	"errors"
	"fmt"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/metrics"
	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/teams"
)

// MaxBalancePlayers bounds the roster accepted by Balance.
const MaxBalancePlayers = 1000

// Server implements the gRPC TeamService
type Server struct {
	svc         *draw.Service
	tokenSecret string
}

// NewServer creates a new gRPC server. Calls other than Balance need an
// "authorization: Bearer <token>" header signed with tokenSecret.
func NewServer(svc *draw.Service, tokenSecret string) *Server {
	return &Server{svc: svc, tokenSecret: tokenSecret}
}

// NewGRPCServer builds a grpc.Server with TeamService, the standard health
// service and Prometheus interceptors registered.
func NewGRPCServer(srv *Server, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	gs := grpc.NewServer(opts...)
	RegisterTeamServiceServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	grpc_prometheus.Register(gs)
	return gs, hs
}

func (s *Server) owner(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get("authorization") {
		token := auth.BearerToken(v)
		if token == "" {
			continue
		}
		claims, err := auth.ParseToken(s.tokenSecret, token)
		if err != nil {
			return "", status.Error(codes.Unauthenticated, err.Error())
		}
		return claims.Subject, nil
	}
	return "", status.Error(codes.Unauthenticated, "missing bearer token")
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, dal.ErrInvalidPlayer), errors.Is(err, dal.ErrNoOwner), errors.Is(err, models.ErrUnknownPosition):
		code = codes.InvalidArgument
	case errors.Is(err, dal.ErrPlayerNotFound), errors.Is(err, draw.ErrNoDraw):
		code = codes.NotFound
	case errors.Is(err, draw.ErrNotEnoughPlayers):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		logger.Error("gRPC: request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// ListPlayers returns the caller's roster.
func (s *Server) ListPlayers(ctx context.Context, _ *ListPlayersRequest) (*PlayersResponse, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	players, err := s.svc.Players(ctx, owner)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PlayersResponse{Players: players}, nil
}

// SavePlayer creates or updates a card.
func (s *Server) SavePlayer(ctx context.Context, req *SavePlayerRequest) (*models.Player, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("gRPC: Saving player", "owner", owner, "player_id", req.Player.ID)
	saved, err := s.svc.SavePlayer(ctx, owner, &req.Player)
	if err != nil {
		return nil, toStatus(err)
	}
	return saved, nil
}

// DeletePlayer removes a card.
func (s *Server) DeletePlayer(ctx context.Context, req *DeletePlayerRequest) (*Empty, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("gRPC: Deleting player", "owner", owner, "player_id", req.ID)
	if err := s.svc.DeletePlayer(ctx, owner, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// SetSelection replaces the selection.
func (s *Server) SetSelection(ctx context.Context, req *SelectionRequest) (*SelectionResponse, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.svc.SetSelection(ctx, owner, req.PlayerIDs)
	if err != nil {
		return nil, toStatus(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return &SelectionResponse{PlayerIDs: ids}, nil
}

// Draw balances the caller's selection.
func (s *Server) Draw(ctx context.Context, req *DrawRequest) (*models.DrawResult, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.svc.Draw(ctx, owner, draw.Options{Seed: req.Seed})
	if err != nil {
		return nil, toStatus(err)
	}
	return result, nil
}

// Balance splits the supplied players into three teams. Ratings are derived
// from the attributes; nothing is stored or published.
func (s *Server) Balance(_ context.Context, req *BalanceRequest) (*BalanceResponse, error) {
	if len(req.Players) > MaxBalancePlayers {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("at most %d players", MaxBalancePlayers))
	}
	players := make([]models.Player, len(req.Players))
	for i, p := range req.Players {
		p.Rate()
		players[i] = p
	}

	var opts []teams.Option
	if req.Seed != nil {
		opts = append(opts, teams.WithTieShuffle(*req.Seed))
	}
	result := teams.Balance(players, opts...)
	spread := teams.Spread(result)
	metrics.RecordDraw("stateless", len(players), spread)

	return &BalanceResponse{Teams: result, Spread: spread}, nil
}

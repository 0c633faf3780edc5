// Package grpc serves the advisor machine API: token login plus the
// geographic, planting and seasonal models.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
)

type userSvc interface {
	APILogin(ctx context.Context, email, password, code string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	UserIDFromAccessToken(token string) (string, error)
}

type advisorSvc interface {
	Geographic(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.GeographicEstimate, error)
	OptimalPlanting(ctx context.Context, userID string, site agronomy.SiteConditions) (*agronomy.PlantingScan, error)
	Season(ctx context.Context, userID string, q services.SeasonQuery) (*services.SeasonOutcome, error)
	GeographicHistory(ctx context.Context, userID string) ([]models.GeographicPrediction, error)
	SeasonHistory(ctx context.Context, userID string) ([]models.SeasonPrediction, error)
}

type GRPCServer struct {
	address string
	users   userSvc
	advisor advisorSvc
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, as advisorSvc) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		advisor: as,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterAdvisorServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	return srv.Serve(lis)
}

package grpc

import (
	"context"
	"errors"
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
)

// toStatus maps service errors onto gRPC codes. Unexpected errors are
// logged and hidden behind Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidMFACode),
		errors.Is(err, common.ErrPasswordNotSet),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrUnknownSoilType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrModelUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	tokens, err := s.users.APILogin(ctx, req.Email, req.Password, req.Code)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

// fillSite copies base values into the zero-valued optional fields of site.
func fillSite(site, base agronomy.SiteConditions) agronomy.SiteConditions {
	if site.Location == "" {
		site.Location = base.Location
	}
	if site.RainCV == 0 {
		site.RainCV = base.RainCV
	}
	if site.PrevYield == 0 {
		site.PrevYield = base.PrevYield
	}
	return site
}

func (s *GRPCServer) PredictGeographic(ctx context.Context, req *SiteRequest) (*agronomy.GeographicEstimate, error) {
	site := fillSite(req.Site, agronomy.SiteConditions{
		Location:  agronomy.UnknownLocation,
		RainCV:    agronomy.DefaultRainCV,
		PrevYield: agronomy.DefaultPrevYield,
	})
	est, err := s.advisor.Geographic(ctx, userIDFrom(ctx), site)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return est, nil
}

func (s *GRPCServer) OptimalPlanting(ctx context.Context, req *SiteRequest) (*agronomy.PlantingScan, error) {
	scan, err := s.advisor.OptimalPlanting(ctx, userIDFrom(ctx), fillSite(req.Site, agronomy.DefaultSite()))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return scan, nil
}

func (s *GRPCServer) PredictSeason(ctx context.Context, req *SeasonRequest) (*SeasonResponse, error) {
	out, err := s.advisor.Season(ctx, userIDFrom(ctx), services.SeasonQuery{
		State:    req.State,
		District: req.District,
		Season:   req.Season,
		Year:     req.Year,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &SeasonResponse{Prediction: out.Estimate, ClimateSource: out.ClimateSource}, nil
}

func (s *GRPCServer) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	userID := userIDFrom(ctx)
	resp := &HistoryResponse{Entries: []HistoryEntry{}}

	switch req.Model {
	case "", services.ModelGeographic, services.ModelSeason:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown model %q", req.Model)
	}

	if req.Model != services.ModelSeason {
		list, err := s.advisor.GeographicHistory(ctx, userID)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		for _, p := range list {
			resp.Entries = append(resp.Entries, HistoryEntry{
				Model:          services.ModelGeographic,
				Location:       p.Location,
				PredictedYield: p.PredictedYield,
				LowerBound:     p.LowerBound,
				UpperBound:     p.UpperBound,
				CreatedAt:      p.CreatedAt,
			})
		}
	}

	if req.Model != services.ModelGeographic {
		list, err := s.advisor.SeasonHistory(ctx, userID)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		for _, p := range list {
			resp.Entries = append(resp.Entries, HistoryEntry{
				Model:          services.ModelSeason,
				Location:       p.District + ", " + p.State,
				PredictedYield: p.PredictedYield,
				LowerBound:     p.LowerBound,
				UpperBound:     p.UpperBound,
				CreatedAt:      p.CreatedAt,
			})
		}
	}

	sort.SliceStable(resp.Entries, func(i, j int) bool {
		return resp.Entries[i].CreatedAt.After(resp.Entries[j].CreatedAt)
	})
	return resp, nil
}

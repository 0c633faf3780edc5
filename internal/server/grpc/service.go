package grpc

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"google.golang.org/grpc"
)

const ServiceName = "cotton.v1.Advisor"

// AdvisorServer is the machine API served next to the web interface.
type AdvisorServer interface {
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error)
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
	PredictGeographic(ctx context.Context, req *SiteRequest) (*agronomy.GeographicEstimate, error)
	OptimalPlanting(ctx context.Context, req *SiteRequest) (*agronomy.PlantingScan, error)
	PredictSeason(ctx context.Context, req *SeasonRequest) (*SeasonResponse, error)
	History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor for one request/response call.
func unary[Req, Resp any](name string, call func(AdvisorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdvisorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdvisorServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", AdvisorServer.Login),
		unary("Refresh", AdvisorServer.Refresh),
		unary("Ping", AdvisorServer.Ping),
		unary("PredictGeographic", AdvisorServer.PredictGeographic),
		unary("OptimalPlanting", AdvisorServer.OptimalPlanting),
		unary("PredictSeason", AdvisorServer.PredictSeason),
		unary("History", AdvisorServer.History),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cotton/v1/advisor",
}

// RegisterAdvisorServer registers srv on s.
func RegisterAdvisorServer(s grpc.ServiceRegistrar, srv AdvisorServer) {
	s.RegisterService(&serviceDesc, srv)
}

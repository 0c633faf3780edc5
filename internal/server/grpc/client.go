package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

// Client calls the advisor API over conn using the JSON codec.
type Client struct {
	conn        grpc.ClientConnInterface
	accessToken string
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// SetAccessToken sets the token sent with authenticated calls.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.accessToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.accessToken)
	}
	return c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
}

// Login exchanges credentials for tokens and keeps the access token for
// later calls.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	out := new(TokenResponse)
	if err := c.invoke(ctx, "Login", req, out); err != nil {
		return nil, err
	}
	c.accessToken = out.AccessToken
	return out, nil
}

func (c *Client) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	out := new(TokenResponse)
	if err := c.invoke(ctx, "Refresh", req, out); err != nil {
		return nil, err
	}
	c.accessToken = out.AccessToken
	return out, nil
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	out := new(PingResponse)
	return out, c.invoke(ctx, "Ping", &PingRequest{}, out)
}

func (c *Client) PredictGeographic(ctx context.Context, req *SiteRequest) (*agronomy.GeographicEstimate, error) {
	out := new(agronomy.GeographicEstimate)
	return out, c.invoke(ctx, "PredictGeographic", req, out)
}

func (c *Client) OptimalPlanting(ctx context.Context, req *SiteRequest) (*agronomy.PlantingScan, error) {
	out := new(agronomy.PlantingScan)
	return out, c.invoke(ctx, "OptimalPlanting", req, out)
}

func (c *Client) PredictSeason(ctx context.Context, req *SeasonRequest) (*SeasonResponse, error) {
	out := new(SeasonResponse)
	return out, c.invoke(ctx, "PredictSeason", req, out)
}

func (c *Client) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	return out, c.invoke(ctx, "History", req, out)
}

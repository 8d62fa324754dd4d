package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "futdraw.TeamService"

type Empty struct{}

type ListPlayersRequest struct{}

type PlayersResponse struct {
	Players []models.Player `json:"players"`
}

type SavePlayerRequest struct {
	Player models.Player `json:"player"`
}

type DeletePlayerRequest struct {
	ID string `json:"id"`
}

type SelectionRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

type SelectionResponse struct {
	PlayerIDs []string `json:"playerIds"`
}

type DrawRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// BalanceRequest balances a supplied roster without touching any store.
type BalanceRequest struct {
	Players []models.Player `json:"players"`
	Seed    *int64          `json:"seed,omitempty"`
}

type BalanceResponse struct {
	Teams  [3]models.Team `json:"teams"`
	Spread int            `json:"spread"`
}

// TeamServiceServer is the server API for TeamService.
type TeamServiceServer interface {
	ListPlayers(context.Context, *ListPlayersRequest) (*PlayersResponse, error)
	SavePlayer(context.Context, *SavePlayerRequest) (*models.Player, error)
	DeletePlayer(context.Context, *DeletePlayerRequest) (*Empty, error)
	SetSelection(context.Context, *SelectionRequest) (*SelectionResponse, error)
	Draw(context.Context, *DrawRequest) (*models.DrawResult, error)
	Balance(context.Context, *BalanceRequest) (*BalanceResponse, error)
}

func unary[Req, Resp any](method string, call func(TeamServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TeamServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TeamServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// TeamServiceDesc describes TeamService for grpc.Server.RegisterService.
var TeamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TeamServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListPlayers", TeamServiceServer.ListPlayers),
		unary("SavePlayer", TeamServiceServer.SavePlayer),
		unary("DeletePlayer", TeamServiceServer.DeletePlayer),
		unary("SetSelection", TeamServiceServer.SetSelection),
		unary("Draw", TeamServiceServer.Draw),
		unary("Balance", TeamServiceServer.Balance),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "futdraw/team_service",
}

// RegisterTeamServiceServer registers srv on s.
func RegisterTeamServiceServer(s grpc.ServiceRegistrar, srv TeamServiceServer) {
	s.RegisterService(&TeamServiceDesc, srv)
}

// TeamServiceClient calls TeamService with the JSON codec.
type TeamServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTeamServiceClient(cc grpc.ClientConnInterface) *TeamServiceClient {
	return &TeamServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *TeamServiceClient, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TeamServiceClient) ListPlayers(ctx context.Context, in *ListPlayersRequest, opts ...grpc.CallOption) (*PlayersResponse, error) {
	return invoke[PlayersResponse](ctx, c, "ListPlayers", in, opts)
}

func (c *TeamServiceClient) SavePlayer(ctx context.Context, in *SavePlayerRequest, opts ...grpc.CallOption) (*models.Player, error) {
	return invoke[models.Player](ctx, c, "SavePlayer", in, opts)
}

func (c *TeamServiceClient) DeletePlayer(ctx context.Context, in *DeletePlayerRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "DeletePlayer", in, opts)
}

func (c *TeamServiceClient) SetSelection(ctx context.Context, in *SelectionRequest, opts ...grpc.CallOption) (*SelectionResponse, error) {
	return invoke[SelectionResponse](ctx, c, "SetSelection", in, opts)
}

func (c *TeamServiceClient) Draw(ctx context.Context, in *DrawRequest, opts ...grpc.CallOption) (*models.DrawResult, error) {
	return invoke[models.DrawResult](ctx, c, "Draw", in, opts)
}

func (c *TeamServiceClient) Balance(ctx context.Context, in *BalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	return invoke[BalanceResponse](ctx, c, "Balance", in, opts)
}

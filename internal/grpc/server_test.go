package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	"github.com/Billy-Davies-2/futdraw/internal/models"
)

const secret = "grpc-test-secret"

func newTestClient(t *testing.T) (*TeamServiceClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	svc := draw.NewService(dal.NewMemoryDAL())
	gs, _ := NewGRPCServer(NewServer(svc, secret))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewTeamServiceClient(conn), conn
}

func withOwner(t *testing.T, owner string) context.Context {
	t.Helper()
	tok, err := auth.IssueToken(secret, owner, "", time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func card(name string, rating int) models.Player {
	return models.Player{
		Name: name,
		Attributes: models.Attributes{
			Attr1: rating, Attr2: rating, Attr3: rating, Attr4: rating, Attr5: rating, Attr6: rating,
		},
	}
}

func TestRosterAndDraw(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := withOwner(t, "grpc-owner")

	var ids []string
	for i, r := range []int{90, 85, 80, 75, 70, 65, 60} {
		p, err := client.SavePlayer(ctx, &SavePlayerRequest{Player: card(string(rune('a'+i)), r)})
		require.NoError(t, err)
		assert.Equal(t, r, p.Rating)
		assert.Equal(t, models.PositionST, p.Position)
		ids = append(ids, p.ID)
	}

	list, err := client.ListPlayers(ctx, &ListPlayersRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Players, 7)

	_, err = client.Draw(ctx, &DrawRequest{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	sel, err := client.SetSelection(ctx, &SelectionRequest{PlayerIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, ids, sel.PlayerIDs)

	result, err := client.Draw(ctx, &DrawRequest{})
	require.NoError(t, err)
	assert.Equal(t, 215, result.Teams[0].Total)
	assert.Equal(t, 60, result.Spread)

	_, err = client.DeletePlayer(ctx, &DeletePlayerRequest{ID: ids[0]})
	require.NoError(t, err)
	_, err = client.DeletePlayer(ctx, &DeletePlayerRequest{ID: ids[0]})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.SavePlayer(ctx, &SavePlayerRequest{Player: models.Player{Name: ""}})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthRequired(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.ListPlayers(context.Background(), &ListPlayersRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer forged")
	_, err = client.ListPlayers(ctx, &ListPlayersRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestBalanceIsStateless(t *testing.T) {
	client, _ := newTestClient(t)

	players := []models.Player{card("p0", 90), card("p1", 85), card("p2", 80), card("p3", 75)}
	players[3].Attributes.Attr1 = 500 // clamped to 99

	resp, err := client.Balance(context.Background(), &BalanceRequest{Players: players})
	require.NoError(t, err)
	assert.Equal(t, "Team A", resp.Teams[0].Name)
	// 75 with one slot clamped to 99 rates 79 and joins the 80 in Team C.
	assert.Equal(t, [3]int{90, 85, 159}, [3]int{resp.Teams[0].Total, resp.Teams[1].Total, resp.Teams[2].Total})
	assert.Equal(t, 74, resp.Spread)

	empty, err := client.Balance(context.Background(), &BalanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Spread)
	assert.Empty(t, empty.Teams[0].Members)

	_, err = client.Balance(context.Background(), &BalanceRequest{Players: make([]models.Player, MaxBalancePlayers+1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealthService(t *testing.T) {
	_, conn := newTestClient(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	// The JSON codec also carries protobuf messages.
	resp, err = healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName}, grpc.CallContentSubtype(CodecName))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&DrawRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	var req DrawRequest
	require.NoError(t, c.Unmarshal(nil, &req))
	require.NoError(t, c.Unmarshal([]byte(`{"seed":7}`), &req))
	require.NotNil(t, req.Seed)
	assert.Equal(t, int64(7), *req.Seed)
}

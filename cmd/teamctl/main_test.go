package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	grpcserver "github.com/Billy-Davies-2/futdraw/internal/grpc"
	"github.com/Billy-Davies-2/futdraw/internal/models"
)

const rosterYAML = `
- name: Ana
  attributes: {attr1: 90, attr2: 90, attr3: 90, attr4: 90, attr5: 90, attr6: 90}
- name: Bia
  position: cm
  attributes: {attr1: 85, attr2: 85, attr3: 85, attr4: 85, attr5: 85, attr6: 85}
- name: Caio
  position: GK
  attributes: {attr1: 80, attr2: 80, attr3: 80, attr4: 80, attr5: 80, attr6: 80}
- name: Duda
  attributes: {attr1: 75, attr2: 75, attr3: 75, attr4: 75, attr5: 75, attr6: 75}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() { stdout = os.Stdout })

	parser, err := newParser(flags.HelpFlag | flags.PassDoubleDash)
	require.NoError(t, err)
	_, err = parser.ParseArgs(args)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBalanceJSON(t *testing.T) {
	roster := writeFile(t, "roster.yaml", rosterYAML)

	out, err := run(t, "balance", "--roster", roster, "-o", "json")
	require.NoError(t, err)

	var got balanceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	// 75 joins the lightest team, C with 80.
	assert.Equal(t, [3]int{90, 85, 155}, [3]int{got.Teams[0].Total, got.Teams[1].Total, got.Teams[2].Total})
	assert.Equal(t, 70, got.Spread)
	assert.Nil(t, got.Seed)
	assert.Equal(t, models.PositionCM, got.Teams[1].Members[0].Position)
}

func TestBalanceTable(t *testing.T) {
	roster := writeFile(t, "roster.json", `[{"name":"A","attributes":{"attr1":70,"attr2":70,"attr3":70,"attr4":70,"attr5":70,"attr6":70}}]`)

	out, err := run(t, "balance", "--roster", roster, "--shuffle", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Team A")
	assert.Contains(t, out, "total 70, avg 70")
	assert.Contains(t, out, "spread: 70")
}

func TestBalanceRejectsBadRoster(t *testing.T) {
	for name, content := range map[string]string{
		"no name":      "- position: ST\n",
		"bad position": "- name: X\n  position: QB\n",
		"not a list":   "name: X\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, "balance", "--roster", writeFile(t, "r.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestToken(t *testing.T) {
	out, err := run(t, "token", "--secret", "s3cret", "--owner", "alice", "--name", "Alice", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.ParseToken("s3cret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)

	_, err = run(t, "token", "--secret", "s3cret")
	assert.Error(t, err, "owner is required")
}

func TestImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for x := 0; x < 60; x++ {
		for y := 0; y < 40; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 4), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	in := writeFile(t, "in.png", buf.String())
	outPath := filepath.Join(t.TempDir(), "card.png")

	out, err := run(t, "image", "--in", in, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "300x400")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 400, cfg.Height)

	_, err = run(t, "image", "--in", writeFile(t, "bad.png", "not an image"), "--out", outPath)
	assert.Error(t, err)
}

func TestRemotePlayersAndDraw(t *testing.T) {
	const secret = "remote-secret"
	store := dal.NewMemoryDAL()
	svc := draw.NewService(store)
	gs, _ := grpcserver.NewGRPCServer(grpcserver.NewServer(svc, secret))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	n, err := dal.SeedDemo(t.Context(), store, "remote")
	require.NoError(t, err)
	token, err := auth.IssueToken(secret, "remote", "", time.Hour)
	require.NoError(t, err)

	out, err := run(t, "players", "--server", lis.Addr().String(), "--token", token, "-o", "json")
	require.NoError(t, err)
	var players []models.Player
	require.NoError(t, json.Unmarshal([]byte(out), &players))
	assert.Len(t, players, n)

	_, err = run(t, "draw", "--server", lis.Addr().String(), "--token", token)
	assert.Error(t, err, "nothing selected yet")

	_, err = svc.SelectAll(t.Context(), "remote")
	require.NoError(t, err)
	out, err = run(t, "draw", "--server", lis.Addr().String(), "--token", token, "-o", "yaml", "--shuffle", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "spread:")
	assert.Contains(t, out, "seed: 5")
}

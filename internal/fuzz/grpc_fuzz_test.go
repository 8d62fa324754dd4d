package fuzz

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/metadata"

	"github.com/Billy-Davies-2/futdraw/internal/auth"
	"github.com/Billy-Davies-2/futdraw/internal/dal"
	"github.com/Billy-Davies-2/futdraw/internal/draw"
	grpcserver "github.com/Billy-Davies-2/futdraw/internal/grpc"
	"github.com/Billy-Davies-2/futdraw/internal/models"
)

const fuzzSecret = "fuzz-secret"

func card(name string, rating int) *models.Player {
	return &models.Player{
		Name: name,
		Attributes: models.Attributes{
			Attr1: rating, Attr2: rating, Attr3: rating, Attr4: rating, Attr5: rating, Attr6: rating,
		},
	}
}

func authedContext(t *testing.T) context.Context {
	tok, err := auth.IssueToken(fuzzSecret, "fuzz-owner", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
}

// FuzzGRPCSavePlayer fuzzes the gRPC SavePlayer endpoint
func FuzzGRPCSavePlayer(f *testing.F) {
	// Seed corpus
	f.Add("", "Test Player", "CM", 80, 70)
	f.Add("fixed-id", "", "", 0, 0)
	f.Add("x", "A", "gk", -100, 1000)

	f.Fuzz(func(t *testing.T, id, name, position string, a1, a2 int) {
		server := grpcserver.NewServer(draw.NewService(dal.NewMemoryDAL()), fuzzSecret)

		req := &grpcserver.SavePlayerRequest{Player: models.Player{
			ID:         id,
			Name:       name,
			Position:   models.Position(position),
			Attributes: models.Attributes{Attr1: a1, Attr2: a2, Attr3: 50, Attr4: 50, Attr5: 50, Attr6: 50},
		}}

		p, err := server.SavePlayer(authedContext(t), req)
		if err != nil {
			return
		}
		if p.Rating < models.MinAttribute || p.Rating > models.MaxAttribute {
			t.Fatalf("rating %d out of range", p.Rating)
		}
	})
}

// FuzzGRPCSetSelection fuzzes the gRPC SetSelection endpoint
func FuzzGRPCSetSelection(f *testing.F) {
	// Seed corpus with various id combinations
	f.Add([]byte{1, 2, 3})
	f.Add([]byte{})
	f.Add([]byte{99, 99, 99})

	f.Fuzz(func(t *testing.T, idBytes []byte) {
		store := dal.NewMemoryDAL()
		server := grpcserver.NewServer(draw.NewService(store), fuzzSecret)
		ctx := authedContext(t)

		// Convert bytes to string IDs
		ids := make([]string, len(idBytes))
		for i, b := range idBytes {
			ids[i] = string(rune('a' + b%8))
			if b%2 == 0 {
				if _, err := store.SavePlayer(ctx, "fuzz-owner", &models.Player{ID: ids[i], Name: ids[i]}); err != nil {
					t.Fatal(err)
				}
			}
		}

		resp, err := server.SetSelection(ctx, &grpcserver.SelectionRequest{PlayerIDs: ids})
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[string]bool)
		for _, id := range resp.PlayerIDs {
			if seen[id] {
				t.Fatalf("duplicate id %q in selection", id)
			}
			seen[id] = true
		}
	})
}

// FuzzGRPCBalance fuzzes the stateless Balance endpoint
func FuzzGRPCBalance(f *testing.F) {
	f.Add([]byte{90, 85, 80, 75, 70, 65, 60}, int64(0), false)
	f.Add([]byte{}, int64(1), true)
	f.Add([]byte{70, 70, 70, 70}, int64(-3), true)

	f.Fuzz(func(t *testing.T, ratings []byte, seed int64, useSeed bool) {
		server := grpcserver.NewServer(draw.NewService(dal.NewMemoryDAL()), fuzzSecret)

		req := &grpcserver.BalanceRequest{}
		for i, r := range ratings {
			req.Players = append(req.Players, *card(string(rune('a'+i%26)), int(r)))
		}
		if useSeed {
			req.Seed = &seed
		}

		resp, err := server.Balance(context.Background(), req)
		if len(ratings) > grpcserver.MaxBalancePlayers {
			if err == nil {
				t.Fatal("expected oversize roster to be rejected")
			}
			return
		}
		if err != nil {
			t.Fatal(err)
		}

		var members, total, sum int
		for _, team := range resp.Teams {
			members += len(team.Members)
			total += team.Total
		}
		for _, p := range req.Players {
			p.Rate()
			sum += p.Rating
		}
		if members != len(req.Players) || total != sum {
			t.Fatalf("lost players: %d members for %d players, total %d want %d", members, len(req.Players), total, sum)
		}
	})
}

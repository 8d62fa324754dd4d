package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"gopkg.in/yaml.v2"

	grpcserver "github.com/Billy-Davies-2/futdraw/internal/grpc"
)

// RemoteConfig addresses a running server.
type RemoteConfig struct {
	Server  string        `long:"server" env:"FUTDRAW_SERVER" default:"localhost:3000" description:"Server address (host:port)"`
	Token   string        `long:"token" env:"FUTDRAW_TOKEN" required:"true" description:"Sign-in token (see teamctl token)"`
	Timeout time.Duration `long:"timeout" default:"10s" description:"Request timeout"`
}

func (cfg RemoteConfig) call(fn func(context.Context, *grpcserver.TeamServiceClient) error) error {
	conn, err := grpc.NewClient(cfg.Server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing %s: %w", cfg.Server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+cfg.Token)

	return fn(ctx, grpcserver.NewTeamServiceClient(conn))
}

type cmdPlayers struct {
	RemoteConfig
	OutputConfig
}

func (cmd *cmdPlayers) Execute([]string) error {
	return cmd.call(func(ctx context.Context, client *grpcserver.TeamServiceClient) error {
		resp, err := client.ListPlayers(ctx, &grpcserver.ListPlayersRequest{})
		if err != nil {
			return err
		}

		switch cmd.Format {
		case "json":
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp.Players)
		case "yaml":
			b, err := yaml.Marshal(resp.Players)
			if err != nil {
				return err
			}
			_, err = stdout.Write(b)
			return err
		}

		table := tablewriter.NewWriter(stdout)
		table.Header("ID", "Name", "Position", "Rating")
		for _, p := range resp.Players {
			if err := table.Append([]string{p.ID, p.Name, string(p.Position), strconv.Itoa(p.Rating)}); err != nil {
				return err
			}
		}
		return table.Render()
	})
}

type cmdDraw struct {
	RemoteConfig
	OutputConfig
	Shuffle bool  `long:"shuffle" description:"Shuffle players with equal ratings"`
	Seed    int64 `long:"seed" description:"Seed for --shuffle"`
}

func (cmd *cmdDraw) Execute([]string) error {
	return cmd.call(func(ctx context.Context, client *grpcserver.TeamServiceClient) error {
		req := &grpcserver.DrawRequest{}
		if cmd.Shuffle {
			seed := cmd.Seed
			req.Seed = &seed
		}
		result, err := client.Draw(ctx, req)
		if err != nil {
			return err
		}
		return writeBalance(stdout, cmd.Format, balanceOutput{
			Teams:  result.Teams,
			Spread: result.Spread,
			Seed:   result.Seed,
		})
	})
}

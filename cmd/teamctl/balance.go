package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"

	"github.com/Billy-Davies-2/futdraw/internal/models"
	"github.com/Billy-Davies-2/futdraw/internal/teams"
)

type cmdBalance struct {
	Roster  string `long:"roster" short:"r" default:"-" description:"YAML or JSON roster file. Use - for stdin"`
	Shuffle bool   `long:"shuffle" description:"Shuffle players with equal ratings"`
	Seed    int64  `long:"seed" description:"Seed for --shuffle"`
	OutputConfig
}

// balanceOutput is what balance and draw print.
type balanceOutput struct {
	Teams  [teams.Count]models.Team `json:"teams" yaml:"teams"`
	Spread int                      `json:"spread" yaml:"spread"`
	Seed   *int64                   `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func (cmd *cmdBalance) Execute([]string) error {
	players, err := readRoster(cmd.Roster)
	if err != nil {
		return err
	}

	var opts []teams.Option
	out := balanceOutput{}
	if cmd.Shuffle {
		seed := cmd.Seed
		out.Seed = &seed
		opts = append(opts, teams.WithTieShuffle(seed))
	}
	out.Teams = teams.Balance(players, opts...)
	out.Spread = teams.Spread(out.Teams)

	return writeBalance(stdout, cmd.Format, out)
}

// readRoster reads a list of player cards. Names are required, positions
// default to ST and ratings are recomputed from the attributes.
func readRoster(path string) ([]models.Player, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	var players []models.Player
	if err := yaml.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("decoding roster %s: %w", path, err)
	}
	for i := range players {
		p := &players[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("roster entry %d: name is required", i+1)
		}
		if p.Position == "" {
			p.Position = models.DefaultPosition
		}
		if p.Position, err = models.ParsePosition(string(p.Position)); err != nil {
			return nil, fmt.Errorf("roster entry %d (%s): %w", i+1, p.Name, err)
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(i + 1)
		}
		p.Rate()
	}
	return players, nil
}

func writeBalance(w io.Writer, format string, out balanceOutput) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		b, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Team", "Player", "Position", "Rating")
	for _, team := range out.Teams {
		for _, p := range team.Members {
			if err := table.Append([]string{team.Name, p.Name, string(p.Position), strconv.Itoa(p.Rating)}); err != nil {
				return err
			}
		}
		summary := fmt.Sprintf("total %d, avg %d", team.Total, team.Average)
		if err := table.Append([]string{team.Name, summary, "", ""}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "spread: %d\n", out.Spread)
	return err
}

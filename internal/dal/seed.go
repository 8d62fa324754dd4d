package dal

import (
	"context"
	"fmt"

	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// DemoRoster returns a fifteen card roster for local development.
func DemoRoster() []models.Player {
	card := func(name string, pos models.Position, a1, a2, a3, a4, a5, a6 int) models.Player {
		return models.Player{
			Name:       name,
			Position:   pos,
			Attributes: models.Attributes{Attr1: a1, Attr2: a2, Attr3: a3, Attr4: a4, Attr5: a5, Attr6: a6},
		}
	}
	return []models.Player{
		card("Rafa Lima", models.PositionGK, 84, 82, 70, 86, 55, 83),
		card("Dudu Costa", models.PositionGK, 72, 74, 66, 75, 50, 71),
		card("Beto Alves", models.PositionCB, 62, 45, 64, 60, 85, 84),
		card("Caio Nunes", models.PositionCB, 70, 40, 58, 55, 80, 78),
		card("Leo Prado", models.PositionLB, 86, 55, 72, 76, 74, 70),
		card("Igor Melo", models.PositionRB, 80, 50, 70, 72, 72, 68),
		card("Tiago Reis", models.PositionCDM, 68, 62, 78, 72, 80, 82),
		card("Vini Souza", models.PositionCM, 74, 70, 84, 80, 66, 72),
		card("Gabi Rocha", models.PositionCAM, 78, 82, 86, 88, 40, 60),
		card("Nando Pires", models.PositionLM, 85, 70, 75, 82, 45, 62),
		card("Davi Torres", models.PositionRW, 92, 80, 76, 88, 35, 64),
		card("Joca Martins", models.PositionLW, 88, 76, 74, 86, 38, 66),
		card("Rico Farias", models.PositionCF, 80, 86, 78, 84, 40, 74),
		card("Teo Barros", models.PositionST, 84, 90, 68, 80, 36, 82),
		card("Lucas Moura", models.PositionST, 76, 78, 62, 72, 30, 76),
	}
}

// SeedDemo stores DemoRoster for owner when the owner has no players yet.
func SeedDemo(ctx context.Context, store RosterDAL, owner string) (int, error) {
	existing, err := store.ListPlayers(ctx, owner)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	n := 0
	for _, p := range DemoRoster() {
		p := p
		if _, err := store.SavePlayer(ctx, owner, &p); err != nil {
			return n, fmt.Errorf("seeding %q: %w", p.Name, err)
		}
		n++
	}
	return n, nil
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesRating(t *testing.T) {
	tests := []struct {
		name  string
		attrs Attributes
		want  int
	}{
		{"defaults", DefaultAttributes(), 75},
		{"all min", Attributes{1, 1, 1, 1, 1, 1}, 1},
		{"all max", Attributes{99, 99, 99, 99, 99, 99}, 99},
		{"half rounds up", Attributes{75, 75, 75, 76, 76, 76}, 76},   // 75.5
		{"below half rounds down", Attributes{75, 75, 75, 75, 75, 77}, 75}, // 75.33
		{"above half rounds up", Attributes{80, 80, 80, 80, 81, 81}, 80},   // 80.33
		{"mixed", Attributes{90, 60, 70, 85, 40, 77}, 70},                 // 70.33
		{"five sixths", Attributes{70, 71, 71, 71, 71, 71}, 71},           // 70.83
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.attrs.Rating())
		})
	}
}

func TestRatingAlwaysInRange(t *testing.T) {
	for v := MinAttribute; v <= MaxAttribute; v++ {
		a := Attributes{v, MinAttribute, MaxAttribute, v, v, MaxAttribute}
		r := a.Rating()
		if r < MinAttribute || r > MaxAttribute {
			t.Fatalf("rating %d out of range for %+v", r, a)
		}
	}
}

func TestClamp(t *testing.T) {
	a := Attributes{0, -5, 100, 250, 50, 99}.Clamp()
	assert.Equal(t, Attributes{1, 1, 99, 99, 50, 99}, a)
}

func TestPlayerRate(t *testing.T) {
	p := Player{Name: "Keeper", Position: PositionGK, Attributes: Attributes{0, 120, 60, 60, 60, 60}, Rating: 12}
	p.Rate()
	assert.Equal(t, Attributes{1, 99, 60, 60, 60, 60}, p.Attributes)
	assert.Equal(t, 57, p.Rating) // 340/6 = 56.67
}

func TestParsePosition(t *testing.T) {
	for _, pos := range Positions {
		got, err := ParsePosition(string(pos))
		require.NoError(t, err)
		assert.Equal(t, pos, got)
	}

	got, err := ParsePosition(" cam ")
	require.NoError(t, err)
	assert.Equal(t, PositionCAM, got)

	_, err = ParsePosition("SW")
	assert.Error(t, err)
	assert.Len(t, Positions, 13)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "DIV", Labels(PositionGK).Attr1)
	assert.Equal(t, "POS", Labels(PositionGK).Attr6)
	for _, pos := range Positions {
		if pos.IsGoalkeeper() {
			continue
		}
		l := Labels(pos)
		assert.Equal(t, AttributeLabels{"PAC", "SHO", "PAS", "DRI", "DEF", "PHY"}, l, "position %s", pos)
	}
}

func TestRoundDiv(t *testing.T) {
	assert.Equal(t, 0, RoundDiv(0, 3))
	assert.Equal(t, 2, RoundDiv(5, 3))  // 1.67
	assert.Equal(t, 3, RoundDiv(5, 2))  // 2.5
	assert.Equal(t, 80, RoundDiv(240, 3))
}

func TestSelectionContains(t *testing.T) {
	s := Selection{Owner: "u1", PlayerIDs: []string{"a", "b"}}
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
}

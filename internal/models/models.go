package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownPosition is returned by ParsePosition.
var ErrUnknownPosition = errors.New("unknown position")

// Attribute bounds for every slot of a player card.
const (
	MinAttribute     = 1
	MaxAttribute     = 99
	DefaultAttribute = 75
)

// Position is a player's pitch position
type Position string

const (
	PositionGK  Position = "GK"
	PositionCB  Position = "CB"
	PositionLB  Position = "LB"
	PositionRB  Position = "RB"
	PositionCDM Position = "CDM"
	PositionCM  Position = "CM"
	PositionCAM Position = "CAM"
	PositionLM  Position = "LM"
	PositionRM  Position = "RM"
	PositionLW  Position = "LW"
	PositionRW  Position = "RW"
	PositionCF  Position = "CF"
	PositionST  Position = "ST"

	DefaultPosition = PositionST
)

// Positions lists every position in editor order.
var Positions = []Position{
	PositionGK, PositionCB, PositionLB, PositionRB, PositionCDM, PositionCM, PositionCAM,
	PositionLM, PositionRM, PositionLW, PositionRW, PositionCF, PositionST,
}

// ParsePosition validates a position code, case-insensitively.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Positions {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownPosition, s)
}

// IsGoalkeeper reports whether the position uses goalkeeper labels.
func (p Position) IsGoalkeeper() bool {
	return p == PositionGK
}

// Attributes are the six numeric card attributes. The slot meaning depends on
// the position (see Labels) but the rating formula does not.
type Attributes struct {
	Attr1 int `json:"attr1" yaml:"attr1" schema:"attr1"`
	Attr2 int `json:"attr2" yaml:"attr2" schema:"attr2"`
	Attr3 int `json:"attr3" yaml:"attr3" schema:"attr3"`
	Attr4 int `json:"attr4" yaml:"attr4" schema:"attr4"`
	Attr5 int `json:"attr5" yaml:"attr5" schema:"attr5"`
	Attr6 int `json:"attr6" yaml:"attr6" schema:"attr6"`
}

// DefaultAttributes is what a new card starts with.
func DefaultAttributes() Attributes {
	return Attributes{
		Attr1: DefaultAttribute, Attr2: DefaultAttribute, Attr3: DefaultAttribute,
		Attr4: DefaultAttribute, Attr5: DefaultAttribute, Attr6: DefaultAttribute,
	}
}

// Values returns the slots in order attr1..attr6.
func (a Attributes) Values() [6]int {
	return [6]int{a.Attr1, a.Attr2, a.Attr3, a.Attr4, a.Attr5, a.Attr6}
}

// Clamp returns a copy with every slot forced into [MinAttribute, MaxAttribute].
func (a Attributes) Clamp() Attributes {
	c := func(v int) int {
		if v < MinAttribute {
			return MinAttribute
		}
		if v > MaxAttribute {
			return MaxAttribute
		}
		return v
	}
	return Attributes{
		Attr1: c(a.Attr1), Attr2: c(a.Attr2), Attr3: c(a.Attr3),
		Attr4: c(a.Attr4), Attr5: c(a.Attr5), Attr6: c(a.Attr6),
	}
}

// Rating is the overall rating: the mean of the six slots rounded half up.
func (a Attributes) Rating() int {
	sum := 0
	for _, v := range a.Values() {
		sum += v
	}
	return RoundDiv(sum, 6)
}

// RoundDiv divides num by den rounding halves up. den must be positive and
// num non-negative, which holds for ratings and their sums.
func RoundDiv(num, den int) int {
	return (2*num + den) / (2 * den)
}

// AttributeLabels are the display names of the six slots.
type AttributeLabels struct {
	Attr1 string `json:"attr1"`
	Attr2 string `json:"attr2"`
	Attr3 string `json:"attr3"`
	Attr4 string `json:"attr4"`
	Attr5 string `json:"attr5"`
	Attr6 string `json:"attr6"`
}

var (
	outfieldLabels   = AttributeLabels{"PAC", "SHO", "PAS", "DRI", "DEF", "PHY"}
	goalkeeperLabels = AttributeLabels{"DIV", "HAN", "KIC", "REF", "SPD", "POS"}
)

// Labels returns the slot names for a position. Display only.
func Labels(p Position) AttributeLabels {
	if p.IsGoalkeeper() {
		return goalkeeperLabels
	}
	return outfieldLabels
}

// Player is a player card
type Player struct {
	ID         string     `json:"id" yaml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name"`
	Position   Position   `json:"position" yaml:"position"`
	Image      string     `json:"image,omitempty" yaml:"image,omitempty"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
	Rating     int        `json:"rating" yaml:"rating,omitempty"`
}

// Rate clamps the attributes and recomputes Rating from them.
func (p *Player) Rate() {
	p.Attributes = p.Attributes.Clamp()
	p.Rating = p.Attributes.Rating()
}

// Team is one side of a draw. Teams are computed on demand and never stored.
type Team struct {
	Name    string   `json:"name" yaml:"name"`
	Color   string   `json:"color" yaml:"color"`
	Members []Player `json:"members" yaml:"members"`
	Total   int      `json:"total" yaml:"total"`
	Average int      `json:"average" yaml:"average"`
}

// Selection is the set of player ids chosen for the next draw.
type Selection struct {
	Owner     string   `json:"owner"`
	PlayerIDs []string `json:"playerIds"`
}

// Contains reports whether id is selected.
func (s Selection) Contains(id string) bool {
	for _, sel := range s.PlayerIDs {
		if sel == id {
			return true
		}
	}
	return false
}

// DrawResult is one run of the balancer over an owner's selection.
type DrawResult struct {
	ID          string    `json:"id" yaml:"id"`
	Owner       string    `json:"owner" yaml:"owner"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	PlayerCount int       `json:"playerCount" yaml:"playerCount"`
	Spread      int       `json:"spread" yaml:"spread"`
	Seed        *int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Teams       [3]Team   `json:"teams" yaml:"teams"`
}

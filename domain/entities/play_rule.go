package entities

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Game and play type codes of the default catalogue
const (
	GameCodeLotto539 = "LOTTO539"

	PlayTypeBasic = "BASIC"
	PlayTypeStar2 = "STAR2"
	PlayTypeStar3 = "STAR3"
)

// Prize tiers used by the default catalogue
const (
	PrizeTier1 = "TIER1"
	PrizeTier2 = "TIER2"
	PrizeTier3 = "TIER3"
	PrizeTier4 = "TIER4"
)

// TierMatcher decides which tier, if any, a ticket line wins against the winning numbers
type TierMatcher func(line, winning LotteryNumbers) (tier string, won bool)

// PlayRule describes one betting mode of a game
type PlayRule struct {
	Code      string
	Name      string
	PickCount int
	UnitCost  decimal.Decimal // Debited per paid ticket line
	Tiers     []string
	Match     TierMatcher
}

// HasTier reports whether tier is one of the rule's prize tiers
func (r *PlayRule) HasTier(tier string) bool {
	for _, t := range r.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

// GameDefinition is a game with its drawn number format and play types
type GameDefinition struct {
	Code       string
	DrawFormat NumberFormat
	PlayTypes  []*PlayRule
}

// LineFormat returns the number format a ticket line of the given rule must satisfy
func (g *GameDefinition) LineFormat(rule *PlayRule) NumberFormat {
	return NumberFormat{Count: rule.PickCount, Min: g.DrawFormat.Min, Max: g.DrawFormat.Max}
}

// PlayRuleRegistry is an immutable catalogue of games and their play rules.
// It is built once and passed to every component that needs rule lookups.
type PlayRuleRegistry struct {
	games map[string]*GameDefinition
	rules map[string]map[string]*PlayRule
}

// NewPlayRuleRegistry validates and indexes the given game definitions
func NewPlayRuleRegistry(games ...*GameDefinition) (*PlayRuleRegistry, error) {
	reg := &PlayRuleRegistry{
		games: make(map[string]*GameDefinition, len(games)),
		rules: make(map[string]map[string]*PlayRule, len(games)),
	}

	for _, g := range games {
		if g.Code == "" {
			return nil, fmt.Errorf("game code is required")
		}
		if _, dup := reg.games[g.Code]; dup {
			return nil, fmt.Errorf("duplicate game %s", g.Code)
		}
		if g.DrawFormat.Count <= 0 || g.DrawFormat.Min > g.DrawFormat.Max ||
			g.DrawFormat.Max-g.DrawFormat.Min+1 < g.DrawFormat.Count {
			return nil, fmt.Errorf("game %s has an invalid draw format", g.Code)
		}

		rules := make(map[string]*PlayRule, len(g.PlayTypes))
		for _, r := range g.PlayTypes {
			if r.Code == "" {
				return nil, fmt.Errorf("game %s has a play type without code", g.Code)
			}
			if _, dup := rules[r.Code]; dup {
				return nil, fmt.Errorf("game %s has duplicate play type %s", g.Code, r.Code)
			}
			if len(r.Tiers) == 0 || r.Match == nil {
				return nil, fmt.Errorf("play type %s/%s needs tiers and a matcher", g.Code, r.Code)
			}
			if r.PickCount <= 0 || r.PickCount > g.DrawFormat.Count {
				return nil, fmt.Errorf("play type %s/%s has an invalid pick count", g.Code, r.Code)
			}
			if r.UnitCost.IsNegative() {
				return nil, fmt.Errorf("play type %s/%s has a negative unit cost", g.Code, r.Code)
			}
			rules[r.Code] = r
		}

		reg.games[g.Code] = g
		reg.rules[g.Code] = rules
	}

	return reg, nil
}

// GetGame returns the game definition for gameCode
func (r *PlayRuleRegistry) GetGame(gameCode string) (*GameDefinition, bool) {
	g, ok := r.games[gameCode]
	return g, ok
}

// GetRule returns the rule of a play type within a game
func (r *PlayRuleRegistry) GetRule(gameCode, playType string) (*PlayRule, bool) {
	rules, ok := r.rules[gameCode]
	if !ok {
		return nil, false
	}
	rule, ok := rules[playType]
	return rule, ok
}

// GetAllowedPlayTypes returns the sorted play type codes of a game
func (r *PlayRuleRegistry) GetAllowedPlayTypes(gameCode string) []string {
	rules := r.rules[gameCode]
	codes := make([]string, 0, len(rules))
	for code := range rules {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsPlayTypeAllowed reports whether the play type exists for the game
func (r *PlayRuleRegistry) IsPlayTypeAllowed(gameCode, playType string) bool {
	_, ok := r.GetRule(gameCode, playType)
	return ok
}

// IsTierAllowed reports whether tier is defined by the play type's rule
func (r *PlayRuleRegistry) IsTierAllowed(gameCode, playType, tier string) bool {
	rule, ok := r.GetRule(gameCode, playType)
	return ok && rule.HasTier(tier)
}

// matchCountTiers maps an exact match count to a tier
func matchCountTiers(tiersByMatches map[int]string) TierMatcher {
	return func(line, winning LotteryNumbers) (string, bool) {
		tier, ok := tiersByMatches[line.CountMatches(winning)]
		return tier, ok
	}
}

// allPickedTier wins the single tier when every picked number was drawn
func allPickedTier(tier string) TierMatcher {
	return func(line, winning LotteryNumbers) (string, bool) {
		if winning.ContainsAll(line) {
			return tier, true
		}
		return "", false
	}
}

// DefaultPlayRuleRegistry builds the 5-of-39 catalogue
func DefaultPlayRuleRegistry() *PlayRuleRegistry {
	lotto539 := &GameDefinition{
		Code:       GameCodeLotto539,
		DrawFormat: NumberFormat{Count: 5, Min: 1, Max: 39},
		PlayTypes: []*PlayRule{
			{
				Code:      PlayTypeBasic,
				Name:      "Basic 5 of 39",
				PickCount: 5,
				UnitCost:  decimal.NewFromInt(50),
				Tiers:     []string{PrizeTier1, PrizeTier2, PrizeTier3, PrizeTier4},
				Match: matchCountTiers(map[int]string{
					5: PrizeTier1,
					4: PrizeTier2,
					3: PrizeTier3,
					2: PrizeTier4,
				}),
			},
			{
				Code:      PlayTypeStar2,
				Name:      "Two star",
				PickCount: 2,
				UnitCost:  decimal.NewFromInt(25),
				Tiers:     []string{PrizeTier1},
				Match:     allPickedTier(PrizeTier1),
			},
			{
				Code:      PlayTypeStar3,
				Name:      "Three star",
				PickCount: 3,
				UnitCost:  decimal.NewFromInt(25),
				Tiers:     []string{PrizeTier1},
				Match:     allPickedTier(PrizeTier1),
			},
		},
	}

	reg, err := NewPlayRuleRegistry(lotto539)
	if err != nil {
		// the default catalogue is static; failing here is a programming error
		panic(fmt.Sprintf("invalid default play rule registry: %v", err))
	}
	return reg
}

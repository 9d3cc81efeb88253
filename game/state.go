package game

// CardView is the client-facing representation of a card instance.
type CardView struct {
	InstanceID int      `json:"instanceId"`
	TemplateID int      `json:"templateId"`
	Name       string   `json:"name"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"maxHp"`
	Attack     int      `json:"attack"`
	Cost       int      `json:"cost"`
	Type       string   `json:"type"`
	States     []string `json:"states,omitempty"`
}

// BuildCardView constructs the client view of c.
func BuildCardView(c *CardInstance) CardView {
	v := CardView{
		InstanceID: c.InstanceID,
		TemplateID: c.Template.ID,
		Name:       c.Template.Name,
		HP:         c.HP,
		MaxHP:      c.Template.HP,
		Attack:     c.Template.Attack,
		Cost:       c.Template.Cost,
		Type:       c.Template.Type.String(),
	}
	for _, f := range []CardState{Engage, AttackEngage, DefenseEngage} {
		if c.HasState(f) {
			v.States = append(v.States, f.String())
		}
	}
	return v
}

func buildCardViews(cards []*CardInstance) []CardView {
	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, BuildCardView(c))
	}
	return views
}

// ChampionView is the client-facing representation of a champion.
type ChampionView struct {
	OwnerID      string `json:"ownerId"`
	HP           int    `json:"hp"`
	Gold         int    `json:"gold"`
	BaseGold     int    `json:"baseGold"`
	FatigueCount int    `json:"fatigueCount"`
}

func buildChampionView(c *Champion) ChampionView {
	return ChampionView{
		OwnerID:      c.OwnerID,
		HP:           c.HP,
		Gold:         c.Gold,
		BaseGold:     c.BaseGold,
		FatigueCount: c.FatigueCount,
	}
}

// SlotView is one board slot; Card is nil when the slot is empty.
type SlotView struct {
	Slot int       `json:"slot"`
	Card *CardView `json:"card,omitempty"`
}

func buildBoardView(b *Board) []SlotView {
	views := make([]SlotView, BoardSize)
	for i := range views {
		views[i].Slot = i
		if c := b.CardFromSlot(i); c != nil {
			cv := BuildCardView(c)
			views[i].Card = &cv
		}
	}
	return views
}

// PhaseChangeResult describes the session after a phase transition.
type PhaseChangeResult struct {
	PreviousPhase  string `json:"previousPhase,omitempty"`
	Phase          string `json:"phase"`
	ActivePlayerID string `json:"activePlayerId"`
	TurnNumber     int    `json:"turnNumber"`
	TurnChanged    bool   `json:"turnChanged"`
	CanAct         bool   `json:"canAct"`
	AutoChanged    bool   `json:"autoChanged"`
	Reason         string `json:"reason,omitempty"`
	// PhaseEndsAtUnixMs is zero when the phase timer is disabled.
	PhaseEndsAtUnixMs int64 `json:"phaseEndsAtUnixMs,omitempty"`
}

// DrawCardsResult reports one draw call, split into what the drawing
// player may see and what the opponent may see.
type DrawCardsResult struct {
	Player   DrawCardsPlayerView   `json:"player"`
	Opponent DrawCardsOpponentView `json:"opponent"`
}

// DrawCardsPlayerView carries the drawn card identities.
type DrawCardsPlayerView struct {
	PlayerID      string     `json:"playerId"`
	Drawn         []CardView `json:"drawn"`
	Burned        []CardView `json:"burned"`
	FatigueDamage int        `json:"fatigueDamage"`
	// PreviousFatigueDamage is the fatigue damage taken before this draw.
	PreviousFatigueDamage int `json:"previousFatigueDamage"`
	DeckSize              int `json:"deckSize"`
	HandSize              int `json:"handSize"`
	ChampionHP            int `json:"championHp"`
}

// DrawCardsOpponentView carries counts only.
type DrawCardsOpponentView struct {
	PlayerID      string `json:"playerId"`
	DrawnCount    int    `json:"drawnCount"`
	BurnedCount   int    `json:"burnedCount"`
	FatigueDamage int    `json:"fatigueDamage"`
	DeckSize      int    `json:"deckSize"`
	HandSize      int    `json:"handSize"`
	ChampionHP    int    `json:"championHp"`
}

// PlayCardResult is sent to the player who placed the card.
type PlayCardResult struct {
	PlayerID      string   `json:"playerId"`
	Card          CardView `json:"card"`
	Slot          int      `json:"slot"`
	RemainingGold int      `json:"remainingGold"`
	HandSize      int      `json:"handSize"`
}

// OpponentPlayCardResult is the placement-only view for the opponent.
type OpponentPlayCardResult struct {
	PlayerID   string `json:"playerId"`
	InstanceID int    `json:"instanceId"`
	TemplateID int    `json:"templateId"`
	Slot       int    `json:"slot"`
	HandSize   int    `json:"handSize"`
}

// AttackResponse lists declared attackers in declaration order.
type AttackResponse struct {
	PlayerID    string `json:"playerId"`
	OpponentID  string `json:"opponentId"`
	AttackerIDs []int  `json:"attackerIds"`
}

// DefensePair is one block assignment.
type DefensePair struct {
	DefenderID int `json:"defenderId"`
	AttackerID int `json:"attackerId"`
}

// DefenseResponse lists attackers and the current block assignments.
type DefenseResponse struct {
	PlayerID    string        `json:"playerId"`
	OpponentID  string        `json:"opponentId"`
	AttackerIDs []int         `json:"attackerIds"`
	Defenses    []DefensePair `json:"defenses"`
}

// BattleResult is the outcome of one attacker during combat resolution.
// DefenderID is zero when the attacker went unblocked.
type BattleResult struct {
	AttackerID       int `json:"attackerId"`
	DefenderID       int `json:"defenderId,omitempty"`
	DamageToDefender int `json:"damageToDefender"`
	DamageToAttacker int `json:"damageToAttacker"`
	ChampionDamage   int `json:"championDamage"`
	// ChampionDamageDealt is counter-damage to the attacking champion;
	// always zero until an effect system grants it.
	ChampionDamageDealt int  `json:"championDamageDealt"`
	AttackerDied        bool `json:"attackerDied"`
	DefenderDied        bool `json:"defenderDied"`
}

// GameOverResult is sent once when a champion falls.
type GameOverResult struct {
	WinnerID   string `json:"winnerId,omitempty"`
	LoserID    string `json:"loserId,omitempty"`
	Draw       bool   `json:"draw"`
	TurnNumber int    `json:"turnNumber"`
	Reason     string `json:"reason"`

	// PlayerIDs lists both seats, so a draw can still be routed.
	PlayerIDs []string `json:"playerIds"`
}

// SnapshotView is the full state visible to one player, used on (re)join.
type SnapshotView struct {
	Code           string       `json:"code"`
	Phase          string       `json:"phase"`
	ActivePlayerID string       `json:"activePlayerId"`
	TurnNumber     int          `json:"turnNumber"`
	Hand           []CardView   `json:"hand"`
	DeckSize       int          `json:"deckSize"`
	Board          []SlotView   `json:"board"`
	Champion       ChampionView `json:"champion"`
	Graveyard      []CardView   `json:"graveyard"`
	Opponent       OpponentView `json:"opponent"`
	AttackerIDs    []int        `json:"attackerIds"`
	Finished       bool         `json:"finished"`
}

// OpponentView hides the opponent's hand contents.
type OpponentView struct {
	PlayerID  string       `json:"playerId"`
	HandSize  int          `json:"handSize"`
	DeckSize  int          `json:"deckSize"`
	Board     []SlotView   `json:"board"`
	Champion  ChampionView `json:"champion"`
	Graveyard []CardView   `json:"graveyard"`
}

package game

// Default champion values.
const (
	DefaultChampionHP = 30
	DefaultBaseGold   = 1
)

// Champion is a player's avatar: health, per-turn gold and fatigue.
type Champion struct {
	OwnerID      string
	HP           int
	BaseGold     int
	Gold         int
	FatigueCount int
}

// NewChampion returns a champion with default health and gold.
func NewChampion(ownerID string) *Champion {
	c := &Champion{}
	c.Init(ownerID, DefaultChampionHP, DefaultBaseGold)
	return c
}

// Init resets the champion for a new match.
func (c *Champion) Init(ownerID string, hp, baseGold int) {
	c.OwnerID = ownerID
	c.HP = hp
	c.BaseGold = baseGold
	c.Gold = 0
	c.FatigueCount = 0
}

// ApplyDamage subtracts source's attack from HP and returns the amount.
func (c *Champion) ApplyDamage(source *CardInstance) int {
	dmg := source.Attack()
	c.HP -= dmg
	return dmg
}

// ApplyFatigueDamage increments the fatigue counter and then deals damage
// equal to the new count. It returns the damage dealt.
func (c *Champion) ApplyFatigueDamage() int {
	c.FatigueCount++
	c.HP -= c.FatigueCount
	return c.FatigueCount
}

// FatigueDamageTaken returns the total fatigue damage dealt so far.
func (c *Champion) FatigueDamageTaken() int {
	return c.FatigueCount * (c.FatigueCount + 1) / 2
}

func (c *Champion) IsDead() bool {
	return c.HP <= 0
}

// TryPaidCard reports whether the remaining gold covers cost.
func (c *Champion) TryPaidCard(cost int) bool {
	return cost >= 0 && c.Gold >= cost
}

// PayCard spends cost from the remaining gold. Callers check TryPaidCard first.
func (c *Champion) PayCard(cost int) {
	c.Gold -= cost
}

// ResetGold restores the remaining gold to BaseGold.
func (c *Champion) ResetGold() {
	c.Gold = c.BaseGold
}

// GrowGold raises BaseGold by step, capped at max. A non-positive max means no cap.
func (c *Champion) GrowGold(step, max int) {
	if step <= 0 {
		return
	}
	c.BaseGold += step
	if max > 0 && c.BaseGold > max {
		c.BaseGold = max
	}
}

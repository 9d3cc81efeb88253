package game

// CardType is the catalog category of a card.
type CardType int

const (
	Guard CardType = iota
	Spell
	Equipment
)

// String returns the protocol string for a CardType.
func (ct CardType) String() string {
	switch ct {
	case Guard:
		return "guard"
	case Spell:
		return "spell"
	case Equipment:
		return "equipment"
	default:
		return "unknown"
	}
}

// ParseCardType is the inverse of CardType.String.
func ParseCardType(s string) (CardType, bool) {
	switch s {
	case "guard":
		return Guard, true
	case "spell":
		return Spell, true
	case "equipment":
		return Equipment, true
	}
	return 0, false
}

// CardTemplate is the immutable catalog data a card instance is built from.
type CardTemplate struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	HP      int      `json:"hp"`
	Attack  int      `json:"attack"`
	Cost    int      `json:"cost"`
	Type    CardType `json:"type"`
	Classes []string `json:"classes,omitempty"`
}

// CardState is a set of engagement flags carried by a card instance.
type CardState uint8

const (
	// Engage marks a card that cannot act this turn (e.g. it was just placed).
	Engage CardState = 1 << iota
	// AttackEngage marks a card declared as an attacker.
	AttackEngage
	// DefenseEngage marks a card assigned to block an attacker.
	DefenseEngage
)

// engageStates are the flags stripped by a board reset.
const engageStates = Engage | AttackEngage | DefenseEngage

// String returns a readable form of the set, e.g. "engage|attack_engage".
func (s CardState) String() string {
	if s == 0 {
		return "none"
	}
	out := ""
	for _, f := range []struct {
		flag CardState
		name string
	}{{Engage, "engage"}, {AttackEngage, "attack_engage"}, {DefenseEngage, "defense_engage"}} {
		if s&f.flag != 0 {
			if out != "" {
				out += "|"
			}
			out += f.name
		}
	}
	return out
}

// CardInstance is the runtime state of one card inside a session.
type CardInstance struct {
	Template   *CardTemplate
	InstanceID int
	HP         int
	states     CardState
}

// NewCardInstance binds a template to a session-unique instance id.
func NewCardInstance(tmpl *CardTemplate, instanceID int) *CardInstance {
	return &CardInstance{
		Template:   tmpl,
		InstanceID: instanceID,
		HP:         tmpl.HP,
	}
}

// Attack returns the template's attack value.
func (c *CardInstance) Attack() int {
	return c.Template.Attack
}

// Cost returns the template's gold cost.
func (c *CardInstance) Cost() int {
	return c.Template.Cost
}

// ApplyDamage subtracts source's attack from HP and returns the amount
// subtracted. HP may go negative.
func (c *CardInstance) ApplyDamage(source *CardInstance) int {
	dmg := source.Attack()
	c.HP -= dmg
	return dmg
}

// IsDead reports whether HP has dropped to zero or below.
func (c *CardInstance) IsDead() bool {
	return c.HP <= 0
}

func (c *CardInstance) AddState(s CardState) {
	c.states |= s
}

func (c *CardInstance) RemoveState(s CardState) {
	c.states &^= s
}

// HasState reports whether every flag in s is set. Equivalent to HasAllStates(s).
func (c *CardInstance) HasState(s CardState) bool {
	return c.states&s == s
}

func (c *CardInstance) HasAllStates(states ...CardState) bool {
	for _, s := range states {
		if c.states&s != s {
			return false
		}
	}
	return true
}

func (c *CardInstance) HasAnyState(states ...CardState) bool {
	for _, s := range states {
		if c.states&s != 0 {
			return true
		}
	}
	return false
}

// States returns the current flag set.
func (c *CardInstance) States() CardState {
	return c.states
}

package game

// BoardSize is the number of slots on each player's board.
const BoardSize = 5

// SlotState is the answer to "can the card in this slot act?".
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotCanAttack
	SlotCanDefend
	SlotEngaged
	SlotAttackEngaged
	SlotDefenseEngaged
)

// String returns the protocol string for a SlotState.
func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotCanAttack:
		return "can_attack"
	case SlotCanDefend:
		return "can_defend"
	case SlotEngaged:
		return "engage"
	case SlotAttackEngaged:
		return "attack_engage"
	case SlotDefenseEngaged:
		return "defense_engage"
	default:
		return "unknown"
	}
}

// Board is one player's row of slots. It tracks positions only; card
// lifetime belongs to the session.
type Board struct {
	slots [BoardSize]*CardInstance
}

func NewBoard() *Board {
	return &Board{}
}

func validSlot(slot int) bool {
	return slot >= 0 && slot < BoardSize
}

// IsAvailable reports whether slot is in range and empty.
func (b *Board) IsAvailable(slot int) bool {
	return validSlot(slot) && b.slots[slot] == nil
}

// PosCard puts card in slot, overwriting whatever is there.
func (b *Board) PosCard(card *CardInstance, slot int) {
	if !validSlot(slot) {
		return
	}
	b.slots[slot] = card
}

// ClearSpot empties the slot holding instanceID, wherever it is.
func (b *Board) ClearSpot(instanceID int) bool {
	if slot, ok := b.TryGetCardPos(instanceID); ok {
		b.slots[slot] = nil
		return true
	}
	return false
}

// CardFromSlot returns the card in slot, or nil.
func (b *Board) CardFromSlot(slot int) *CardInstance {
	if !validSlot(slot) {
		return nil
	}
	return b.slots[slot]
}

func (b *Board) TryGetCardPos(instanceID int) (int, bool) {
	for i, c := range b.slots {
		if c != nil && c.InstanceID == instanceID {
			return i, true
		}
	}
	return -1, false
}

// TryGetCard returns the card with instanceID if it is on this board.
func (b *Board) TryGetCard(instanceID int) (*CardInstance, bool) {
	slot, ok := b.TryGetCardPos(instanceID)
	if !ok {
		return nil, false
	}
	return b.slots[slot], true
}

// Cards returns the occupied slots in slot order.
func (b *Board) Cards() []*CardInstance {
	var out []*CardInstance
	for _, c := range b.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (b *Board) HasAttackableCards() bool {
	for i := range b.slots {
		if b.CanAttackSpot(i) == SlotCanAttack {
			return true
		}
	}
	return false
}

// CanAttackSpot reports whether the card in slot may be declared as an attacker.
func (b *Board) CanAttackSpot(slot int) SlotState {
	c := b.CardFromSlot(slot)
	switch {
	case c == nil:
		return SlotEmpty
	case c.HasState(AttackEngage):
		return SlotAttackEngaged
	case c.HasState(Engage):
		return SlotEngaged
	default:
		return SlotCanAttack
	}
}

func (b *Board) HasDefendableCards() bool {
	for i := range b.slots {
		if b.CanDefendSpot(i) == SlotCanDefend {
			return true
		}
	}
	return false
}

// CanDefendSpot reports whether the card in slot may be assigned as a blocker.
func (b *Board) CanDefendSpot(slot int) SlotState {
	c := b.CardFromSlot(slot)
	switch {
	case c == nil:
		return SlotEmpty
	case c.HasState(DefenseEngage):
		return SlotDefenseEngaged
	case c.HasState(Engage):
		return SlotEngaged
	default:
		return SlotCanDefend
	}
}

func (b *Board) EngageAttackCard(slot int) {
	if c := b.CardFromSlot(slot); c != nil {
		c.AddState(AttackEngage)
	}
}

func (b *Board) UnEngageAttackCard(slot int) {
	if c := b.CardFromSlot(slot); c != nil {
		c.RemoveState(AttackEngage)
	}
}

func (b *Board) EngageDefenseCard(slot int) {
	if c := b.CardFromSlot(slot); c != nil {
		c.AddState(DefenseEngage)
	}
}

func (b *Board) UnEngageDefenseCard(slot int) {
	if c := b.CardFromSlot(slot); c != nil {
		c.RemoveState(DefenseEngage)
	}
}

// ResetBoardEngageState strips every engagement flag from every card.
func (b *Board) ResetBoardEngageState() {
	for _, c := range b.slots {
		if c != nil {
			c.RemoveState(engageStates)
		}
	}
}

package game

// AttackHandler is the per-turn scratch state of declared attackers and
// the defender blocking each of them.
type AttackHandler struct {
	attackers []*CardInstance
	defenses  map[int]*CardInstance // attacker instance id -> defender
}

func NewAttackHandler() *AttackHandler {
	return &AttackHandler{defenses: make(map[int]*CardInstance)}
}

// AddAttack appends card to the attacker list.
func (a *AttackHandler) AddAttack(card *CardInstance) {
	a.attackers = append(a.attackers, card)
}

// RemoveAttack removes the first entry for card.
func (a *AttackHandler) RemoveAttack(card *CardInstance) {
	for i, c := range a.attackers {
		if c == card {
			a.attackers = append(a.attackers[:i], a.attackers[i+1:]...)
			return
		}
	}
}

func (a *AttackHandler) IsAttacking(card *CardInstance) bool {
	for _, c := range a.attackers {
		if c == card {
			return true
		}
	}
	return false
}

// Attackers returns the declared attackers in declaration order.
func (a *AttackHandler) Attackers() []*CardInstance {
	out := make([]*CardInstance, len(a.attackers))
	copy(out, a.attackers)
	return out
}

func (a *AttackHandler) HasAttackers() bool {
	return len(a.attackers) > 0
}

// AddDefense assigns defender to attacker, replacing any previous
// defender for that attacker. The replaced defender is returned.
func (a *AttackHandler) AddDefense(defender, attacker *CardInstance) (replaced *CardInstance) {
	replaced = a.defenses[attacker.InstanceID]
	a.defenses[attacker.InstanceID] = defender
	if replaced == defender {
		return nil
	}
	return replaced
}

// RemoveDefense removes the assignment whose defender is defender and
// returns the attacker id it was blocking.
func (a *AttackHandler) RemoveDefense(defender *CardInstance) (attackerID int, ok bool) {
	for id, d := range a.defenses {
		if d == defender {
			delete(a.defenses, id)
			return id, true
		}
	}
	return 0, false
}

// DefendedAttacker returns the attacker id defender is currently blocking.
func (a *AttackHandler) DefendedAttacker(defender *CardInstance) (int, bool) {
	for id, d := range a.defenses {
		if d == defender {
			return id, true
		}
	}
	return 0, false
}

func (a *AttackHandler) SpecificDefender(attackerID int) (*CardInstance, bool) {
	d, ok := a.defenses[attackerID]
	return d, ok
}

// DefenseCount returns the number of attacker->defender assignments.
func (a *AttackHandler) DefenseCount() int {
	return len(a.defenses)
}

func (a *AttackHandler) attackerIDs() []int {
	ids := make([]int, len(a.attackers))
	for i, c := range a.attackers {
		ids[i] = c.InstanceID
	}
	return ids
}

// FormatAttackResponse builds the attacker list event.
func (a *AttackHandler) FormatAttackResponse(playerID, opponentID string) *AttackResponse {
	return &AttackResponse{
		PlayerID:    playerID,
		OpponentID:  opponentID,
		AttackerIDs: a.attackerIDs(),
	}
}

// FormatDefenseResponse builds the attacker list plus every defense pair,
// ordered by attacker declaration order.
func (a *AttackHandler) FormatDefenseResponse(playerID, opponentID string) *DefenseResponse {
	pairs := make([]DefensePair, 0, len(a.defenses))
	for _, atk := range a.attackers {
		if d, ok := a.defenses[atk.InstanceID]; ok {
			pairs = append(pairs, DefensePair{DefenderID: d.InstanceID, AttackerID: atk.InstanceID})
		}
	}
	return &DefenseResponse{
		PlayerID:    playerID,
		OpponentID:  opponentID,
		AttackerIDs: a.attackerIDs(),
		Defenses:    pairs,
	}
}

// Reset clears both collections.
func (a *AttackHandler) Reset() {
	a.attackers = nil
	a.defenses = make(map[int]*CardInstance)
}

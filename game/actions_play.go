package game

import "log/slog"

// PlayCard places a card from userID's hand onto their board at location.
// Both results are nil when the action is illegal.
func (s *Session) PlayCard(userID string, instanceID, location int) (*PlayCardResult, *OpponentPlayCardResult) {
	var res *PlayCardResult
	var oppRes *OpponentPlayCardResult
	s.exec(func() { res, oppRes = s.playCard(userID, instanceID, location) })
	return res, oppRes
}

func (s *Session) playCard(userID string, instanceID, location int) (*PlayCardResult, *OpponentPlayCardResult) {
	if !s.initialized() || s.finished || s.phase != Placement {
		return nil, nil
	}
	idx, ok := s.playerIndex(userID)
	if !ok || idx != s.activeIdx || !validSlot(location) {
		return nil, nil
	}
	p := s.players[idx]

	card, ok := p.Hand.TryGetCard(instanceID)
	if !ok {
		slog.Debug("play rejected: card not in hand", "tag", "game", "code", s.Code, "user", userID, "card", instanceID)
		return nil, nil
	}
	if card.Template.Type != Guard {
		return nil, nil
	}
	if !p.Board.IsAvailable(location) {
		return nil, nil
	}
	if !p.Champion.TryPaidCard(card.Cost()) {
		slog.Debug("play rejected: not enough gold", "tag", "game", "code", s.Code, "user", userID, "cost", card.Cost(), "gold", p.Champion.Gold)
		return nil, nil
	}

	p.Hand.DeleteFromID(instanceID)
	p.Champion.PayCard(card.Cost())
	p.Board.PosCard(card, location)
	card.AddState(Engage)

	res := &PlayCardResult{
		PlayerID:      p.UserID,
		Card:          BuildCardView(card),
		Slot:          location,
		RemainingGold: p.Champion.Gold,
		HandSize:      p.Hand.Len(),
	}
	oppRes := &OpponentPlayCardResult{
		PlayerID:   p.UserID,
		InstanceID: card.InstanceID,
		TemplateID: card.Template.ID,
		Slot:       location,
		HandSize:   p.Hand.Len(),
	}
	s.listener.SendPlayCardData(res, oppRes)
	return res, oppRes
}

// HandleAttackEvent toggles a card on the active player's board between
// declared attacker and idle.
func (s *Session) HandleAttackEvent(userID string, instanceID int) *AttackResponse {
	var res *AttackResponse
	s.exec(func() { res = s.handleAttackEvent(userID, instanceID) })
	return res
}

func (s *Session) handleAttackEvent(userID string, instanceID int) *AttackResponse {
	if !s.initialized() || s.finished || s.phase != Attack {
		return nil
	}
	idx, ok := s.playerIndex(userID)
	if !ok || idx != s.activeIdx {
		return nil
	}
	p := s.players[idx]
	slot, ok := p.Board.TryGetCardPos(instanceID)
	if !ok {
		return nil
	}
	card := p.Board.CardFromSlot(slot)

	switch p.Board.CanAttackSpot(slot) {
	case SlotAttackEngaged:
		p.Board.UnEngageAttackCard(slot)
		p.Attacks.RemoveAttack(card)
	case SlotCanAttack:
		p.Board.EngageAttackCard(slot)
		p.Attacks.AddAttack(card)
	default:
		return nil
	}

	res := p.Attacks.FormatAttackResponse(p.UserID, s.players[1-idx].UserID)
	s.listener.SendAttackEngageData(res)
	return res
}

// HandleDefenseEvent assigns one of the defending player's cards to block
// a declared attacker. Repeating the same pair withdraws the block; sending
// a defender that already blocks another attacker moves it.
func (s *Session) HandleDefenseEvent(userID string, defenderID, attackerID int) *DefenseResponse {
	var res *DefenseResponse
	s.exec(func() { res = s.handleDefenseEvent(userID, defenderID, attackerID) })
	return res
}

func (s *Session) handleDefenseEvent(userID string, defenderID, attackerID int) *DefenseResponse {
	if !s.initialized() || s.finished || s.phase != Defense {
		return nil
	}
	idx, ok := s.playerIndex(userID)
	if !ok || idx == s.activeIdx {
		return nil
	}
	def := s.players[idx]
	atk := s.players[s.activeIdx]

	dSlot, ok := def.Board.TryGetCardPos(defenderID)
	if !ok {
		return nil
	}
	attacker, ok := atk.Board.TryGetCard(attackerID)
	if !ok || !atk.Attacks.IsAttacking(attacker) {
		return nil
	}
	defender := def.Board.CardFromSlot(dSlot)

	if blocking, ok := atk.Attacks.DefendedAttacker(defender); ok && blocking == attackerID {
		atk.Attacks.RemoveDefense(defender)
		def.Board.UnEngageDefenseCard(dSlot)
	} else {
		switch def.Board.CanDefendSpot(dSlot) {
		case SlotDefenseEngaged:
			atk.Attacks.RemoveDefense(defender)
		case SlotCanDefend:
		default:
			return nil
		}
		if replaced := atk.Attacks.AddDefense(defender, attacker); replaced != nil {
			if rs, ok := def.Board.TryGetCardPos(replaced.InstanceID); ok {
				def.Board.UnEngageDefenseCard(rs)
			}
		}
		def.Board.EngageDefenseCard(dSlot)
	}

	res := atk.Attacks.FormatDefenseResponse(def.UserID, atk.UserID)
	s.listener.SendDefenseEngageData(res)
	return res
}

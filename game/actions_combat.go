package game

import "log/slog"

// DrawCards draws count cards for userID. Overflowing the hand burns the
// card; drawing from an empty deck deals fatigue damage instead. It returns
// nil for count <= 0 or an unknown user.
func (s *Session) DrawCards(userID string, count int) *DrawCardsResult {
	var res *DrawCardsResult
	s.exec(func() { res = s.drawCards(userID, count) })
	return res
}

func (s *Session) drawCards(userID string, count int) *DrawCardsResult {
	if count <= 0 {
		return nil
	}
	idx, ok := s.playerIndex(userID)
	if !ok {
		return nil
	}
	p := s.players[idx]

	res := &DrawCardsResult{
		Player: DrawCardsPlayerView{
			PlayerID:              p.UserID,
			Drawn:                 []CardView{},
			Burned:                []CardView{},
			PreviousFatigueDamage: p.Champion.FatigueDamageTaken(),
		},
		Opponent: DrawCardsOpponentView{PlayerID: p.UserID},
	}
	for i := 0; i < count; i++ {
		card, ok := p.Deck.DrawCard()
		if !ok {
			res.Player.FatigueDamage += p.Champion.ApplyFatigueDamage()
			continue
		}
		if !p.Hand.IsFull() && p.Hand.AddCard(card) {
			res.Player.Drawn = append(res.Player.Drawn, BuildCardView(card))
		} else {
			p.Graveyard.AddCard(card)
			res.Player.Burned = append(res.Player.Burned, BuildCardView(card))
		}
	}
	res.Player.DeckSize = p.Deck.Len()
	res.Player.HandSize = p.Hand.Len()
	res.Player.ChampionHP = p.Champion.HP

	res.Opponent.DrawnCount = len(res.Player.Drawn)
	res.Opponent.BurnedCount = len(res.Player.Burned)
	res.Opponent.FatigueDamage = res.Player.FatigueDamage
	res.Opponent.DeckSize = res.Player.DeckSize
	res.Opponent.HandSize = res.Player.HandSize
	res.Opponent.ChampionHP = res.Player.ChampionHP

	if res.Player.FatigueDamage > 0 {
		slog.Debug("fatigue", "tag", "game", "code", s.Code, "user", userID, "damage", res.Player.FatigueDamage, "hp", p.Champion.HP)
	}
	s.listener.SendDrawCardsData(res)
	s.checkChampions("fatigue")
	return res
}

// resolveCombat settles every declared attacker of the active player, then
// clears attack declarations and engagement on both boards.
func (s *Session) resolveCombat() {
	atk := s.players[s.activeIdx]
	def := s.players[1-s.activeIdx]

	var battles []BattleResult
	for _, attacker := range atk.Attacks.Attackers() {
		if _, onBoard := atk.Board.TryGetCardPos(attacker.InstanceID); !onBoard {
			continue
		}
		b := BattleResult{AttackerID: attacker.InstanceID}
		defender, blocked := atk.Attacks.SpecificDefender(attacker.InstanceID)
		if blocked {
			_, blocked = def.Board.TryGetCardPos(defender.InstanceID)
		}
		if blocked {
			b.DefenderID = defender.InstanceID
			b.DamageToDefender = defender.ApplyDamage(attacker)
			b.DamageToAttacker = attacker.ApplyDamage(defender)
			if defender.IsDead() {
				def.Board.ClearSpot(defender.InstanceID)
				def.Graveyard.AddCard(defender)
				b.DefenderDied = true
			}
			if attacker.IsDead() {
				atk.Board.ClearSpot(attacker.InstanceID)
				atk.Graveyard.AddCard(attacker)
				b.AttackerDied = true
			}
		} else {
			b.ChampionDamage = def.Champion.ApplyDamage(attacker)
		}
		battles = append(battles, b)
	}

	atk.Attacks.Reset()
	def.Attacks.Reset()
	atk.Board.ResetBoardEngageState()
	def.Board.ResetBoardEngageState()

	if len(battles) > 0 {
		slog.Debug("combat resolved", "tag", "game", "code", s.Code, "attacker", atk.UserID, "battles", len(battles), "defenderHp", def.Champion.HP)
		s.listener.SendBattleResolveData(battles, atk.UserID, def.UserID)
	}
	s.checkChampions("champion defeated")
}

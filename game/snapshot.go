package game

// Snapshot returns the state visible to userID, or nil if userID is not seated.
func (s *Session) Snapshot(userID string) *SnapshotView {
	var v *SnapshotView
	s.exec(func() { v = s.snapshot(userID) })
	return v
}

func (s *Session) snapshot(userID string) *SnapshotView {
	idx, ok := s.playerIndex(userID)
	if !ok {
		return nil
	}
	p := s.players[idx]
	v := &SnapshotView{
		Code:       s.Code,
		Phase:      s.phase.String(),
		TurnNumber: s.turnNumber,
		Hand:       buildCardViews(p.Hand.Cards()),
		DeckSize:   p.Deck.Len(),
		Board:      buildBoardView(p.Board),
		Champion:   buildChampionView(p.Champion),
		Graveyard:  buildCardViews(p.Graveyard.Cards()),
		Finished:   s.finished,
	}
	if active := s.players[s.activeIdx]; active != nil {
		v.ActivePlayerID = active.UserID
		v.AttackerIDs = active.Attacks.attackerIDs()
	}
	if opp := s.players[1-idx]; opp != nil {
		v.Opponent = OpponentView{
			PlayerID:  opp.UserID,
			HandSize:  opp.Hand.Len(),
			DeckSize:  opp.Deck.Len(),
			Board:     buildBoardView(opp.Board),
			Champion:  buildChampionView(opp.Champion),
			Graveyard: buildCardViews(opp.Graveyard.Cards()),
		}
	}
	return v
}

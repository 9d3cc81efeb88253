package game

import "context"

// Listener receives session events. Methods are called from the session
// goroutine, so implementations must not block or call back into the session.
type Listener interface {
	SendDrawCardsData(result *DrawCardsResult)
	SendPlayCardData(player *PlayCardResult, opponent *OpponentPlayCardResult)
	SendAttackEngageData(result *AttackResponse)
	SendDefenseEngageData(result *DefenseResponse)
	SendBattleResolveData(battles []BattleResult, attackerPlayerID, defenderPlayerID string)
	SendPhaseChangeData(result *PhaseChangeResult)
	SendGameOverData(result *GameOverResult)
}

// DeckLoader resolves a deck id to its ordered card templates.
type DeckLoader interface {
	LoadDeck(ctx context.Context, deckID string) ([]CardTemplate, error)
}

// NopListener discards every event.
type NopListener struct{}

func (NopListener) SendDrawCardsData(*DrawCardsResult)                        {}
func (NopListener) SendPlayCardData(*PlayCardResult, *OpponentPlayCardResult) {}
func (NopListener) SendAttackEngageData(*AttackResponse)                      {}
func (NopListener) SendDefenseEngageData(*DefenseResponse)                    {}
func (NopListener) SendBattleResolveData([]BattleResult, string, string)      {}
func (NopListener) SendPhaseChangeData(*PhaseChangeResult)                    {}
func (NopListener) SendGameOverData(*GameOverResult)                          {}

var _ Listener = NopListener{}

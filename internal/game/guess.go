package game

import (
	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
	"github.com/jeenvibes-dev/scribbleguess/internal/utils"
)

// =============================================================================
// GUESS HANDLING
// =============================================================================

// Chat records and relays a chat line. While a round is running every line
// from a guesser is also checked against the word; drawers and players who
// already got it are muted until the round ends.
func (e *Engine) Chat(playerID string, req *internal.ChatRequest) error {
	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		player := room.PlayerByID(playerID)
		if player == nil {
			return internal.ErrPlayerNotFound
		}

		switch room.Phase {
		case internal.PhaseGameEnd:
			return nil
		case internal.PhaseRoundActive:
			// handled below
		default:
			// Lobby and the grace window between rounds: plain chat
			e.postChat(room, player, req.Message, false)
			return nil
		}

		g := room.Game
		if room.IsDrawer(player.ID) || player.HasGuessed {
			e.logger.Debug("[Chat] dropping message from drawer or solved player",
				zap.String("room", room.Code), zap.String("player", player.ID))
			return nil
		}

		correct := CheckGuess(req.Message, g.CurrentWord)
		e.postChat(room, player, req.Message, correct)
		if !correct {
			return nil
		}

		// Correct guess
		points := ScoreGuesser(g.TimeRemaining, g.RoundDuration)
		player.Score += points
		player.HasGuessed = true
		e.out.Broadcast(room.Code, internal.NewRoomUpdated(room.Snapshot()))

		e.logger.Info("[Chat] correct guess",
			zap.String("room", room.Code),
			zap.String("player", player.ID),
			zap.Int("points", points),
			zap.Int("time_remaining", g.TimeRemaining))

		if room.HasEveryoneGuessed() {
			e.logger.Info("[Chat] everyone guessed, ending round early", zap.String("room", room.Code))
			e.endRoundLocked(room)
		}
		return nil
	})
}

func (e *Engine) postChat(room *internal.Room, player *internal.Player, content string, correct bool) {
	msg := internal.ChatMessage{
		ID:         utils.NewID(),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Content:    content,
		IsCorrect:  correct,
		Timestamp:  e.now().UnixMilli(),
	}
	room.AppendMessage(msg)
	e.out.Broadcast(room.Code, internal.NewChatMessage(msg))
}

package game

import (
	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// =============================================================================
// DRAWING
// =============================================================================

// Draw relays a stroke or clear from a current drawer to the rest of the
// room. Anything else is dropped without an error: strokes race with round
// changes all the time. The sender already rendered its own stroke, so it
// is left out of the relay.
func (e *Engine) Draw(playerID string, req *internal.DrawRequest) error {
	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		if room.PlayerByID(playerID) == nil {
			return internal.ErrPlayerNotFound
		}
		if room.Phase != internal.PhaseRoundActive || !room.IsDrawer(playerID) {
			e.logger.Debug("[Draw] ignoring stroke from non-drawer",
				zap.String("room", room.Code), zap.String("player", playerID))
			return nil
		}

		data := req.DrawingData
		data.DrawerID = playerID
		e.out.Broadcast(room.Code, internal.NewDrawingUpdate(data), playerID)
		return nil
	})
}

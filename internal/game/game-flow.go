package game

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
	"github.com/jeenvibes-dev/scribbleguess/internal/utils"
)

// =============================================================================
// GAME FLOW - ROUND MANAGEMENT
// =============================================================================

func boolPtr(b bool) *bool { return &b }

// BrushModifiers is the pool Randomized mode draws from, uniformly.
var BrushModifiers = []internal.BrushModifier{
	{Color: "#FF0000"},
	{Color: "#00FF00"},
	{Color: "#0000FF"},
	{Color: "#FFFF00"},
	{Color: "#FF00FF"},
	{Size: 2},
	{Size: 10},
	{Size: 15},
	{Mirror: boolPtr(true)},
	{Mirror: boolPtr(false)},
}

// RandomBrushModifier picks one entry of BrushModifiers. intn must return
// a value in [0, n).
func RandomBrushModifier(intn func(n int) int) internal.BrushModifier {
	m := BrushModifiers[intn(len(BrushModifiers))]
	if m.Mirror != nil {
		m.Mirror = boolPtr(*m.Mirror)
	}
	return m
}

// roundSeconds is the round length for the mode in whole seconds.
func (e *Engine) roundSeconds(mode internal.GameMode) int {
	d := e.opts.RoundDuration
	if mode == internal.ModeBlitz {
		d = e.opts.BlitzRoundDuration
	}
	return max(int(d.Seconds()), 1)
}

// drawersFrom picks the drawers for a round starting at roster index idx
// and returns how far the rotation advances afterwards. DoubleDraw with at
// least three players pairs idx with the following player and advances by
// two; everything else advances by one.
func drawersFrom(room *internal.Room, idx int) ([]string, int) {
	n := room.GetPlayerCount()
	if idx < 0 || idx >= n {
		idx = 0
	}
	if room.GameMode == internal.ModeDoubleDraw && n >= 3 {
		return []string{room.Players[idx].ID, room.Players[(idx+1)%n].ID}, 2
	}
	return []string{room.Players[idx].ID}, 1
}

// newRound builds the state for round number round with the first drawer
// at roster index idx. Caller holds room.Mu.
func (e *Engine) newRound(room *internal.Room, round, idx int) *internal.GameState {
	drawers, step := drawersFrom(room, idx)
	if idx < 0 || idx >= room.GetPlayerCount() {
		idx = 0
	}
	word := e.words.PickWord()
	secs := e.roundSeconds(room.GameMode)

	return &internal.GameState{
		CurrentRound:    round,
		TotalRounds:     e.opts.TotalRounds,
		CurrentWord:     word,
		WordDisplay:     utils.MaskWord(word, false),
		DrawerIDs:       drawers,
		TimeRemaining:   secs,
		RoundDuration:   secs,
		IsRoundActive:   true,
		NextDrawerIndex: (idx + step) % room.GetPlayerCount(),
	}
}

// armRound starts the countdown and, in Randomized mode, the modifier
// timer. Caller holds room.Mu.
func (e *Engine) armRound(room *internal.Room) {
	code := room.Code
	e.scheduler.Every(code, TimerRound, e.opts.TickInterval, func(ctx context.Context) {
		e.tick(ctx, code)
	})
	if room.GameMode == internal.ModeRandomized {
		e.scheduler.Every(code, TimerModifier, e.opts.ModifierInterval, func(ctx context.Context) {
			e.applyModifier(ctx, code)
		})
	}
}

// onTimer runs fn for a timer callback with the room locked, unless the
// timer went stale while it waited for the lock.
func (e *Engine) onTimer(ctx context.Context, code, fn string, body func(room *internal.Room)) {
	err := e.registry.Do(code, func(room *internal.Room) error {
		if ctx.Err() != nil {
			return nil
		}
		body(room)
		return nil
	})
	if errors.Is(err, internal.ErrRoomNotFound) {
		e.logger.Debug(fmt.Sprintf("[%s] room gone, ignoring stale timer", fn), zap.String("room", code))
	}
}

// tick counts the round down by one second.
func (e *Engine) tick(ctx context.Context, code string) {
	e.onTimer(ctx, code, "tick", func(room *internal.Room) {
		g := room.Game
		if g == nil || room.Phase != internal.PhaseRoundActive {
			return
		}

		g.TimeRemaining--
		if g.TimeRemaining <= 0 {
			g.TimeRemaining = 0
			e.logger.Info("[tick] time is up", zap.String("room", code), zap.Int("round", g.CurrentRound))
			e.endRoundLocked(room)
			return
		}
		e.broadcastGameState(room, internal.NewGameStateUpdated)
	})
}

func (e *Engine) applyModifier(ctx context.Context, code string) {
	e.onTimer(ctx, code, "applyModifier", func(room *internal.Room) {
		g := room.Game
		if g == nil || room.Phase != internal.PhaseRoundActive || room.GameMode != internal.ModeRandomized {
			return
		}

		m := RandomBrushModifier(e.intn)
		g.CurrentBrushModifier = &m
		e.out.Broadcast(code, internal.NewBrushModified(m))
		e.broadcastGameState(room, internal.NewGameStateUpdated)
	})
}

// endRoundLocked moves RoundActive to RoundEnd: stop the timers, pay the
// drawers if anybody guessed, reveal the word and schedule what comes
// next. Calling it outside RoundActive is a no-op. Caller holds room.Mu.
func (e *Engine) endRoundLocked(room *internal.Room) {
	g := room.Game
	if g == nil || room.Phase != internal.PhaseRoundActive {
		return
	}
	code := room.Code

	// 1. Stop round timers
	e.scheduler.Cancel(code, TimerRound)
	e.scheduler.Cancel(code, TimerModifier)

	// 2. Close the round
	room.Phase = internal.PhaseRoundEnd
	g.IsRoundActive = false

	// 3. Drawer reward
	if room.AnyoneGuessed() {
		for _, id := range g.DrawerIDs {
			if p := room.PlayerByID(id); p != nil {
				p.Score += ScoreDrawer()
			}
		}
	}

	e.logger.Info("[endRound] round over",
		zap.String("room", code),
		zap.Int("round", g.CurrentRound),
		zap.String("word", g.CurrentWord),
		zap.Bool("guessed", room.AnyoneGuessed()))

	// 4. Reveal
	e.out.Broadcast(code, internal.NewRoomUpdated(room.Snapshot()))
	e.out.Broadcast(code, internal.NewRoundEnd(g.CurrentWord, room.Scores()))

	// 5. Grace window, then next round or game end
	e.scheduler.After(code, TimerRoundEnd, e.opts.RoundEndDelay, func(ctx context.Context) {
		e.afterRoundEnd(ctx, code)
	})
}

func (e *Engine) afterRoundEnd(ctx context.Context, code string) {
	e.onTimer(ctx, code, "afterRoundEnd", func(room *internal.Room) {
		g := room.Game
		if g == nil || room.Phase != internal.PhaseRoundEnd {
			return
		}
		if g.CurrentRound >= g.TotalRounds {
			e.endGameLocked(room)
			return
		}
		e.nextRoundLocked(room)
	})
}

// nextRoundLocked rotates the drawers and starts a fresh round. Caller
// holds room.Mu.
func (e *Engine) nextRoundLocked(room *internal.Room) {
	prev := room.Game
	code := room.Code

	// 1. Reset per-player round state
	room.ResetPlayerGuessState()

	// 2. New state wholesale; the brush modifier does not carry over
	room.Game = e.newRound(room, prev.CurrentRound+1, prev.NextDrawerIndex)
	room.Phase = internal.PhaseRoundActive

	e.logger.Info("[nextRound] round started",
		zap.String("room", code),
		zap.Int("round", room.Game.CurrentRound),
		zap.Strings("drawers", room.Game.DrawerIDs))

	// 3. Tell everyone
	e.out.Broadcast(code, internal.NewRoomUpdated(room.Snapshot()))
	e.out.Broadcast(code, internal.NewDrawingUpdate(internal.ClearDrawing()))
	e.broadcastGameState(room, internal.NewGameStateUpdated)
	e.announce(room, fmt.Sprintf("Round %d started!", room.Game.CurrentRound))

	// 4. Re-arm
	e.armRound(room)
}

// endGameLocked is terminal: timers stop for good and the final
// leaderboard goes out. Caller holds room.Mu.
func (e *Engine) endGameLocked(room *internal.Room) {
	if room.Phase == internal.PhaseGameEnd {
		return
	}
	code := room.Code

	e.scheduler.CancelAll(code)
	room.Phase = internal.PhaseGameEnd
	if room.Game != nil {
		room.Game.IsRoundActive = false
	}

	results := CalculateFinalResults(room)
	winner := ""
	if results.Winner != nil {
		winner = results.Winner.PlayerID
	}
	e.logger.Info("[EndGame] game over",
		zap.String("room", code),
		zap.Int("rounds_played", results.RoundsPlayed),
		zap.String("winner", winner))

	e.out.Broadcast(code, internal.NewGameEnd(results))
}

// broadcastGameState sends guessers the masked view and each drawer the
// revealed one. Caller holds room.Mu.
func (e *Engine) broadcastGameState(room *internal.Room, build func(internal.GameState) internal.GameStateMessage) {
	g := room.Game
	if g == nil {
		return
	}

	drawers := make([]string, 0, len(g.DrawerIDs))
	for _, id := range g.DrawerIDs {
		if room.PlayerByID(id) != nil {
			drawers = append(drawers, id)
		}
	}

	e.out.Broadcast(room.Code, build(g.View(false)), drawers...)
	for _, id := range drawers {
		e.out.SendTo(room.Code, id, build(g.View(true)))
	}
}

package game

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

const (
	GuesserBaseScore  = 100
	GuesserTimeBonus  = 100
	DrawerRoundReward = 50
)

// ScoreGuesser returns the points for a correct guess with tr of rd seconds
// left: 100 plus up to 100 more for speed.
func ScoreGuesser(timeRemaining, roundDuration int) int {
	if roundDuration <= 0 {
		return GuesserBaseScore
	}
	tr := min(max(timeRemaining, 0), roundDuration)
	return GuesserBaseScore + GuesserTimeBonus*tr/roundDuration
}

// ScoreDrawer is the flat reward each drawer gets for a round in which
// someone guessed the word.
func ScoreDrawer() int {
	return DrawerRoundReward
}

// CheckGuess compares a guess with the secret word ignoring case and
// surrounding whitespace. Nothing else is forgiven.
func CheckGuess(guess, word string) bool {
	guess = strings.TrimSpace(guess)
	word = strings.TrimSpace(word)
	if guess == "" || word == "" {
		return false
	}
	return strings.EqualFold(guess, word)
}

// CalculateFinalResults compiles the leaderboard from a finished game.
// Ties keep roster order, so the earliest-joined top scorer wins.
// Callers hold room.Mu.
func CalculateFinalResults(room *internal.Room) internal.FinalResults {
	// 1. Gather all players in roster order
	leaderboard := make([]internal.LeaderboardEntry, 0, len(room.Players))
	for _, p := range room.Players {
		leaderboard = append(leaderboard, internal.LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		})
	}

	// 2. Sort by score descending, stable on ties
	slices.SortStableFunc(leaderboard, func(a, b internal.LeaderboardEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range leaderboard {
		leaderboard[i].Position = i + 1
	}

	results := internal.FinalResults{
		Leaderboard:  leaderboard,
		FinalScores:  room.Scores(),
		TotalPlayers: len(room.Players),
	}
	if room.Game != nil {
		results.RoundsPlayed = room.Game.CurrentRound
	}

	// 3. Winner is the first entry
	if len(leaderboard) > 0 {
		winner := leaderboard[0]
		results.Winner = &winner
	}
	return results
}

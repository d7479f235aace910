package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// =============================================================================
// WORD BANK
// =============================================================================

// DefaultWords is the builtin vocabulary. RAINBOW appears twice and is
// picked twice as often as the rest.
var DefaultWords = []string{
	"RAINBOW", "SUNSET", "MOUNTAIN", "OCEAN", "FOREST", "CASTLE", "DRAGON",
	"UNICORN", "PIZZA", "GUITAR", "ROCKET", "BUTTERFLY", "LIGHTHOUSE", "TREASURE",
	"DINOSAUR", "ELEPHANT", "PENGUIN", "FLAMINGO", "AIRPLANE", "BICYCLE",
	"SKATEBOARD", "SNOWFLAKE", "CAMPFIRE", "WATERFALL", "VOLCANO", "ISLAND",
	"ROBOT", "SPACESHIP", "CROWN", "DIAMOND", "BALLOON", "CUPCAKE", "SANDWICH",
	"COOKIE", "CARROT", "STRAWBERRY", "BANANA", "PINEAPPLE", "SUNFLOWER",
	"CACTUS", "MUSHROOM", "RAINBOW", "STAR", "MOON", "CLOUD", "LIGHTNING",
	"SNOWMAN", "IGLOO", "TENT", "BOAT", "ANCHOR", "COMPASS", "TELESCOPE",
	"CAMERA", "BOOK", "PENCIL", "PAINTBRUSH", "SCISSORS", "UMBRELLA", "GLASSES",
	"WATCH", "KEYS", "BACKPACK", "LAPTOP", "PHONE", "HEADPHONES", "MICROPHONE",
	"FOOTBALL", "BASKETBALL", "TENNIS", "BASEBALL", "SOCCER", "BOWLING",
	"CHESS", "PUZZLE", "KITE", "FIREWORKS", "TROPHY", "MEDAL", "FLAG",
	"HEART", "PEACE", "SMILE", "HANDSHAKE", "THUMBSUP", "GIFT", "PARTY",
	"CAKE", "CANDLE", "MUSIC", "DANCE", "SING", "CLAP", "WAVE", "JUMP",
}

var ErrEmptyWordList = errors.New("word list is empty")

// WordSource supplies a replacement vocabulary, e.g. a CSV file or a
// database table.
type WordSource interface {
	LoadWords(ctx context.Context) ([]internal.Word, error)
}

// WordBank hands out secret words. It is safe for concurrent use.
type WordBank struct {
	mu    sync.RWMutex
	words []string
	intn  func(n int) int
}

func NewWordBank() *WordBank {
	return &WordBank{
		words: append([]string(nil), DefaultWords...),
		intn:  rand.IntN,
	}
}

// Load replaces the vocabulary. Each entry appears Count times (at least
// once). An empty result leaves the current list in place.
func (b *WordBank) Load(entries []internal.Word) error {
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		w := strings.ToUpper(strings.TrimSpace(e.Word))
		if w == "" {
			continue
		}
		for range max(e.Count, 1) {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return ErrEmptyWordList
	}

	b.mu.Lock()
	b.words = words
	b.mu.Unlock()
	return nil
}

func (b *WordBank) LoadFrom(ctx context.Context, src WordSource) error {
	entries, err := src.LoadWords(ctx)
	if err != nil {
		return fmt.Errorf("load words: %w", err)
	}
	return b.Load(entries)
}

// PickWord returns a uniformly random entry.
func (b *WordBank) PickWord() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.words[b.intn(len(b.words))]
}

func (b *WordBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.words)
}

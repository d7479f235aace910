package internal

import "slices"

func (g *GameState) IsDrawer(id string) bool {
	return slices.Contains(g.DrawerIDs, id)
}

// View returns a copy of the state safe to send out. Drawers see the
// word; guessers only see the masked display.
func (g *GameState) View(forDrawer bool) GameState {
	v := *g
	v.DrawerIDs = slices.Clone(g.DrawerIDs)
	if g.CurrentBrushModifier != nil {
		m := *g.CurrentBrushModifier
		v.CurrentBrushModifier = &m
	}
	if forDrawer {
		v.WordDisplay = g.CurrentWord
	} else {
		v.CurrentWord = ""
	}
	return v
}

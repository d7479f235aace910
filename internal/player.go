package internal

func NewPlayer(id, name, avatar string) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Avatar: avatar,
	}
}

func (p *Player) ResetRoundState() {
	p.HasGuessed = false
}

// ToPublicPlayer copies the player so the copy can leave the room lock.
func (p *Player) ToPublicPlayer() Player {
	return *p
}

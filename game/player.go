package game

// Player is a single participant's mutable in-game state.
type Player struct {
	UserID                    UserID
	Username                  Username
	Role                      Role
	Team                      Team
	Supplies                  Supplies
	IsAlive                   bool
	DeathReason               DeathReason
	ExtraLives                int
	IsBeaverProtected         bool
	StolenSupplies            int
	ConsecutiveNightsSurvived int
}

func newPlayer(userID UserID, username Username, supplies Supplies) *Player {
	return &Player{
		UserID:   userID,
		Username: username,
		Role:     RoleHare,
		Team:     RoleHare.Team(),
		Supplies: supplies,
		IsAlive:  true,
	}
}

// AssignRole sets the role and the team that role belongs to.
func (p *Player) AssignRole(role Role) {
	p.Role = role
	p.Team = role.Team()
}

func (p *Player) ConsumeSupplies(n int) bool {
	consumed, err := p.Supplies.Consume(n)
	if err != nil {
		return false
	}

	p.Supplies = consumed
	return true
}

// AddSupplies returns the amount actually added.
func (p *Player) AddSupplies(n int) int {
	var added int
	p.Supplies, added = p.Supplies.Add(n)
	return added
}

// StealSupplies takes one unit from the player, recording the theft.
func (p *Player) StealSupplies() bool {
	if !p.IsAlive || p.Supplies.Current <= 0 {
		return false
	}

	p.Supplies.Current--
	p.StolenSupplies++
	return true
}

func (p *Player) ApplyExtraLives(k int) {
	if k <= 0 {
		return
	}
	p.ExtraLives += k
}

// Die marks the player dead. Callers must spend extra lives before calling this.
func (p *Player) Die(reason DeathReason) {
	if !p.IsAlive {
		return
	}

	p.IsAlive = false
	p.DeathReason = reason
	p.ConsecutiveNightsSurvived = 0
	p.IsBeaverProtected = false
}

func (p *Player) SurviveNight() {
	p.ConsecutiveNightsSurvived++
}

func (p *Player) ResetProtection() {
	p.IsBeaverProtected = false
}

// copyPlayer returns a detached copy for readers.
func copyPlayer(p *Player) *Player {
	copied := *p
	return &copied
}

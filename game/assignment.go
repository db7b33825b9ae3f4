package game

import "fmt"

// MinRosterSize and MaxRosterSize bound the player counts the role formula is defined for.
const MinRosterSize = 3
const MaxRosterSize = 12

// minimumHares is the smallest number of hares every composition keeps.
const minimumHares = 2

// RoleCounts is the role multiset for a given player count.
type RoleCounts struct {
	Wolves  int `json:"wolves"`
	Foxes   int `json:"foxes"`
	Moles   int `json:"moles"`
	Beavers int `json:"beavers"`
	Hares   int `json:"hares"`
}

func (r RoleCounts) Total() int {
	return r.Wolves + r.Foxes + r.Moles + r.Beavers + r.Hares
}

// Roles expands the counts into a multiset in a fixed order.
func (r RoleCounts) Roles() []Role {
	roles := make([]Role, 0, r.Total())
	appendRole := func(role Role, count int) {
		for range count {
			roles = append(roles, role)
		}
	}
	appendRole(RoleWolf, r.Wolves)
	appendRole(RoleFox, r.Foxes)
	appendRole(RoleMole, r.Moles)
	appendRole(RoleBeaver, r.Beavers)
	appendRole(RoleHare, r.Hares)
	return roles
}

// ComputeRoleCounts maps a player count onto its role composition.
func ComputeRoleCounts(playerCount int) (RoleCounts, error) {
	if playerCount < MinRosterSize || playerCount > MaxRosterSize {
		return RoleCounts{}, fmt.Errorf("%w: %d players (must be %d-%d)", ErrInvalidPlayerCount, playerCount, MinRosterSize, MaxRosterSize)
	}

	var counts RoleCounts
	switch {
	case playerCount <= 6:
		counts.Wolves = 1
	case playerCount <= 9:
		counts.Wolves = 2
	default:
		counts.Wolves = 3
	}

	if playerCount >= 6 {
		counts.Foxes = 1
	}

	if playerCount >= 4 {
		counts.Moles = 1
	}

	switch {
	case playerCount < 6:
		counts.Beavers = 0
	case playerCount >= 11:
		counts.Beavers = 2
	default:
		counts.Beavers = 1
	}

	counts.Hares = playerCount - (counts.Wolves + counts.Foxes + counts.Moles + counts.Beavers)
	if deficit := minimumHares - counts.Hares; deficit > 0 {
		beaverCut := min(deficit, counts.Beavers)
		counts.Beavers -= beaverCut
		deficit -= beaverCut

		counts.Moles -= min(deficit, counts.Moles)

		counts.Hares = playerCount - (counts.Wolves + counts.Foxes + counts.Moles + counts.Beavers)
	}

	return counts, nil
}

// AssignRoles shuffles the composition for len(players) with a single call to random and
// zips it onto the players in order.
func AssignRoles(players []*Player, random Random) (RoleCounts, error) {
	counts, err := ComputeRoleCounts(len(players))
	if err != nil {
		return RoleCounts{}, err
	}

	shuffled := random.Shuffle(counts.Roles())
	if len(shuffled) != len(players) {
		return RoleCounts{}, fmt.Errorf("%w: shuffle returned %d roles for %d players", ErrInvariantViolation, len(shuffled), len(players))
	}

	for playerIndex, player := range players {
		player.AssignRole(shuffled[playerIndex])
	}

	return counts, nil
}

package game

// ActionResult is the outcome of a player-facing operation. Illegal moves are reported
// here with Success false; they are never returned as errors.
type ActionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func succeed(message string, data map[string]any) ActionResult {
	return ActionResult{Success: true, Message: message, Data: data}
}

func fail(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

// Capability is a role's night operation contract.
type Capability interface {
	Role() Role
	CanAct(actor *Player) bool
	AvailableTargets(g *Game, actor *Player) []*Player
	Apply(g *Game, actor *Player, target *Player) ActionResult
}

// resolutionOrder is the fixed order night actions take effect in. Beaver protection is
// staged first so that it shields against the same night's wolf attack.
var resolutionOrder = []Role{RoleBeaver, RoleWolf, RoleFox, RoleMole}

var capabilities = map[Role]Capability{
	RoleWolf:   wolfCapability{},
	RoleFox:    foxCapability{},
	RoleMole:   moleCapability{},
	RoleBeaver: beaverCapability{},
	RoleHare:   hareCapability{},
}

// CapabilityFor returns the night capability of a role.
func CapabilityFor(role Role) (Capability, bool) {
	capability, hasCapability := capabilities[role]
	return capability, hasCapability
}

// HasNightAction reports whether a role can ever act at night.
func HasNightAction(role Role) bool {
	for _, resolvedRole := range resolutionOrder {
		if resolvedRole == role {
			return true
		}
	}
	return false
}

func canAct(actor *Player, role Role) bool {
	return actor != nil && actor.IsAlive && actor.Role == role
}

func alivePlayersWhere(g *Game, keep func(*Player) bool) []*Player {
	var targets []*Player
	for _, player := range g.orderedPlayers() {
		if player.IsAlive && keep(player) {
			targets = append(targets, player)
		}
	}
	return targets
}

type wolfCapability struct{}

func (wolfCapability) Role() Role { return RoleWolf }

func (wolfCapability) CanAct(actor *Player) bool { return canAct(actor, RoleWolf) }

func (wolfCapability) AvailableTargets(g *Game, _ *Player) []*Player {
	return alivePlayersWhere(g, func(p *Player) bool { return p.Role != RoleWolf })
}

func (w wolfCapability) Apply(g *Game, actor *Player, target *Player) ActionResult {
	if !w.CanAct(actor) {
		return fail("only a living wolf can hunt")
	} else if target == nil {
		return fail("a hunt needs a target")
	} else if !target.IsAlive {
		return fail("the target is already dead")
	} else if target.Role == RoleWolf {
		return fail("wolves do not hunt each other")
	}

	data := map[string]any{"target": int64(target.UserID), "killed": false}
	if target.IsBeaverProtected {
		data["blocked"] = true
		return succeed("the attack was blocked", data)
	}

	if !applyLethal(target, DeathReasonKilled) {
		data["extra_life_used"] = true
		return succeed("the target survived by spending an extra life", data)
	}

	g.Statistics.PredatorKills++
	data["killed"] = true
	return succeed("the target was killed", data)
}

type foxCapability struct{}

func (foxCapability) Role() Role { return RoleFox }

func (foxCapability) CanAct(actor *Player) bool { return canAct(actor, RoleFox) }

func (foxCapability) AvailableTargets(g *Game, actor *Player) []*Player {
	return alivePlayersWhere(g, func(p *Player) bool {
		return p.Supplies.Current > 0 && (actor == nil || p.UserID != actor.UserID)
	})
}

func (f foxCapability) Apply(g *Game, actor *Player, target *Player) ActionResult {
	if !f.CanAct(actor) {
		return fail("only a living fox can steal")
	} else if target == nil {
		return fail("a theft needs a target")
	} else if target.UserID == actor.UserID {
		return fail("a fox cannot steal from itself")
	} else if !target.IsAlive {
		return fail("the target is already dead")
	}

	if !target.StealSupplies() {
		return fail("the target has no supplies")
	}
	g.Statistics.FoxThefts++

	return succeed("supplies were stolen", map[string]any{
		"target":          int64(target.UserID),
		"target_supplies": target.Supplies.Current,
	})
}

type moleCapability struct{}

func (moleCapability) Role() Role { return RoleMole }

func (moleCapability) CanAct(actor *Player) bool { return canAct(actor, RoleMole) }

func (moleCapability) AvailableTargets(g *Game, actor *Player) []*Player {
	return alivePlayersWhere(g, func(p *Player) bool {
		return actor == nil || p.UserID != actor.UserID
	})
}

func (m moleCapability) Apply(_ *Game, actor *Player, target *Player) ActionResult {
	if !m.CanAct(actor) {
		return fail("only a living mole can dig")
	} else if target == nil {
		return fail("an investigation needs a target")
	} else if target.UserID == actor.UserID {
		return fail("a mole cannot investigate itself")
	} else if !target.IsAlive {
		return fail("the target is already dead")
	}

	return succeed("the investigation is complete", map[string]any{
		"target": int64(target.UserID),
		"team":   string(target.Team),
		"role":   string(target.Role),
	})
}

type beaverCapability struct{}

func (beaverCapability) Role() Role { return RoleBeaver }

func (beaverCapability) CanAct(actor *Player) bool { return canAct(actor, RoleBeaver) }

func (beaverCapability) AvailableTargets(g *Game, _ *Player) []*Player {
	return alivePlayersWhere(g, func(*Player) bool { return true })
}

func (b beaverCapability) Apply(g *Game, actor *Player, target *Player) ActionResult {
	if !b.CanAct(actor) {
		return fail("only a living beaver can protect")
	} else if target == nil {
		return fail("protection needs a target")
	} else if !target.IsAlive {
		return fail("the target is already dead")
	}

	target.IsBeaverProtected = true
	g.Statistics.BeaverProtections++

	data := map[string]any{"target": int64(target.UserID), "restored": 0}
	if target.Supplies.IsCritical() {
		data["restored"] = target.AddSupplies(1)
	}

	return succeed("the target is protected tonight", data)
}

type hareCapability struct{}

func (hareCapability) Role() Role { return RoleHare }

func (hareCapability) CanAct(*Player) bool { return false }

func (hareCapability) AvailableTargets(*Game, *Player) []*Player { return nil }

func (hareCapability) Apply(*Game, *Player, *Player) ActionResult {
	return fail("hares do not act at night")
}

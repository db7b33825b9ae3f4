package game

// TallyOutcome explains why a vote did or did not exile someone.
type TallyOutcome string

const TallyNoVotes TallyOutcome = "no_votes"
const TallySkipDominates TallyOutcome = "skip_dominates"
const TallyNoMajority TallyOutcome = "no_majority"
const TallyTie TallyOutcome = "tie"
const TallyExiled TallyOutcome = "exiled"

type TallyResult struct {
	VoteCounts    map[UserID]int `json:"vote_counts"`
	SkipVotes     int            `json:"skip_votes"`
	VotesForExile int            `json:"votes_for_exile"`
	TotalVotes    int            `json:"total_votes"`
	Outcome       TallyOutcome   `json:"outcome"`
	Exiled        *UserID        `json:"exiled,omitempty"`
	// ExtraLifeUsed is set when the exiled player spent an extra life and stayed in the game.
	ExtraLifeUsed bool           `json:"extra_life_used,omitempty"`
}

// TallyVotes counts the ballots. Skips dominate when they match or beat exile votes, exile
// votes must be at least half the turnout, and a shared top count exiles no one.
func TallyVotes(votes map[UserID]*UserID) TallyResult {
	result := TallyResult{
		VoteCounts: make(map[UserID]int),
		TotalVotes: len(votes),
	}

	for _, targetID := range votes {
		if targetID == nil {
			result.SkipVotes++
			continue
		}
		result.VoteCounts[*targetID]++
		result.VotesForExile++
	}

	if result.TotalVotes == 0 {
		result.Outcome = TallyNoVotes
		return result
	}

	if result.SkipVotes >= result.VotesForExile {
		result.Outcome = TallySkipDominates
		return result
	}

	if 2*result.VotesForExile < result.TotalVotes {
		result.Outcome = TallyNoMajority
		return result
	}

	var highestVoteCount int
	for _, count := range result.VoteCounts {
		if count > highestVoteCount {
			highestVoteCount = count
		}
	}

	var winners []UserID
	for candidate, count := range result.VoteCounts {
		if count == highestVoteCount {
			winners = append(winners, candidate)
		}
	}

	if len(winners) != 1 {
		result.Outcome = TallyTie
		return result
	}

	exiled := winners[0]
	result.Exiled = &exiled
	result.Outcome = TallyExiled
	return result
}

// ResolveVoting tallies the current ballots, exiles the chosen player and clears the ballots.
// An exiled player holding an extra life spends it instead of leaving.
func (g *Game) ResolveVoting() (TallyResult, *Death) {
	result := TallyVotes(g.Votes)
	g.Votes = make(map[UserID]*UserID)

	if result.Exiled == nil {
		return result, nil
	}

	exiled, hasExiled := g.players[*result.Exiled]
	if !hasExiled || !exiled.IsAlive {
		return result, nil
	}

	if !applyLethal(exiled, DeathReasonVotedOut) {
		result.ExtraLifeUsed = true
		return result, nil
	}

	death := deathOf(exiled)
	return result, &death
}

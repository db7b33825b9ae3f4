package game_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jrh3k5/forest-and-wolves/game"
)

var _ = Describe("Game", func() {
	var clock *frozenClock

	BeforeEach(func() {
		clock = newFrozenClock()
	})

	Context("in the lobby", func() {
		var g *game.Game

		BeforeEach(func() {
			g = game.NewGame("lobby", 42, nil, false, game.DefaultSettings(), clock.Now())
		})

		It("rejects duplicate and invalid joins", func() {
			Expect(g.AddPlayer(1, "alice").Success).To(BeTrue())
			Expect(g.AddPlayer(1, "alice").Success).To(BeFalse())
			Expect(g.AddPlayer(0, "nobody").Success).To(BeFalse())
			Expect(g.AddPlayer(2, "").Success).To(BeFalse())
			Expect(g.PlayerCount()).To(Equal(1))
		})

		It("caps the roster at the maximum", func() {
			for id := int64(1); id <= 12; id++ {
				Expect(g.AddPlayer(game.UserID(id), "player").Success).To(BeTrue())
			}
			Expect(g.AddPlayer(13, "late").Success).To(BeFalse())
		})

		It("lets players leave and keeps the seat order", func() {
			for id := int64(1); id <= 3; id++ {
				Expect(g.AddPlayer(game.UserID(id), "player").Success).To(BeTrue())
			}
			Expect(g.RemovePlayer(2).Success).To(BeTrue())
			Expect(g.RemovePlayer(2).Success).To(BeFalse())

			var seats []game.UserID
			for _, player := range g.Players() {
				seats = append(seats, player.UserID)
			}
			Expect(seats).To(Equal([]game.UserID{1, 3}))
		})

		It("needs six players outside of test mode", func() {
			for id := int64(1); id <= 5; id++ {
				Expect(g.AddPlayer(game.UserID(id), "player").Success).To(BeTrue())
			}
			Expect(g.CanStartGame()).To(BeFalse())

			result, err := g.StartGame(clock.Now(), &scriptedRandom{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(g.Phase).To(Equal(game.PhaseWaiting))

			Expect(g.AddPlayer(6, "player").Success).To(BeTrue())
			Expect(g.CanStartGame()).To(BeTrue())
		})

		It("never lets a lobby start below the smallest playable roster", func() {
			settings := game.DefaultSettings()
			settings.MinPlayers = 2
			settings.TestMinPlayers = 1
			small := game.NewGame("small", 42, nil, true, settings, clock.Now())
			Expect(small.Settings.TestMinPlayers).To(Equal(game.MinRosterSize))
			Expect(small.Settings.MinPlayers).To(Equal(game.MinRosterSize))

			Expect(small.AddPlayer(1, "alice").Success).To(BeTrue())
			Expect(small.AddPlayer(2, "bob").Success).To(BeTrue())
			Expect(small.CanStartGame()).To(BeFalse())

			result, err := small.StartGame(clock.Now(), &scriptedRandom{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Success).To(BeFalse())
			Expect(small.Phase).To(Equal(game.PhaseWaiting))
		})

		It("needs three players in test mode", func() {
			testGame := game.NewGame("test", 42, nil, true, game.DefaultSettings(), clock.Now())
			Expect(testGame.AddPlayer(1, "a").Success).To(BeTrue())
			Expect(testGame.AddPlayer(2, "b").Success).To(BeTrue())
			Expect(testGame.CanStartGame()).To(BeFalse())
			Expect(testGame.AddPlayer(3, "c").Success).To(BeTrue())
			Expect(testGame.CanStartGame()).To(BeTrue())
		})

		It("does not accept votes or night actions", func() {
			Expect(g.AddPlayer(1, "a").Success).To(BeTrue())
			Expect(g.Vote(1, nil, clock.Now()).Success).To(BeFalse())
			Expect(g.SubmitNightAction(1, userID(1), clock.Now()).Success).To(BeFalse())
		})
	})

	It("opens the first night when started", func() {
		g := newStartedGame(clock, sixPlayerRoles...)

		Expect(g.Phase).To(Equal(game.PhaseNight))
		Expect(g.CurrentRound).To(Equal(1))
		Expect(g.PhaseEndTime).ToNot(BeNil())
		Expect(*g.PhaseEndTime).To(BeTemporally("==", gameStart.Add(60*time.Second)))
		Expect(g.Duration.StartTime).ToNot(BeNil())
		Expect(g.AddPlayer(99, "late").Success).To(BeFalse())
		Expect(g.RemovePlayer(1).Success).To(BeFalse())
		Expect(g.CheckInvariants()).To(Succeed())
	})

	Context("during the night", func() {
		var g *game.Game

		BeforeEach(func() {
			// 1 wolf, 2 beaver, 3 and 4 hares, 5 mole, 6 fox
			g = newStartedGame(clock, sixPlayerRoles...)
		})

		It("rejects actions from hares, the dead and invalid targets", func() {
			Expect(g.SubmitNightAction(3, userID(4), clock.Now()).Success).To(BeFalse(), "hares have no night action")
			Expect(g.SubmitNightAction(1, nil, clock.Now()).Success).To(BeFalse(), "an action needs a target")
			Expect(g.SubmitNightAction(1, userID(99), clock.Now()).Success).To(BeFalse(), "the target must be seated")
			Expect(g.SubmitNightAction(5, userID(5), clock.Now()).Success).To(BeFalse(), "a mole cannot investigate itself")
			Expect(g.SubmitNightAction(6, userID(6), clock.Now()).Success).To(BeFalse(), "a fox cannot steal from itself")
			Expect(g.SubmitNightAction(2, userID(2), clock.Now()).Success).To(BeTrue(), "a beaver may protect itself")
			Expect(g.NightActions).To(HaveLen(1))
		})

		It("keeps only the latest submission per actor", func() {
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(1, userID(4), clock.Now()).Success).To(BeTrue())

			Expect(g.NightActions).To(HaveLen(1))
			Expect(*g.NightActions[1].Target).To(Equal(game.UserID(4)))
		})

		It("rejects submissions once the deadline has passed", func() {
			clock.Advance(60 * time.Second)
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeFalse())
		})

		It("lists targets for actors only", func() {
			targets, result := g.AvailableTargets(1)
			Expect(result.Success).To(BeTrue())
			for _, target := range targets {
				Expect(target.Role).ToNot(Equal(game.RoleWolf))
			}
			Expect(targets).To(HaveLen(5))

			_, result = g.AvailableTargets(3)
			Expect(result.Success).To(BeFalse())
		})

		It("kills the wolf's target and counts the kill", func() {
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.From).To(Equal(game.PhaseNight))
			Expect(report.To).To(Equal(game.PhaseDay))
			Expect(report.Deaths).To(ConsistOf(HaveField("UserID", game.UserID(3))))

			victim := mustPlayer(g, 3)
			Expect(victim.IsAlive).To(BeFalse())
			Expect(victim.DeathReason).To(Equal(game.DeathReasonKilled))
			Expect(g.Statistics.PredatorKills).To(Equal(1))
			Expect(g.NightActions).To(BeEmpty())
		})

		It("lets the beaver block the wolf on the same night", func() {
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(2, userID(3), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Deaths).To(BeEmpty())
			Expect(report.Results[1].Success).To(BeTrue())
			Expect(report.Results[1].Data).To(HaveKeyWithValue("blocked", true))

			Expect(mustPlayer(g, 3).IsAlive).To(BeTrue())
			Expect(g.Statistics.BeaverProtections).To(Equal(1))
			Expect(g.Statistics.PredatorKills).To(BeZero())
		})

		It("spends an extra life instead of killing", func() {
			Expect(g.GrantExtraLives(3, 1).Success).To(BeTrue())
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Results[1].Data).To(HaveKeyWithValue("extra_life_used", true))

			survivor := mustPlayer(g, 3)
			Expect(survivor.IsAlive).To(BeTrue())
			Expect(survivor.ExtraLives).To(BeZero())
		})

		It("keeps a player with an extra life from starving", func() {
			Expect(g.GrantExtraLives(3, 1).Success).To(BeTrue())
			Expect(g.SubmitNightAction(6, userID(3), clock.Now()).Success).To(BeTrue())
			advanceTo(g, clock, game.PhaseNight)
			Expect(mustPlayer(g, 3).Supplies.Current).To(Equal(1))

			Expect(g.SubmitNightAction(6, userID(3), clock.Now()).Success).To(BeTrue())
			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Deaths).To(BeEmpty())
			Expect(report.ExtraLivesUsed).To(ConsistOf(game.UserID(3)))

			survivor := mustPlayer(g, 3)
			Expect(survivor.IsAlive).To(BeTrue())
			Expect(survivor.ExtraLives).To(BeZero())
			Expect(survivor.DeathReason).To(BeEmpty())
			// the life only covers the missed meal; dawn foraging still applies
			Expect(survivor.Supplies.Current).To(Equal(1))
		})

		It("resolves the wolf before the fox", func() {
			Expect(g.SubmitNightAction(6, userID(3), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Results[6].Success).To(BeFalse())
			Expect(g.Statistics.FoxThefts).To(BeZero())
		})

		It("reveals the target's team to the mole", func() {
			Expect(g.SubmitNightAction(5, userID(6), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Results[5].Success).To(BeTrue())
			Expect(report.Results[5].Data).To(HaveKeyWithValue("team", string(game.TeamPredators)))
			Expect(report.Results[5].Data).To(HaveKeyWithValue("role", string(game.RoleFox)))
		})

		It("has every survivor eat and forage", func() {
			Expect(g.SubmitNightAction(6, userID(4), clock.Now()).Success).To(BeTrue())

			_, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())

			// 2 - 1 eaten + 1 foraged
			Expect(mustPlayer(g, 3).Supplies.Current).To(Equal(2))
			// 2 - 1 stolen - 1 eaten + 1 foraged
			robbed := mustPlayer(g, 4)
			Expect(robbed.Supplies.Current).To(Equal(1))
			Expect(robbed.StolenSupplies).To(Equal(1))
			Expect(g.Statistics.FoxThefts).To(Equal(1))
			Expect(g.Statistics.HerbivoreSurvivals).To(Equal(4))
		})
	})

	Context("with a pack of wolves", func() {
		var g *game.Game

		BeforeEach(func() {
			// 1 and 2 wolves, 3 beaver, 4 and 5 hares, 6 mole, 7 fox
			g = newStartedGame(clock, game.RoleWolf, game.RoleWolf, game.RoleBeaver, game.RoleHare, game.RoleHare, game.RoleMole, game.RoleFox)
		})

		It("hunts only the target chosen last", func() {
			Expect(g.SubmitNightAction(1, userID(4), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(2, userID(5), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Deaths).To(ConsistOf(HaveField("UserID", game.UserID(5))))
			Expect(report.Results[1]).To(Equal(report.Results[2]), "the pack shares one result")
			Expect(report.Results[1].Data).To(HaveKeyWithValue("killed", true))

			Expect(mustPlayer(g, 4).IsAlive).To(BeTrue())
			Expect(mustPlayer(g, 5).IsAlive).To(BeFalse())
			Expect(g.Statistics.PredatorKills).To(Equal(1))
		})

		It("follows a wolf that changes its mind after the others", func() {
			Expect(g.SubmitNightAction(1, userID(4), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(2, userID(5), clock.Now()).Success).To(BeTrue())
			Expect(g.SubmitNightAction(1, userID(6), clock.Now()).Success).To(BeTrue())

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Deaths).To(ConsistOf(HaveField("UserID", game.UserID(6))))
			Expect(g.Statistics.PredatorKills).To(Equal(1))
		})
	})

	It("has the beaver restore a critical target's supplies", func() {
		g := newStartedGame(clock, sixPlayerRoles...)
		Expect(g.SubmitNightAction(6, userID(3), clock.Now()).Success).To(BeTrue())
		advanceTo(g, clock, game.PhaseNight)
		Expect(mustPlayer(g, 3).Supplies.Current).To(Equal(1))

		Expect(g.SubmitNightAction(2, userID(3), clock.Now()).Success).To(BeTrue())
		report, err := g.Advance(clock.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Results[2].Data).To(HaveKeyWithValue("restored", 1))
	})

	Context("starting a new night", func() {
		It("clears protection and counts the nights survived", func() {
			g := newStartedGame(clock, sixPlayerRoles...)
			Expect(g.SubmitNightAction(2, userID(3), clock.Now()).Success).To(BeTrue())

			_, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(mustPlayer(g, 3).IsBeaverProtected).To(BeTrue())

			advanceTo(g, clock, game.PhaseNight)
			Expect(g.CurrentRound).To(Equal(2))
			for _, player := range g.Players() {
				Expect(player.IsBeaverProtected).To(BeFalse())
				Expect(player.ConsecutiveNightsSurvived).To(Equal(1))
			}
		})
	})

	Context("during voting", func() {
		var g *game.Game

		BeforeEach(func() {
			g = newStartedGame(clock, sixPlayerRoles...)
			advanceTo(g, clock, game.PhaseVoting)
		})

		It("rejects self-votes and votes for unknown players", func() {
			Expect(g.Vote(1, userID(1), clock.Now()).Success).To(BeFalse())
			Expect(g.Vote(1, userID(99), clock.Now()).Success).To(BeFalse())
			Expect(g.Vote(99, userID(1), clock.Now()).Success).To(BeFalse())
			Expect(g.Votes).To(BeEmpty())
		})

		It("lets a voter change their mind", func() {
			Expect(g.Vote(3, userID(1), clock.Now()).Success).To(BeTrue())
			Expect(g.Vote(3, nil, clock.Now()).Success).To(BeTrue())
			Expect(g.Votes).To(HaveKeyWithValue(game.UserID(3), BeNil()))
		})

		It("exiles the majority choice and ends the game when the last predator goes", func() {
			for _, voterID := range []int64{2, 3, 4, 5, 6} {
				Expect(g.Vote(game.UserID(voterID), userID(1), clock.Now()).Success).To(BeTrue())
			}

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Tally.Outcome).To(Equal(game.TallyExiled))
			Expect(report.Deaths).To(ConsistOf(HaveField("Reason", game.DeathReasonVotedOut)))
			// the fox is still alive, so the game continues
			Expect(report.To).To(Equal(game.PhaseNight))

			advanceTo(g, clock, game.PhaseVoting)
			for _, voterID := range []int64{2, 3, 4, 5} {
				Expect(g.Vote(game.UserID(voterID), userID(6), clock.Now()).Success).To(BeTrue())
			}
			report, err = g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.To).To(Equal(game.PhaseGameOver))
			Expect(report.Winner).ToNot(BeNil())
			Expect(*report.Winner).To(Equal(game.TeamHerbivores))
			Expect(g.Duration.EndTime).ToNot(BeNil())
			Expect(g.PhaseEndTime).To(BeNil())
		})

		It("lets an exiled player with an extra life stay in the game", func() {
			Expect(g.GrantExtraLives(3, 1).Success).To(BeTrue())
			for _, voterID := range []int64{1, 2, 4, 5} {
				Expect(g.Vote(game.UserID(voterID), userID(3), clock.Now()).Success).To(BeTrue())
			}

			report, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(report.Tally.Outcome).To(Equal(game.TallyExiled))
			Expect(report.Tally.ExtraLifeUsed).To(BeTrue())
			Expect(report.Deaths).To(BeEmpty())
			Expect(report.To).To(Equal(game.PhaseNight))

			survivor := mustPlayer(g, 3)
			Expect(survivor.IsAlive).To(BeTrue())
			Expect(survivor.ExtraLives).To(BeZero())
			Expect(survivor.DeathReason).To(BeEmpty())
		})

		It("rejects votes from dead players", func() {
			for _, voterID := range []int64{2, 3, 4, 5, 6} {
				Expect(g.Vote(game.UserID(voterID), userID(1), clock.Now()).Success).To(BeTrue())
			}
			_, err := g.Advance(clock.Now())
			Expect(err).ToNot(HaveOccurred())

			advanceTo(g, clock, game.PhaseVoting)
			Expect(g.Vote(1, userID(2), clock.Now()).Success).To(BeFalse())
			Expect(g.Vote(2, userID(1), clock.Now()).Success).To(BeFalse(), "the exiled player cannot be voted for")
		})
	})

	Context("once over", func() {
		It("refuses to advance or change", func() {
			g := newStartedGame(clock, sixPlayerRoles...)
			Expect(g.Cancel(clock.Now())).To(BeTrue())
			Expect(g.Cancel(clock.Now())).To(BeFalse())
			Expect(g.Cancelled).To(BeTrue())
			Expect(g.Winner).To(BeNil())

			_, err := g.Advance(clock.Now())
			Expect(errors.Is(err, game.ErrGameOver)).To(BeTrue())
			Expect(g.SubmitNightAction(1, userID(3), clock.Now()).Success).To(BeFalse())
			Expect(g.GrantExtraLives(3, 1).Success).To(BeFalse())
			Expect(g.CheckInvariants()).To(Succeed())
		})
	})

	It("declares the predators winners once they match the herbivores", func() {
		g := newStartedGame(clock, game.RoleWolf, game.RoleHare, game.RoleHare)
		Expect(g.CheckGameEnd()).To(BeNil())

		Expect(g.SubmitNightAction(1, userID(2), clock.Now()).Success).To(BeTrue())
		report, err := g.Advance(clock.Now())
		Expect(err).ToNot(HaveOccurred())
		Expect(report.To).To(Equal(game.PhaseGameOver))
		Expect(*g.CheckGameEnd()).To(Equal(game.TeamPredators))
	})
})

// advanceTo forces phase transitions without any submissions until the game reaches phase.
func advanceTo(g *game.Game, clock *frozenClock, phase game.Phase) {
	for range 3 {
		if g.Phase == phase {
			return
		}
		_, err := g.Advance(clock.Now())
		Expect(err).ToNot(HaveOccurred())
	}
	Expect(g.Phase).To(Equal(phase))
}

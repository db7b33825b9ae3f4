package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jrh3k5/forest-and-wolves/game"
	"github.com/jrh3k5/forest-and-wolves/notify"
	"github.com/jrh3k5/forest-and-wolves/server"
	"github.com/jrh3k5/forest-and-wolves/store"
)

// 1 wolf, 2 beaver, 3 and 4 hares, 5 mole, 6 fox
var seatRoles = []game.Role{game.RoleWolf, game.RoleBeaver, game.RoleHare, game.RoleHare, game.RoleMole, game.RoleFox}

type fixedRandom struct{}

func (fixedRandom) Shuffle([]game.Role) []game.Role {
	return append([]game.Role(nil), seatRoles...)
}

type testClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (t *testClock) Now() time.Time {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.now
}

func (t *testClock) Advance(d time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.now = t.now.Add(d)
}

type actionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type createResponse struct {
	GameID string `json:"gameId"`
}

type gameView struct {
	Phase   string `json:"phase"`
	Round   int    `json:"round"`
	Winner  string `json:"winner"`
	Players []struct {
		UserID  int64  `json:"userId"`
		IsAlive bool   `json:"isAlive"`
		Role    string `json:"role"`
	} `json:"players"`
}

var _ = Describe("Server", func() {
	var ctx context.Context
	var client *resty.Client
	var baseURL string
	var clock *testClock
	var eventStore *store.MemoryStore

	var hub *notify.Hub

	startServer := func() string {
		hub = notify.NewHub()
		engine := game.NewInMemoryGameEngine(
			game.WithClock(clock),
			game.WithRandom(fixedRandom{}),
			game.WithPersistence(eventStore),
			game.WithNotifier(hub),
		)

		testServer := httptest.NewServer(server.NewServer(engine, eventStore, hub))
		DeferCleanup(testServer.Close)
		return testServer.URL
	}

	BeforeEach(func() {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(context.Background(), time.Minute)
		DeferCleanup(cancelFn)

		clock = &testClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
		eventStore = store.NewMemoryStore()
		baseURL = startServer()
		client = resty.New()
	})

	createGame := func(chatID int64) string {
		var created createResponse
		response, err := client.R().SetContext(ctx).SetResult(&created).Post(fmt.Sprintf("%s/games?chatId=%d", baseURL, chatID))
		Expect(err).ToNot(HaveOccurred(), "creating the game should not fail")
		Expect(response.StatusCode()).To(Equal(http.StatusCreated), "unexpected status creating the game: %s", response.String())
		Expect(created.GameID).ToNot(BeEmpty())
		return created.GameID
	}

	joinAll := func(gameID string) {
		for seat := range seatRoles {
			userID := seat + 1
			joinResponse, err := client.R().SetContext(ctx).Post(fmt.Sprintf("%s/games/%s/join?userId=%d&username=player%d", baseURL, gameID, userID, userID))
			Expect(err).ToNot(HaveOccurred(), "player %d joining the game should not fail", userID)
			Expect(joinResponse.StatusCode()).To(Equal(http.StatusOK), "unexpected status when player %d joined: %s", userID, joinResponse.String())
		}
	}

	post := func(path string) (*resty.Response, actionResponse) {
		var result actionResponse
		response, err := client.R().SetContext(ctx).Post(baseURL + path)
		Expect(err).ToNot(HaveOccurred(), "POST %s should not fail", path)
		if len(response.Body()) > 0 {
			_ = json.Unmarshal(response.Body(), &result)
		}
		return response, result
	}

	getGame := func(gameID string) gameView {
		var view gameView
		response, err := client.R().SetContext(ctx).SetResult(&view).Get(fmt.Sprintf("%s/games/%s", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(response.StatusCode()).To(Equal(http.StatusOK), "unexpected status getting the game: %s", response.String())
		return view
	}

	It("successfully plays a six-player game", func() {
		gameID := createGame(-1001)

		duplicateResponse, err := client.R().SetContext(ctx).Post(fmt.Sprintf("%s/games?chatId=-1001", baseURL))
		Expect(err).ToNot(HaveOccurred())
		Expect(duplicateResponse.StatusCode()).To(Equal(http.StatusConflict), "a chat can only host one game")

		joinAll(gameID)
		rejoinResponse, rejoin := post(fmt.Sprintf("/games/%s/join?userId=1&username=player1", gameID))
		Expect(rejoinResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity))
		Expect(rejoin.Success).To(BeFalse())

		lobby := getGame(gameID)
		Expect(lobby.Phase).To(Equal(string(game.PhaseWaiting)))
		Expect(lobby.Players).To(HaveLen(6))
		for _, player := range lobby.Players {
			Expect(player.Role).To(BeEmpty(), "roles must not leak before the game is over")
		}

		startResponse, started := post(fmt.Sprintf("/games/%s/start", gameID))
		Expect(startResponse.StatusCode()).To(Equal(http.StatusOK), "unexpected response to starting game: %s", startResponse.String())
		Expect(started.Data).To(HaveKeyWithValue("wolves", float64(1)))

		var targets []map[string]any
		targetsResponse, err := client.R().SetContext(ctx).SetResult(&targets).Get(fmt.Sprintf("%s/games/%s/players/1/targets", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(targetsResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(targets).To(HaveLen(5))
		Expect(targets[0]).ToNot(HaveKey("role"))

		hareTargetsResponse, err := client.R().SetContext(ctx).Get(fmt.Sprintf("%s/games/%s/players/3/targets", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(hareTargetsResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity), "hares have no night action")

		killResponse, _ := post(fmt.Sprintf("/games/%s/players/1/actions/night?target=3", gameID))
		Expect(killResponse.StatusCode()).To(Equal(http.StatusOK), "the wolf should be able to hunt: %s", killResponse.String())
		selfTheftResponse, _ := post(fmt.Sprintf("/games/%s/players/6/actions/night?target=6", gameID))
		Expect(selfTheftResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity))

		earlyTickResponse, _ := post(fmt.Sprintf("/games/%s/tick", gameID))
		Expect(earlyTickResponse.StatusCode()).To(Equal(http.StatusNoContent), "the night has not ended yet")

		clock.Advance(61 * time.Second)
		var report game.PhaseReport
		tickResponse, err := client.R().SetContext(ctx).SetResult(&report).Post(fmt.Sprintf("%s/games/%s/tick", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(tickResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(report.To).To(Equal(game.PhaseDay))
		Expect(report.Deaths).To(ConsistOf(HaveField("UserID", game.UserID(3))))

		votingResponse, _ := post(fmt.Sprintf("/games/%s/advance", gameID))
		Expect(votingResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(getGame(gameID).Phase).To(Equal(string(game.PhaseVoting)))

		for _, voterID := range []int{2, 4, 5, 6} {
			voteResponse, _ := post(fmt.Sprintf("/games/%s/players/%d/actions/vote?target=1", gameID, voterID))
			Expect(voteResponse.StatusCode()).To(Equal(http.StatusOK), "player %d should be able to vote", voterID)
		}
		deadVoteResponse, _ := post(fmt.Sprintf("/games/%s/players/3/actions/vote?target=1", gameID))
		Expect(deadVoteResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity), "dead players cannot vote")
		skipResponse, skip := post(fmt.Sprintf("/games/%s/players/1/actions/vote?target=skip", gameID))
		Expect(skipResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(skip.Data).To(HaveKeyWithValue("skip", true))

		exileResponse, _ := post(fmt.Sprintf("/games/%s/advance", gameID))
		Expect(exileResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(getGame(gameID).Phase).To(Equal(string(game.PhaseNight)), "the fox keeps the predators in the game")

		for range 2 {
			advanceResponse, _ := post(fmt.Sprintf("/games/%s/advance", gameID))
			Expect(advanceResponse.StatusCode()).To(Equal(http.StatusOK))
		}
		for _, voterID := range []int{2, 4, 5} {
			voteResponse, _ := post(fmt.Sprintf("/games/%s/players/%d/actions/vote?target=6", gameID, voterID))
			Expect(voteResponse.StatusCode()).To(Equal(http.StatusOK), "player %d should be able to vote", voterID)
		}
		finalResponse, _ := post(fmt.Sprintf("/games/%s/advance", gameID))
		Expect(finalResponse.StatusCode()).To(Equal(http.StatusOK))

		finished := getGame(gameID)
		Expect(finished.Phase).To(Equal(string(game.PhaseGameOver)))
		Expect(finished.Winner).To(Equal(string(game.TeamHerbivores)))
		for seat, player := range finished.Players {
			Expect(player.Role).To(Equal(string(seatRoles[seat])), "roles are revealed once the game is over")
		}

		var events []store.Event
		eventsResponse, err := client.R().SetContext(ctx).SetResult(&events).Get(fmt.Sprintf("%s/games/%s/events", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(eventsResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(events).To(ContainElement(HaveField("Type", game.EventGameOver)))

		lateResponse, _ := post(fmt.Sprintf("/games/%s/advance", gameID))
		Expect(lateResponse.StatusCode()).To(Equal(http.StatusNotFound), "finished games leave the engine")

		newGameID := createGame(-1001)
		Expect(newGameID).ToNot(Equal(gameID), "the chat is free for a new game")
	})

	It("reports unknown games and malformed requests", func() {
		missingResponse, err := client.R().SetContext(ctx).Get(baseURL + "/games/missing")
		Expect(err).ToNot(HaveOccurred())
		Expect(missingResponse.StatusCode()).To(Equal(http.StatusNotFound))

		noChatResponse, _ := post("/games")
		Expect(noChatResponse.StatusCode()).To(Equal(http.StatusBadRequest))

		gameID := createGame(-2002)
		badUserResponse, _ := post(fmt.Sprintf("/games/%s/join?userId=abc&username=x", gameID))
		Expect(badUserResponse.StatusCode()).To(Equal(http.StatusBadRequest))

		unknownActionResponse, _ := post(fmt.Sprintf("/games/%s/players/1/actions/dance", gameID))
		Expect(unknownActionResponse.StatusCode()).To(Equal(http.StatusNotFound))

		earlyStartResponse, early := post(fmt.Sprintf("/games/%s/start", gameID))
		Expect(earlyStartResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity))
		Expect(early.Message).To(ContainSubstring("at least 6 players"))
	})

	It("grants extra lives only in positive amounts", func() {
		gameID := createGame(-3003)
		joinAll(gameID)

		grantResponse, granted := post(fmt.Sprintf("/games/%s/players/3/lives?count=2", gameID))
		Expect(grantResponse.StatusCode()).To(Equal(http.StatusOK))
		Expect(granted.Data).To(HaveKeyWithValue("extra_lives", float64(2)))

		zeroResponse, _ := post(fmt.Sprintf("/games/%s/players/3/lives?count=0", gameID))
		Expect(zeroResponse.StatusCode()).To(Equal(http.StatusUnprocessableEntity))
	})

	It("restores a game from its snapshot on another host", func() {
		gameID := createGame(-4004)
		joinAll(gameID)
		startResponse, _ := post(fmt.Sprintf("/games/%s/start", gameID))
		Expect(startResponse.StatusCode()).To(Equal(http.StatusOK))

		snapshotResponse, err := client.R().SetContext(ctx).Get(fmt.Sprintf("%s/games/%s/snapshot", baseURL, gameID))
		Expect(err).ToNot(HaveOccurred())
		Expect(snapshotResponse.StatusCode()).To(Equal(http.StatusOK))

		baseURL = startServer()
		restoreResponse, err := client.R().SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(snapshotResponse.Body()).
			Post(baseURL + "/games/restore")
		Expect(err).ToNot(HaveOccurred())
		Expect(restoreResponse.StatusCode()).To(Equal(http.StatusOK), "unexpected response restoring: %s", restoreResponse.String())

		restored := getGame(gameID)
		Expect(restored.Phase).To(Equal(string(game.PhaseNight)))
		Expect(restored.Round).To(Equal(1))
	})

	It("streams chat announcements to spectators", func() {
		gameID := createGame(-5005)
		joinAll(gameID)

		feedURL := "ws" + strings.TrimPrefix(baseURL, "http") + fmt.Sprintf("/games/%s/feed", gameID)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, nil)
		Expect(err).ToNot(HaveOccurred(), "connecting to the feed should not fail")
		DeferCleanup(func() { _ = conn.Close() })

		// the spectator registers asynchronously after the upgrade
		Eventually(func() int { return hub.SpectatorCount(-5005) }).Should(Equal(1))

		startResponse, _ := post(fmt.Sprintf("/games/%s/start", gameID))
		Expect(startResponse.StatusCode()).To(Equal(http.StatusOK))

		Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		var message notify.FeedMessage
		Expect(conn.ReadJSON(&message)).To(Succeed())
		Expect(message.Text).To(ContainSubstring("The game has started"))
	})
})

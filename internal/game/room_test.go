package game

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records every line delivered to one player.
type fakeSender struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeSender) Send(line string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	return true
}

func (f *fakeSender) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeSender) count(prefix string) int {
	n := 0
	for _, l := range f.all() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeSender) first(prefix string) (string, bool) {
	for _, l := range f.all() {
		if strings.HasPrefix(l, prefix) {
			return l, true
		}
	}
	return "", false
}

// testTiming shrinks every wall-clock knob so timer-driven transitions
// run at test speed.
func testTiming() Timing {
	return Timing{
		WordChoiceTimeout: 40 * time.Millisecond,
		TickInterval:      10 * time.Millisecond,
		SettlementDelay:   20 * time.Millisecond,
		HintEveryTicks:    20,
	}
}

func addTestPlayer(t *testing.T, room *Room, name string) (*Player, *fakeSender) {
	t.Helper()
	out := &fakeSender{}
	p := NewPlayer(out)
	p.SetName(name)
	require.NoError(t, room.AddPlayer(p))
	return p, out
}

func waitPhase(t *testing.T, room *Room, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return room.CurrentPhase() == want
	}, 2*time.Second, time.Millisecond, "room never reached phase %s", want)
}

func currentDrawerID(room *Room) string {
	room.mu.RLock()
	defer room.mu.RUnlock()
	return room.players[room.turnIndex].ID
}

func secretWord(room *Room) string {
	room.mu.RLock()
	defer room.mu.RUnlock()
	return room.word
}

func TestStartRequiresHostAndTwoPlayers(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	host, hostOut := addTestPlayer(t, room, "alice")

	err := room.Start(host)
	assert.ErrorIs(t, err, ErrNotEnough)

	other, _ := addTestPlayer(t, room, "bob")
	err = room.Start(other)
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, room.Start(host))
	assert.Equal(t, PhaseWordChoice, room.CurrentPhase())

	line, ok := hostOut.first("GAME_START|")
	require.True(t, ok)
	assert.Equal(t, "GAME_START|3", line)

	// a second start while the game is running is rejected
	assert.ErrorIs(t, room.Start(host), ErrGameInProgress)
}

func TestRoomFullRejection(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.MaxPlayers = 2
	room := reg.Create(cfg)

	addTestPlayer(t, room, "alice")
	addTestPlayer(t, room, "bob")

	late := NewPlayer(&fakeSender{})
	late.SetName("carol")
	err := room.AddPlayer(late)
	require.Error(t, err)
	assert.Equal(t, "Room not found or full", err.Error())

	info, _ := room.Info()
	assert.Equal(t, 2, info.Occupancy)
}

func TestGuessScoringAndIdempotence(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.Rounds = 1
	room := reg.Create(cfg)

	a, _ := addTestPlayer(t, room, "alice")
	b, _ := addTestPlayer(t, room, "bob")
	c, cOut := addTestPlayer(t, room, "carol")

	require.NoError(t, room.Start(a))
	room.SelectWord(a, 0)
	require.Equal(t, PhaseDrawing, room.CurrentPhase())
	word := secretWord(room)

	room.Guess(b, "definitely wrong")
	_, sawChat := cOut.first("CHAT|bob|")
	assert.True(t, sawChat, "wrong guess should be rebroadcast as chat")

	// correct guesses are case-insensitive, trimmed, and idempotent
	room.Guess(b, "  "+strings.ToUpper(word)+" ")
	room.Guess(b, word)
	assert.Equal(t, 1, cOut.count("CORRECT_GUESS|"+b.ID))

	line, ok := cOut.first("CORRECT_GUESS|" + b.ID)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("CORRECT_GUESS|%s|bob|90", b.ID), line)

	// the drawer's own guess is ignored
	room.Guess(a, word)
	assert.Equal(t, 0, cOut.count("CORRECT_GUESS|"+a.ID))

	// the last non-drawer guessing ends the turn and pays the drawer
	room.Guess(c, word)
	assert.NotEqual(t, PhaseDrawing, room.CurrentPhase())

	scores := room.Scores()
	assert.Equal(t, 90, scores[b.ID])
	assert.Equal(t, 80, scores[c.ID])
	assert.Equal(t, 40, scores[a.ID], "drawer earns 20 per correct guesser")
}

func TestScoresNeverNegative(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.Rounds = 1
	room := reg.Create(cfg)

	a, _ := addTestPlayer(t, room, "alice")
	players := []*Player{a}
	for i := 0; i < 7; i++ {
		p, _ := addTestPlayer(t, room, fmt.Sprintf("p%d", i))
		players = append(players, p)
	}

	require.NoError(t, room.Start(a))
	room.SelectWord(a, 0)
	word := secretWord(room)
	for _, p := range players[1:] {
		room.Guess(p, word)
	}

	// ranks past the fifth guesser floor at 50 points
	for id, score := range room.Scores() {
		assert.GreaterOrEqual(t, score, 0, "player %s", id)
	}
	assert.Equal(t, 50, room.Scores()[players[7].ID])
}

func TestTurnRotationAcrossRounds(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.Rounds = 5
	room := reg.Create(cfg)

	a, aOut := addTestPlayer(t, room, "alice")
	b, _ := addTestPlayer(t, room, "bob")
	c, _ := addTestPlayer(t, room, "carol")
	players := []*Player{a, b, c}

	require.NoError(t, room.Start(a))

	var drawers []string
	for turn := 0; turn < 5; turn++ {
		waitPhase(t, room, PhaseWordChoice)
		drawers = append(drawers, currentDrawerID(room))

		// only the drawer's selection takes effect
		for _, p := range players {
			room.SelectWord(p, 0)
		}
		waitPhase(t, room, PhaseDrawing)

		word := secretWord(room)
		for _, p := range players {
			if p.ID != drawers[turn] {
				room.Guess(p, word)
			}
		}
		require.NotEqual(t, PhaseDrawing, room.CurrentPhase())
	}

	require.Eventually(t, func() bool {
		return aOut.count("GAME_END|") == 1
	}, 2*time.Second, time.Millisecond)

	want := []string{a.ID, b.ID, c.ID, a.ID, b.ID}
	assert.Equal(t, want, drawers)
	assert.Equal(t, PhaseIdle, room.CurrentPhase())
}

func TestWordChoiceTimeoutAutoSelectsOnce(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	a, aOut := addTestPlayer(t, room, "alice")
	addTestPlayer(t, room, "bob")

	require.NoError(t, room.Start(a))

	choiceLine, ok := aOut.first("CHOOSE_WORD|")
	require.True(t, ok)
	choices := strings.Split(strings.TrimPrefix(choiceLine, "CHOOSE_WORD|"), "|")
	require.Len(t, choices, 3)

	waitPhase(t, room, PhaseDrawing)
	assert.Equal(t, choices[0], secretWord(room), "timeout selects candidate 0")

	// no duplicate transition after the timeout has fired
	time.Sleep(3 * testTiming().WordChoiceTimeout)
	assert.Equal(t, 1, aOut.count("WORD_SELECTED|"))
}

func TestManualSelectionCancelsTimeout(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	a, aOut := addTestPlayer(t, room, "alice")
	addTestPlayer(t, room, "bob")

	require.NoError(t, room.Start(a))
	room.SelectWord(a, 2)
	require.Equal(t, PhaseDrawing, room.CurrentPhase())

	time.Sleep(3 * testTiming().WordChoiceTimeout)
	assert.Equal(t, 1, aOut.count("WORD_SELECTED|"))
}

func TestEndToEndTwoPlayerGame(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.Rounds = 1
	cfg.DrawTime = 80
	room := reg.Create(cfg)

	a, aOut := addTestPlayer(t, room, "alice")
	b, bOut := addTestPlayer(t, room, "bob")

	require.NoError(t, room.Start(a))

	choiceLine, ok := aOut.first("CHOOSE_WORD|")
	require.True(t, ok, "drawer is offered words")
	choices := strings.Split(strings.TrimPrefix(choiceLine, "CHOOSE_WORD|"), "|")
	require.Len(t, choices, 3)
	_, bGotChoices := bOut.first("CHOOSE_WORD|")
	assert.False(t, bGotChoices, "non-drawers never see the candidates")

	room.SelectWord(a, 1)
	word := choices[1]

	selected, ok := bOut.first("WORD_SELECTED|")
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("WORD_SELECTED|%s|%d", strings.Repeat("_", len(word)), len(word)), selected)

	room.Guess(b, word)

	correct, ok := bOut.first("CORRECT_GUESS|")
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("CORRECT_GUESS|%s|bob|90", b.ID), correct)

	// the lone non-drawer guessed, so the round settles immediately
	roundEnd, ok := bOut.first("ROUND_END|")
	require.True(t, ok)
	assert.Equal(t, "ROUND_END|"+word, roundEnd)
	assert.Equal(t, 20, room.Scores()[a.ID])

	require.Eventually(t, func() bool {
		_, done := bOut.first("GAME_END|")
		return done
	}, 2*time.Second, time.Millisecond)

	end, _ := bOut.first("GAME_END|")
	assert.Equal(t, "GAME_END|bob|90", end)
}

func TestDrawerLeavingMidDrawingEndsTurn(t *testing.T) {
	reg := NewRegistry(testTiming())
	cfg := DefaultConfig()
	cfg.Rounds = 3
	room := reg.Create(cfg)

	a, _ := addTestPlayer(t, room, "alice")
	b, bOut := addTestPlayer(t, room, "bob")
	c, _ := addTestPlayer(t, room, "carol")

	require.NoError(t, room.Start(a))
	room.SelectWord(a, 0)
	require.Equal(t, PhaseDrawing, room.CurrentPhase())

	room.RemovePlayer(a)

	_, sawRoundEnd := bOut.first("ROUND_END|")
	assert.True(t, sawRoundEnd)
	hostLine, ok := bOut.first("NEW_HOST|")
	require.True(t, ok, "host migrates to the next roster member")
	assert.Equal(t, "NEW_HOST|"+b.ID, hostLine)

	// the room recovers and hands the turn to the next player
	waitPhase(t, room, PhaseWordChoice)
	assert.Equal(t, b.ID, currentDrawerID(room))

	scores := room.Scores()
	_, inLedger := scores[a.ID]
	assert.False(t, inLedger, "departed players leave the ledger")
	assert.Contains(t, scores, c.ID)
}

func TestEmptyRoomIsDestroyed(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	a, _ := addTestPlayer(t, room, "alice")
	b, _ := addTestPlayer(t, room, "bob")
	require.Equal(t, 1, reg.Count())

	room.RemovePlayer(a)
	require.Equal(t, 1, reg.Count())

	room.RemovePlayer(b)
	assert.Equal(t, 0, reg.Count())
	_, ok := reg.Get(room.Code)
	assert.False(t, ok)
}

func TestHintRevealNeverExceedsThirdOfWord(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())
	room.word = "elephant" // 8 letters, cap floor(8/3) = 2

	for i := 0; i < 20; i++ {
		room.guessed[fmt.Sprintf("id-%d", i)] = struct{}{}
	}

	for i := 0; i < 50; i++ {
		masked := room.maskedLocked()
		revealed := 0
		for _, ch := range masked {
			if ch != '_' {
				revealed++
			}
		}
		assert.LessOrEqual(t, revealed, 2)
		assert.Len(t, masked, len(room.word))
	}
}

func TestMaskScalesWithCorrectGuessers(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())
	room.word = "astronaut"

	assert.Equal(t, strings.Repeat("_", 9), room.maskedLocked(), "nothing revealed before any correct guess")

	room.guessed["one"] = struct{}{}
	room.guessed["two"] = struct{}{}
	masked := room.maskedLocked()
	revealed := 0
	for _, ch := range masked {
		if ch != '_' {
			revealed++
		}
	}
	assert.Equal(t, 1, revealed)
}

func TestConfigureHostOnlyAndIdleOnly(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	a, _ := addTestPlayer(t, room, "alice")
	b, bOut := addTestPlayer(t, room, "bob")

	assert.ErrorIs(t, room.Configure(b, "5,60,10,"), ErrNotHost)

	require.NoError(t, room.Configure(a, "5,60,10,sphinx;zeppelin"))
	line, ok := bOut.first("CONFIG_UPDATED|")
	require.True(t, ok)
	assert.Equal(t, "CONFIG_UPDATED|5,60,10,sphinx;zeppelin", line)

	room.mu.RLock()
	cfg := room.cfg
	room.mu.RUnlock()
	assert.Equal(t, 5, cfg.Rounds)
	assert.Equal(t, 60, cfg.DrawTime)
	assert.Equal(t, 10, cfg.MaxPlayers)

	require.NoError(t, room.Start(a))
	assert.ErrorIs(t, room.Configure(a, "1,30,4,"), ErrConfigMidGame)
}

func TestJoinMidGameAppendsToRotation(t *testing.T) {
	reg := NewRegistry(testTiming())
	room := reg.Create(DefaultConfig())

	a, _ := addTestPlayer(t, room, "alice")
	b, _ := addTestPlayer(t, room, "bob")
	require.NoError(t, room.Start(a))

	c, cOut := addTestPlayer(t, room, "carol")

	room.mu.RLock()
	order := make([]string, 0, len(room.players))
	for _, p := range room.players {
		order = append(order, p.ID)
	}
	room.mu.RUnlock()
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, order)

	// the newcomer is caught up on roster and ledger
	_, gotList := cOut.first("PLAYER_LIST|")
	assert.True(t, gotList)
	_, gotScores := cOut.first("SCORES|")
	assert.True(t, gotScores)
}

func TestCountdownAndHintBroadcasts(t *testing.T) {
	timing := testTiming()
	timing.HintEveryTicks = 3
	reg := NewRegistry(timing)
	cfg := DefaultConfig()
	cfg.DrawTime = 7
	room := reg.Create(cfg)

	a, _ := addTestPlayer(t, room, "alice")
	_, bOut := addTestPlayer(t, room, "bob")

	require.NoError(t, room.Start(a))
	room.SelectWord(a, 0)

	// the countdown runs to zero and settles the turn
	waitPhase(t, room, PhaseRoundEnd)

	timer, ok := bOut.first("TIMER|")
	require.True(t, ok)
	assert.Equal(t, "TIMER|6", timer)
	assert.GreaterOrEqual(t, bOut.count("HINT|"), 1, "hints fire on the reveal interval")
}

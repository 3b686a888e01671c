package game

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-games/scribble-server/internal/protocol"
	"github.com/inkwell-games/scribble-server/internal/words"
)

// =============================================================================
// ROOM: TURN/ROUND STATE MACHINE
// =============================================================================

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWordChoice Phase = "word_choice"
	PhaseDrawing    Phase = "drawing"
	PhaseRoundEnd   Phase = "round_end"
)

const MinPlayersToStart = 2

// Timing collects the wall-clock knobs of the state machine. Tests
// shrink these so timer-driven paths run fast.
type Timing struct {
	WordChoiceTimeout time.Duration
	TickInterval      time.Duration
	SettlementDelay   time.Duration
	HintEveryTicks    int
}

func DefaultTiming() Timing {
	return Timing{
		WordChoiceTimeout: 15 * time.Second,
		TickInterval:      1 * time.Second,
		SettlementDelay:   5 * time.Second,
		HintEveryTicks:    20,
	}
}

// Config is a room's host-controlled settings.
type Config struct {
	Private    bool
	MaxPlayers int
	Rounds     int
	DrawTime   int // seconds per drawing phase
}

func DefaultConfig() Config {
	return Config{
		Private:    false,
		MaxPlayers: 8,
		Rounds:     3,
		DrawTime:   80,
	}
}

var (
	ErrRoomFull       = errors.New("Room not found or full")
	ErrNotHost        = errors.New("Only the host can do that")
	ErrNotEnough      = errors.New("Need at least 2 players")
	ErrGameInProgress = errors.New("Game already in progress")
	ErrConfigMidGame  = errors.New("Cannot configure during a game")
)

// Room owns one game session. All mutable state sits behind mu;
// connection goroutines and timer callbacks alike take the lock before
// touching it. Broadcasts happen while the lock is held. Sender.Send
// never blocks, and serializing broadcasts under the room mutex keeps
// every member's view of message order identical.
type Room struct {
	Code string

	mu       sync.RWMutex
	cfg      Config
	timing   Timing
	registry *Registry
	pool     *words.Pool

	host    *Player
	players []*Player // roster in turn order
	scores  map[string]int

	phase       Phase
	round       int
	turnIndex   int
	word        string
	wordChoices []string
	elapsed     int                 // drawing ticks seen this turn
	guessed     map[string]struct{} // player ids correct this turn

	// gen advances on every phase transition; scheduled callbacks
	// capture the generation they were armed for and no-op when the
	// room has moved on.
	gen         uint64
	choiceTimer *time.Timer
	cancelTick  context.CancelFunc
}

func newRoom(code string, cfg Config, timing Timing, reg *Registry) *Room {
	return &Room{
		Code:     code,
		cfg:      cfg,
		timing:   timing,
		registry: reg,
		pool:     words.NewPool(),
		scores:   make(map[string]int),
		guessed:  make(map[string]struct{}),
		phase:    PhaseIdle,
	}
}

// -----------------------------------------------------------------------------
// Roster
// -----------------------------------------------------------------------------

// AddPlayer joins a player to the room. The first player to join
// becomes host. A join is accepted mid-game and appended to the end of
// the turn rotation.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= r.cfg.MaxPlayers {
		return ErrRoomFull
	}

	color, accessory := p.Avatar()
	r.broadcastLocked(protocol.PlayerJoined(p.Name(), p.ID, color, accessory))

	r.players = append(r.players, p)
	r.scores[p.ID] = 0
	if r.host == nil {
		r.host = p
	}

	// the newcomer gets the full roster and ledger, not the join event
	p.Send(r.playerListLocked())
	p.Send(r.scoresLocked())

	zap.S().Infof("[AddPlayer] room=%s player=%s (%s) joined, players=%d",
		r.Code, p.ID, p.Name(), len(r.players))
	return nil
}

// RemovePlayer takes a player out of the room: on explicit leave or on
// stream closure. Must be invoked at most once per player; the
// connection handler enforces that. An emptied room destroys itself.
func (r *Room) RemovePlayer(p *Player) {
	r.mu.Lock()

	idx := -1
	for i, q := range r.players {
		if q.ID == p.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return
	}

	wasDrawer := idx == r.turnIndex && (r.phase == PhaseWordChoice || r.phase == PhaseDrawing)

	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.scores, p.ID)
	delete(r.guessed, p.ID)

	// keep the rotation pointer on the same player where possible
	if idx < r.turnIndex {
		r.turnIndex--
	}
	if r.turnIndex >= len(r.players) {
		r.turnIndex = 0
	}

	r.broadcastLocked(protocol.PlayerLeft(p.ID))

	zap.S().Infof("[RemovePlayer] room=%s player=%s (%s) left, players=%d",
		r.Code, p.ID, p.Name(), len(r.players))

	if len(r.players) == 0 {
		r.advanceGenLocked()
		r.phase = PhaseIdle
		r.mu.Unlock()
		r.registry.remove(r.Code)
		return
	}

	if r.host != nil && r.host.ID == p.ID {
		r.host = r.players[0]
		r.broadcastLocked(protocol.NewHost(r.host.ID))
	}

	if wasDrawer {
		// the drawer vanished mid-turn: settle immediately, skipping
		// the drawer's score attribution
		r.endTurnLocked(true)
	}

	r.broadcastLocked(r.playerListLocked())
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Game flow
// -----------------------------------------------------------------------------

// Start begins a game. Host only, Idle only, two players minimum.
func (r *Room) Start(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host == nil || r.host.ID != p.ID {
		return ErrNotHost
	}
	if r.phase != PhaseIdle {
		return ErrGameInProgress
	}
	if len(r.players) < MinPlayersToStart {
		return ErrNotEnough
	}

	for id := range r.scores {
		r.scores[id] = 0
	}
	r.round = 0
	r.turnIndex = 0

	zap.S().Infof("[Start] room=%s starting game, rounds=%d players=%d",
		r.Code, r.cfg.Rounds, len(r.players))

	r.broadcastLocked(protocol.GameStart(r.cfg.Rounds))
	r.startTurnLocked()
	return nil
}

// startTurnLocked advances the round counter and, unless the game is
// over, runs the next turn's word offer.
func (r *Room) startTurnLocked() {
	r.advanceGenLocked()

	if len(r.players) == 0 {
		return
	}

	r.round++
	if r.round > r.cfg.Rounds {
		r.endGameLocked()
		return
	}

	r.word = ""
	r.elapsed = 0
	r.guessed = make(map[string]struct{})
	if r.turnIndex >= len(r.players) {
		r.turnIndex = 0
	}
	drawer := r.players[r.turnIndex]

	r.broadcastLocked(protocol.RoundStart(r.round, r.cfg.Rounds))
	r.broadcastLocked(protocol.Drawer(drawer.ID, drawer.Name()))

	r.wordChoices = r.pool.Choices()
	r.phase = PhaseWordChoice
	drawer.Send(protocol.ChooseWord(r.wordChoices))

	zap.S().Infof("[startTurn] room=%s round=%d/%d drawer=%s (%s)",
		r.Code, r.round, r.cfg.Rounds, drawer.ID, drawer.Name())

	g := r.gen
	r.choiceTimer = time.AfterFunc(r.timing.WordChoiceTimeout, func() {
		r.autoSelectWord(g)
	})
}

// SelectWord handles the drawer's explicit choice. Anyone else's
// attempt, an out-of-range index, or a late selection is a no-op.
func (r *Room) SelectWord(p *Player, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseWordChoice {
		return
	}
	if r.turnIndex >= len(r.players) || r.players[r.turnIndex].ID != p.ID {
		return
	}
	if index < 0 || index >= len(r.wordChoices) {
		return
	}

	if r.choiceTimer != nil {
		r.choiceTimer.Stop()
		r.choiceTimer = nil
	}
	r.word = r.wordChoices[index]
	r.enterDrawingLocked()
}

// autoSelectWord fires when the word-choice timeout expires with no
// selection from the drawer; candidate 0 wins.
func (r *Room) autoSelectWord(g uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != g || r.phase != PhaseWordChoice || len(r.wordChoices) == 0 {
		return
	}
	zap.S().Infof("[autoSelectWord] room=%s timeout, selecting %q", r.Code, r.wordChoices[0])
	r.word = r.wordChoices[0]
	r.enterDrawingLocked()
}

func (r *Room) enterDrawingLocked() {
	r.advanceGenLocked()
	r.phase = PhaseDrawing
	r.elapsed = 0
	r.guessed = make(map[string]struct{})

	r.broadcastLocked(protocol.WordSelected(r.maskedLocked(), len(r.word)))

	ctx, cancel := context.WithCancel(context.Background())
	r.cancelTick = cancel
	g := r.gen

	zap.S().Infof("[enterDrawing] room=%s word length=%d drawTime=%ds",
		r.Code, len(r.word), r.cfg.DrawTime)

	go func() {
		ticker := time.NewTicker(r.timing.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !r.tick(g) {
					return
				}
			}
		}
	}()
}

// tick runs one second of the drawing countdown. Returns false once
// this turn's ticker should stop.
func (r *Room) tick(g uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != g || r.phase != PhaseDrawing {
		return false
	}

	r.elapsed++
	r.broadcastLocked(protocol.Timer(r.cfg.DrawTime - r.elapsed))

	allGuessed := len(r.guessed) >= len(r.players)-1
	if r.timing.HintEveryTicks > 0 && r.elapsed%r.timing.HintEveryTicks == 0 && !allGuessed {
		r.broadcastLocked(protocol.Hint(r.maskedLocked()))
	}

	if r.elapsed >= r.cfg.DrawTime || allGuessed {
		r.endTurnLocked(false)
		return false
	}
	return true
}

// endTurnLocked settles the current turn and schedules the next one.
// drawerGone marks that the drawer has already left the roster: no
// drawer award, and the rotation pointer is already on the next player.
func (r *Room) endTurnLocked(drawerGone bool) {
	if r.phase != PhaseDrawing && r.phase != PhaseWordChoice {
		return
	}
	r.advanceGenLocked()
	r.phase = PhaseRoundEnd

	r.broadcastLocked(protocol.RoundEnd(r.word))

	if !drawerGone && r.turnIndex < len(r.players) {
		drawer := r.players[r.turnIndex]
		r.scores[drawer.ID] += 20 * len(r.guessed)
		r.turnIndex = (r.turnIndex + 1) % len(r.players)
	}
	r.broadcastLocked(r.scoresLocked())

	zap.S().Infof("[endTurn] room=%s round=%d word=%q correct=%d",
		r.Code, r.round, r.word, len(r.guessed))

	g := r.gen
	time.AfterFunc(r.timing.SettlementDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen != g || r.phase != PhaseRoundEnd {
			return
		}
		r.startTurnLocked()
	})
}

// endGameLocked names the winner and returns the room to Idle. Ties
// on the top score go to the smallest player id.
func (r *Room) endGameLocked() {
	winnerName := ""
	winnerScore := 0
	winnerID := ""
	for _, p := range r.players {
		score := r.scores[p.ID]
		if winnerID == "" || score > winnerScore ||
			(score == winnerScore && p.ID < winnerID) {
			winnerID = p.ID
			winnerScore = score
			winnerName = p.Name()
		}
	}

	r.broadcastLocked(protocol.GameEnd(winnerName, winnerScore))
	r.broadcastLocked(r.scoresLocked())
	r.phase = PhaseIdle
	r.round = 0
	r.word = ""

	zap.S().Infof("[endGame] room=%s winner=%s score=%d", r.Code, winnerName, winnerScore)
}

// -----------------------------------------------------------------------------
// Guessing and chat
// -----------------------------------------------------------------------------

// Guess evaluates one guess. The comparison is case-insensitive and
// trimmed. The drawer's guesses are always ignored, and a player who
// has already guessed correctly is ignored on repeats. Outside the
// drawing phase a guess is rebroadcast as ordinary chat.
func (r *Room) Guess(p *Player, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseDrawing {
		r.broadcastLocked(protocol.Chat(p.Name(), text))
		return
	}
	if r.turnIndex < len(r.players) && r.players[r.turnIndex].ID == p.ID {
		return
	}
	if _, done := r.guessed[p.ID]; done {
		return
	}

	if !strings.EqualFold(strings.TrimSpace(text), r.word) {
		r.broadcastLocked(protocol.Chat(p.Name(), text))
		return
	}

	r.guessed[p.ID] = struct{}{}
	// rank counts the guesser itself: the first correct guess is worth 90
	points := 100 - 10*len(r.guessed)
	if points < 50 {
		points = 50
	}
	r.scores[p.ID] += points

	r.broadcastLocked(protocol.CorrectGuess(p.ID, p.Name(), points))
	r.broadcastLocked(r.scoresLocked())

	zap.S().Infof("[Guess] room=%s player=%s correct, points=%d guessed=%d/%d",
		r.Code, p.ID, points, len(r.guessed), len(r.players)-1)

	if len(r.guessed) >= len(r.players)-1 {
		r.endTurnLocked(false)
	}
}

// Chat broadcasts a chat line to the whole room. Profanity screening
// happens upstream in the connection handler.
func (r *Room) Chat(p *Player, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(protocol.Chat(p.Name(), text))
}

// ForwardDraw relays an opaque stroke payload to every member.
func (r *Room) ForwardDraw(payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(protocol.Draw(payload))
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Configure applies a "rounds,drawTime,maxPlayers,word;word;..."
// payload. Host only, and only between games.
func (r *Room) Configure(p *Player, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host == nil || r.host.ID != p.ID {
		return ErrNotHost
	}
	if r.phase != PhaseIdle {
		return ErrConfigMidGame
	}

	parts := strings.Split(raw, ",")
	if len(parts) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil && n > 0 {
			r.cfg.Rounds = n
		}
	}
	if len(parts) > 1 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n > 0 {
			r.cfg.DrawTime = n
		}
	}
	if len(parts) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && n > 0 {
			r.cfg.MaxPlayers = n
		}
	}
	if len(parts) > 3 && parts[3] != "" {
		r.pool.AddCustom(strings.Split(parts[3], ";"))
	}

	r.broadcastLocked(protocol.ConfigUpdated(raw))
	zap.S().Infof("[Configure] room=%s rounds=%d drawTime=%d maxPlayers=%d",
		r.Code, r.cfg.Rounds, r.cfg.DrawTime, r.cfg.MaxPlayers)
	return nil
}

// -----------------------------------------------------------------------------
// Snapshots and helpers
// -----------------------------------------------------------------------------

// Info reports the room's listing entry and visibility.
func (r *Room) Info() (info protocol.RoomInfo, private bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return protocol.RoomInfo{
		Code:       r.Code,
		Occupancy:  len(r.players),
		MaxPlayers: r.cfg.MaxPlayers,
	}, r.cfg.Private
}

// CurrentPhase reports the room's phase.
func (r *Room) CurrentPhase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// Scores returns a copy of the score ledger.
func (r *Room) Scores() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		out[id] = s
	}
	return out
}

// advanceGenLocked moves the room to a new generation, cancelling
// every outstanding timer armed for the old one.
func (r *Room) advanceGenLocked() {
	r.gen++
	if r.choiceTimer != nil {
		r.choiceTimer.Stop()
		r.choiceTimer = nil
	}
	if r.cancelTick != nil {
		r.cancelTick()
		r.cancelTick = nil
	}
}

// maskedLocked renders the secret word with the currently earned
// number of letters revealed, positions re-randomized per call.
func (r *Room) maskedLocked() string {
	reveal := len(r.word) / 3
	if byGuess := len(r.guessed) / 2; byGuess < reveal {
		reveal = byGuess
	}
	return words.Mask(r.word, reveal)
}

func (r *Room) playerListLocked() string {
	entries := make([]protocol.PlayerListEntry, 0, len(r.players))
	for _, p := range r.players {
		color, accessory := p.Avatar()
		entries = append(entries, protocol.PlayerListEntry{
			ID:        p.ID,
			Name:      p.Name(),
			Color:     color,
			Accessory: accessory,
		})
	}
	return protocol.PlayerList(entries)
}

func (r *Room) scoresLocked() string {
	entries := make([]protocol.ScoreEntry, 0, len(r.players))
	for _, p := range r.players {
		entries = append(entries, protocol.ScoreEntry{PlayerID: p.ID, Score: r.scores[p.ID]})
	}
	return protocol.Scores(entries)
}

func (r *Room) broadcastLocked(line string) {
	for _, p := range r.players {
		p.Send(line)
	}
}

package protocol

import (
	"strconv"
	"strings"
)

// =============================================================================
// WIRE PROTOCOL
// =============================================================================
//
// Every record on the wire is one newline-delimited line of the form
//
//	COMMAND|arg1|arg2|...
//
// The final argument of a command may itself contain '|' (free-text
// fields such as chat), so inbound splitting is always bounded.

// Client -> server commands.
const (
	CmdSetName    = "SET_NAME"
	CmdSetAvatar  = "SET_AVATAR"
	CmdCreateRoom = "CREATE_ROOM"
	CmdJoinRoom   = "JOIN_ROOM"
	CmdListRooms  = "LIST_ROOMS"
	CmdStartGame  = "START_GAME"
	CmdDraw       = "DRAW"
	CmdGuess      = "GUESS"
	CmdChat       = "CHAT"
	CmdSelectWord = "SELECT_WORD"
	CmdConfigure  = "CONFIGURE"
)

// Parse splits an inbound line into its command and the remainder
// after the first '|'. ok is false when the line has no arguments.
func Parse(line string) (cmd, rest string, ok bool) {
	cmd, rest, ok = strings.Cut(line, "|")
	return cmd, rest, ok
}

// Fields splits rest into at most n fields. The last field keeps any
// embedded '|' verbatim.
func Fields(rest string, n int) []string {
	return strings.SplitN(rest, "|", n)
}

// RoomInfo is one entry of a ROOM_LIST message.
type RoomInfo struct {
	Code       string
	Occupancy  int
	MaxPlayers int
}

// ScoreEntry is one entry of a SCORES message.
type ScoreEntry struct {
	PlayerID string
	Score    int
}

// -----------------------------------------------------------------------------
// Server -> client message constructors
// -----------------------------------------------------------------------------

func NameSet(playerID string) string {
	return "NAME_SET|" + playerID
}

func RoomCreated(code string) string {
	return "ROOM_CREATED|" + code
}

func RoomJoined(code string) string {
	return "ROOM_JOINED|" + code
}

func RoomList(rooms []RoomInfo) string {
	var b strings.Builder
	b.WriteString("ROOM_LIST")
	for _, r := range rooms {
		b.WriteString("|")
		b.WriteString(r.Code)
		b.WriteString(",")
		b.WriteString(strconv.Itoa(r.Occupancy))
		b.WriteString("/")
		b.WriteString(strconv.Itoa(r.MaxPlayers))
	}
	return b.String()
}

func PlayerJoined(name, id, color, accessory string) string {
	return "PLAYER_JOINED|" + name + "|" + id + "|" + color + "|" + accessory
}

func PlayerLeft(id string) string {
	return "PLAYER_LEFT|" + id
}

// PlayerListEntry is one roster entry of a PLAYER_LIST message.
type PlayerListEntry struct {
	ID        string
	Name      string
	Color     string
	Accessory string
}

func PlayerList(players []PlayerListEntry) string {
	var b strings.Builder
	b.WriteString("PLAYER_LIST")
	for _, p := range players {
		b.WriteString("|")
		b.WriteString(p.ID)
		b.WriteString(",")
		b.WriteString(p.Name)
		b.WriteString(",")
		b.WriteString(p.Color)
		b.WriteString(",")
		b.WriteString(p.Accessory)
	}
	return b.String()
}

func NewHost(id string) string {
	return "NEW_HOST|" + id
}

func GameStart(rounds int) string {
	return "GAME_START|" + strconv.Itoa(rounds)
}

func RoundStart(round, total int) string {
	return "ROUND_START|" + strconv.Itoa(round) + "," + strconv.Itoa(total)
}

func Drawer(id, name string) string {
	return "DRAWER|" + id + "|" + name
}

func ChooseWord(choices []string) string {
	return "CHOOSE_WORD|" + strings.Join(choices, "|")
}

func WordSelected(masked string, length int) string {
	return "WORD_SELECTED|" + masked + "|" + strconv.Itoa(length)
}

func Timer(secondsRemaining int) string {
	return "TIMER|" + strconv.Itoa(secondsRemaining)
}

func Hint(masked string) string {
	return "HINT|" + masked
}

// Draw forwards a stroke payload verbatim; the server never inspects it.
func Draw(payload string) string {
	return "DRAW|" + payload
}

func Chat(name, text string) string {
	return "CHAT|" + name + "|" + text
}

func CorrectGuess(id, name string, points int) string {
	return "CORRECT_GUESS|" + id + "|" + name + "|" + strconv.Itoa(points)
}

func RoundEnd(revealedWord string) string {
	return "ROUND_END|" + revealedWord
}

func Scores(entries []ScoreEntry) string {
	var b strings.Builder
	b.WriteString("SCORES")
	for _, e := range entries {
		b.WriteString("|")
		b.WriteString(e.PlayerID)
		b.WriteString(",")
		b.WriteString(strconv.Itoa(e.Score))
	}
	return b.String()
}

func GameEnd(winnerName string, winnerScore int) string {
	return "GAME_END|" + winnerName + "|" + strconv.Itoa(winnerScore)
}

func Error(message string) string {
	return "ERROR|" + message
}

// ConfigUpdated echoes the raw configure payload back to the room.
func ConfigUpdated(raw string) string {
	return "CONFIG_UPDATED|" + raw
}

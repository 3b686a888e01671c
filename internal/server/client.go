package server

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inkwell-games/scribble-server/internal/game"
	"github.com/inkwell-games/scribble-server/internal/protocol"
)

// =============================================================================
// CONNECTION HANDLER
// =============================================================================

// client owns exactly one connected stream: it reads protocol lines
// until the stream dies, dispatches them against the player's current
// room, and funnels all outbound traffic through a bounded queue so a
// stalled peer can never hold up a room broadcast.
type client struct {
	srv    *Server
	conn   lineConn
	player *game.Player

	// room is owned by the reader goroutine; broadcasts reach this
	// client only through the outbound queue.
	room *game.Room

	out       chan string
	done      chan struct{}
	closeOnce sync.Once

	// flood guard on intent-bearing traffic (chat, guesses); stroke
	// payloads are exempt since drawing is legitimately high-rate
	limiter *rate.Limiter
}

func newClient(srv *Server, conn lineConn) *client {
	c := &client{
		srv:     srv,
		conn:    conn,
		out:     make(chan string, srv.outboundSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	c.player = game.NewPlayer(c)
	return c
}

// Send implements game.Sender. It never blocks: a full queue means the
// peer is not draining, and the connection is closed rather than
// letting one slow client stall the room.
func (c *client) Send(line string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- line:
		return true
	default:
		zap.S().Warnf("[Send] player=%s addr=%s outbound queue overflow, disconnecting",
			c.player.ID, c.conn.RemoteAddr())
		c.close()
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case line := <-c.out:
			if err := c.conn.WriteLine(line); err != nil {
				c.close()
				return
			}
		}
	}
}

// run is the reader loop. It returns when the stream closes or errors,
// and cleanup happens exactly once on the way out.
func (c *client) run() {
	c.srv.addClient(c)
	go c.writeLoop()

	defer func() {
		c.close()
		c.srv.removeClient(c)
		if c.room != nil {
			c.room.RemovePlayer(c.player)
			c.room = nil
		}
		zap.S().Infof("[run] player=%s addr=%s disconnected", c.player.ID, c.conn.RemoteAddr())
	}()

	zap.S().Infof("[run] player=%s addr=%s connected", c.player.ID, c.conn.RemoteAddr())

	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		c.handleLine(line)
	}
}

func (c *client) handleLine(line string) {
	cmd, rest, _ := protocol.Parse(line)

	switch cmd {
	case protocol.CmdSetName:
		c.player.SetName(rest)
		c.Send(protocol.NameSet(c.player.ID))

	case protocol.CmdSetAvatar:
		fields := protocol.Fields(rest, 2)
		accessory := ""
		if len(fields) > 1 {
			accessory = fields[1]
		}
		c.player.SetAvatar(fields[0], accessory)

	case protocol.CmdCreateRoom:
		c.createRoom(rest)

	case protocol.CmdJoinRoom:
		c.joinRoom(rest)

	case protocol.CmdListRooms:
		c.Send(protocol.RoomList(c.srv.registry.ListPublic()))

	case protocol.CmdStartGame:
		if c.room == nil {
			return
		}
		if err := c.room.Start(c.player); err != nil {
			c.Send(protocol.Error(err.Error()))
		}

	case protocol.CmdDraw:
		if c.room == nil {
			return
		}
		c.room.ForwardDraw(rest)

	case protocol.CmdGuess:
		if c.room == nil {
			return
		}
		if !c.limiter.Allow() {
			c.Send(protocol.Error("Too many messages"))
			return
		}
		c.room.Guess(c.player, rest)

	case protocol.CmdChat:
		if !c.limiter.Allow() {
			c.Send(protocol.Error("Too many messages"))
			return
		}
		if c.srv.filter.Blocked(rest) {
			c.Send(protocol.Error("Message blocked"))
			return
		}
		if c.room == nil {
			return
		}
		c.room.Chat(c.player, rest)

	case protocol.CmdSelectWord:
		if c.room == nil {
			return
		}
		index, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return
		}
		c.room.SelectWord(c.player, index)

	case protocol.CmdConfigure:
		if c.room == nil {
			return
		}
		if err := c.room.Configure(c.player, rest); err != nil {
			c.Send(protocol.Error(err.Error()))
		}

	default:
		// unknown commands are ignored for forward compatibility
	}
}

// createRoom parses "isPrivate,maxPlayers,rounds,drawTime"; absent or
// malformed settings keep their defaults.
func (c *client) createRoom(rawSettings string) {
	if c.room != nil {
		c.Send(protocol.Error("Already in a room"))
		return
	}

	cfg := game.DefaultConfig()
	settings := strings.Split(rawSettings, ",")
	if len(settings) > 0 {
		cfg.Private = settings[0] == "true"
	}
	if len(settings) > 1 {
		if n, err := strconv.Atoi(settings[1]); err == nil && n > 0 {
			cfg.MaxPlayers = n
		}
	}
	if len(settings) > 2 {
		if n, err := strconv.Atoi(settings[2]); err == nil && n > 0 {
			cfg.Rounds = n
		}
	}
	if len(settings) > 3 {
		if n, err := strconv.Atoi(settings[3]); err == nil && n > 0 {
			cfg.DrawTime = n
		}
	}

	room := c.srv.registry.Create(cfg)
	c.Send(protocol.RoomCreated(room.Code))
	if err := room.AddPlayer(c.player); err != nil {
		c.Send(protocol.Error(err.Error()))
		return
	}
	c.room = room
}

func (c *client) joinRoom(code string) {
	if c.room != nil {
		c.Send(protocol.Error("Already in a room"))
		return
	}

	room, ok := c.srv.registry.Get(strings.TrimSpace(code))
	if !ok {
		c.Send(protocol.Error("Room not found or full"))
		return
	}
	if err := room.AddPlayer(c.player); err != nil {
		c.Send(protocol.Error(err.Error()))
		return
	}
	c.room = room
	c.Send(protocol.RoomJoined(room.Code))
}

package server

import (
	"bufio"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// lineConn is one bidirectional text-line stream. Both transports
// carry identical protocol records: raw TCP delimits lines with '\n',
// WebSocket carries one line per text message.
type lineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// -----------------------------------------------------------------------------
// TCP
// -----------------------------------------------------------------------------

type tcpLineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// maxLineBytes bounds a single inbound record; stroke payloads are the
// largest lines a client legitimately sends.
const maxLineBytes = 64 * 1024

func newTCPLineConn(conn net.Conn) *tcpLineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineBytes)
	return &tcpLineConn{conn: conn, scanner: scanner}
}

func (c *tcpLineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", net.ErrClosed
	}
	return strings.TrimRight(c.scanner.Text(), "\r"), nil
}

func (c *tcpLineConn) WriteLine(line string) error {
	_, err := c.conn.Write(append([]byte(line), '\n'))
	return err
}

func (c *tcpLineConn) Close() error {
	return c.conn.Close()
}

func (c *tcpLineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

type wsLineConn struct {
	conn *websocket.Conn
}

func newWSLineConn(conn *websocket.Conn) *wsLineConn {
	return &wsLineConn{conn: conn}
}

func (c *wsLineConn) ReadLine() (string, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsLineConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsLineConn) Close() error {
	return c.conn.Close()
}

func (c *wsLineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

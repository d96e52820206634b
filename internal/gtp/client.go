package gtp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultIOTimeout   = 10 * time.Second

	// successPrefix marks a successful GTP reply; anything else is a
	// protocol-level rejection.
	successPrefix = "="
)

// Client is a single line-oriented connection to the rules engine. Each
// command is one newline-terminated line; the reply runs until a blank line
// following at least one non-empty line. The engine keeps no state that we
// rely on between connections, so any client can serve any session.
type Client struct {
	conn      net.Conn
	reader    *bufio.Reader
	ioTimeout time.Duration
}

// Dial opens a fresh connection to the engine at addr.
func Dial(ctx context.Context, addr string, dialTimeout, ioTimeout time.Duration) (*Client, error) {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	if ioTimeout <= 0 {
		ioTimeout = defaultIOTimeout
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial engine %s: %w", addr, err)
	}
	return &Client{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		ioTimeout: ioTimeout,
	}, nil
}

// Exec sends one command and returns the trimmed reply text, including the
// status prefix. Transport failures are returned as errors; rejection replies
// are returned as text for the caller to interpret.
func (c *Client) Exec(ctx context.Context, command string) (string, error) {
	deadline := time.Now().Add(c.ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("write %q: %w", command, err)
	}

	var sb strings.Builder
	wrote := false
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read reply to %q: %w", command, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if wrote {
				break
			}
			continue
		}
		if wrote {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		wrote = true
	}
	return strings.TrimSpace(sb.String()), nil
}

// Ready checks that the connection still has a live engine on the other end.
// protocol_version is the cheapest command every GTP engine answers.
func (c *Client) Ready(ctx context.Context) error {
	reply, err := c.Exec(ctx, "protocol_version")
	if err != nil {
		return err
	}
	if !IsSuccess(reply) {
		return fmt.Errorf("engine not ready: %q", reply)
	}
	return nil
}

// IsSuccess reports whether a reply indicates the command was accepted.
func IsSuccess(reply string) bool {
	return strings.HasPrefix(reply, successPrefix)
}

// Payload strips the status prefix from a reply and trims the result.
func Payload(reply string) string {
	return strings.TrimSpace(strings.TrimPrefix(reply, successPrefix))
}

func (c *Client) Close() error {
	return c.conn.Close()
}

package gtp

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// fakeEngine accepts connections and answers each command line through fn.
// The returned string is written verbatim followed by the blank terminator.
func fakeEngine(t *testing.T, fn func(command string) string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					reply := fn(strings.TrimSpace(line))
					if _, err := conn.Write([]byte(reply + "\n\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Dial(ctx, addr, time.Second, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_Exec(t *testing.T) {
	addr := fakeEngine(t, func(command string) string {
		switch command {
		case "komi 5.5":
			return "="
		case "list_stones black":
			return "= C7 D4"
		case "play white Z9":
			return "? illegal move"
		default:
			return "? unknown command"
		}
	})
	client := dialTest(t, addr)
	ctx := context.Background()

	reply, err := client.Exec(ctx, "komi 5.5")
	if err != nil {
		t.Fatalf("Exec komi: %v", err)
	}
	if !IsSuccess(reply) {
		t.Fatalf("expected success, got %q", reply)
	}
	if Payload(reply) != "" {
		t.Fatalf("expected empty payload, got %q", Payload(reply))
	}

	reply, err = client.Exec(ctx, "list_stones black")
	if err != nil {
		t.Fatalf("Exec list_stones: %v", err)
	}
	if Payload(reply) != "C7 D4" {
		t.Fatalf("payload = %q, want %q", Payload(reply), "C7 D4")
	}

	reply, err = client.Exec(ctx, "play white Z9")
	if err != nil {
		t.Fatalf("Exec rejected command returned transport error: %v", err)
	}
	if IsSuccess(reply) {
		t.Fatalf("expected rejection, got %q", reply)
	}
}

func TestClient_MultiLineReply(t *testing.T) {
	addr := fakeEngine(t, func(command string) string {
		return "= first\nsecond"
	})
	client := dialTest(t, addr)

	reply, err := client.Exec(context.Background(), "showboard")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if Payload(reply) != "first\nsecond" {
		t.Fatalf("payload = %q", Payload(reply))
	}
}

func TestClient_LeadingBlankLinesSkipped(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		_, _ = conn.Write([]byte("\n\n= ok\n\n"))
	}()

	client := dialTest(t, ln.Addr().String())
	reply, err := client.Exec(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if Payload(reply) != "ok" {
		t.Fatalf("payload = %q, want %q", Payload(reply), "ok")
	}
}

func TestClient_DeadlineFromContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		// Accept but never reply.
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	client := dialTest(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := client.Exec(ctx, "genmove black"); err == nil {
		t.Fatal("expected timeout error")
	}
}

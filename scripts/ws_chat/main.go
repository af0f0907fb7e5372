package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/pawsit-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "access token")
	refresh := flag.String("refresh", "", "refresh token, used when the access token has expired")
	to := flag.String("to", "", "default recipient user id")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	u, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	q := u.Query()
	q.Set("accessToken", *token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if *refresh != "" {
		header.Set("X-Refresh-Token", *refresh)
	}

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. Prefix with @<id> to pick a recipient. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *to)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				log.Printf("server refused the connection")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch env.Event {
		case proto.EventMessage:
			var evt proto.OutMessage
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.From, evt.Message)
		case proto.EventOnlineUsers:
			var users []string
			if err := json.Unmarshal(env.Data, &users); err != nil {
				log.Printf("unmarshal online-users: %v", err)
				continue
			}
			fmt.Printf("[online] %s\n", strings.Join(users, ", "))
		case proto.EventNewAccessToken:
			var token string
			if err := json.Unmarshal(env.Data, &token); err == nil {
				fmt.Printf("[token refreshed] %s\n", token)
			}
		default:
			var reason string
			if err := json.Unmarshal(env.Data, &reason); err == nil && reason != "" {
				fmt.Printf("[%s] %s\n", env.Event, reason)
				continue
			}
			fmt.Printf("event=%s data=%s\n", env.Event, string(env.Data))
		}
	}
}

// parseLine splits "@id text" into recipient and text, falling back to def.
func parseLine(line, def string) (string, string) {
	if strings.HasPrefix(line, "@") {
		to, text, _ := strings.Cut(line[1:], " ")
		return to, strings.TrimSpace(text)
	}
	return def, line
}

func writeLoop(ctx context.Context, conn *websocket.Conn, defaultTo string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			to, text := parseLine(strings.TrimSpace(line), defaultTo)
			if to == "" || text == "" {
				continue
			}

			payload, err := json.Marshal(proto.MessageData{To: proto.Ref(to), Message: text})
			if err != nil {
				log.Printf("marshal message: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Envelope{Event: proto.EventMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

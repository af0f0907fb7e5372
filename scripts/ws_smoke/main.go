package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/pawsit-server/internal/proto"
)

// ws_smoke connects two users and checks that a message from the second
// reaches the first.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	recipientToken := flag.String("token", "", "access token of the receiving user")
	recipientID := flag.String("id", "", "user id of the receiving user")
	senderToken := flag.String("sender-token", "", "access token of the sending user")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *recipientToken == "" || *senderToken == "" || *recipientID == "" {
		return fmt.Errorf("-token, -id and -sender-token are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	recipient, err := dial(ctx, *addr, *recipientToken)
	if err != nil {
		return fmt.Errorf("dial recipient: %w", err)
	}
	defer recipient.Close(websocket.StatusNormalClosure, "bye")
	if err := await(ctx, recipient, proto.EventOnlineUsers); err != nil {
		return err
	}

	sender, err := dial(ctx, *addr, *senderToken)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")
	if err := await(ctx, sender, proto.EventOnlineUsers); err != nil {
		return err
	}

	payload, err := json.Marshal(proto.MessageData{To: proto.Ref(*recipientID), Message: *text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := wsjson.Write(ctx, sender, proto.Envelope{Event: proto.EventMessage, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	return await(ctx, recipient, proto.EventMessage)
}

func dial(ctx context.Context, addr, token string) (*websocket.Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("accessToken", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	return conn, err
}

// await prints events until one named event arrives. Rejections end the run.
func await(ctx context.Context, conn *websocket.Conn, event string) error {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received event=%s data=%s\n", env.Event, string(env.Data))

		switch env.Event {
		case event:
			return nil
		case proto.EventInvalidToken, proto.EventInvalidUser, proto.EventAlreadyConnected, proto.EventServerError:
			return fmt.Errorf("connection rejected: %s", env.Event)
		}
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "relay base URL")
	user := flag.Int64("user", 1, "user id to register")
	game := flag.Int64("game", 1, "game id to register in")
	join := flag.Int64("join", -1, "game id to switch to after connecting (negative to skip)")
	fen := flag.String("fen", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "payload to broadcast")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var reg proto.RegisterResponse
	if err := postJSON(ctx, *base+"/register", proto.RegisterRequest{UserID: user, GameID: game}, &reg); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("Registered token=%s url=%s\n", reg.Token, reg.URL)

	wsURL := strings.Replace(*base, "http", "ws", 1) + reg.URL
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := conn.Write(ctx, websocket.MessageText, []byte(proto.Keepalive)); err != nil {
		return fmt.Errorf("send keepalive: %w", err)
	}

	target := *game
	if *join >= 0 {
		frame, err := json.Marshal(proto.JoinData{GameID: *join})
		if err != nil {
			return fmt.Errorf("marshal join: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return fmt.Errorf("send join: %w", err)
		}
		target = *join
		// joins are applied asynchronously
		time.Sleep(100 * time.Millisecond)
	}

	var out proto.BroadcastResponse
	if err := postJSON(ctx, *base+"/broadcast", proto.BroadcastRequest{GameID: &target, Message: fen}, &out); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	fmt.Printf("Broadcast game=%d matched=%d delivered=%d\n", target, out.Matched, out.Delivered)

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if typ != websocket.MessageText || string(data) != *fen {
		return fmt.Errorf("unexpected payload %q", data)
	}
	fmt.Printf("Received payload: %s\n", data)
	return nil
}

func postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp proto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("status %d: %s", resp.StatusCode, errResp.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"

	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_client: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "relay base URL")
	user := flag.Int64("user", 1, "user id")
	game := flag.Int64("game", 1, "game to start in")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	reg, err := register(ctx, *base, *user, *game)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, strings.Replace(*base, "http", "ws", 1)+reg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected as user %d in game %d (token %s)\n", *user, *game, reg.Token)
	fmt.Println("Commands: ping | join <game> | say <game> <text> | raw <frame>. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *base)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func register(ctx context.Context, base string, user, game int64) (proto.RegisterResponse, error) {
	var reg proto.RegisterResponse
	resp, err := post(ctx, base+"/register", proto.RegisterRequest{UserID: &user, GameID: &game})
	if err != nil {
		return reg, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return reg, fmt.Errorf("status %d", resp.StatusCode)
	}
	return reg, json.NewDecoder(resp.Body).Decode(&reg)
}

func post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		fmt.Printf("< %s\n", data)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, base string) {
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
			if err := handleLine(ctx, conn, base, strings.TrimSpace(line)); err != nil {
				log.Printf("%v", err)
			}
		}
	}
}

func handleLine(ctx context.Context, conn *websocket.Conn, base, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "":
		return nil
	case "ping":
		return conn.Write(ctx, websocket.MessageText, []byte(proto.Keepalive))
	case "join":
		game, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			return fmt.Errorf("join: %w", err)
		}
		frame, err := json.Marshal(proto.JoinData{GameID: game})
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, frame)
	case "say":
		gameStr, text, _ := strings.Cut(rest, " ")
		game, err := strconv.ParseInt(gameStr, 10, 64)
		if err != nil {
			return fmt.Errorf("say: %w", err)
		}
		resp, err := post(ctx, base+"/broadcast", proto.BroadcastRequest{GameID: &game, Message: &text})
		if err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
		resp.Body.Close()
		fmt.Printf("broadcast status %d\n", resp.StatusCode)
		return nil
	case "raw":
		return conn.Write(ctx, websocket.MessageText, []byte(rest))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

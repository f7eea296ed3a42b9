package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ZakFarmer/rooklift-ws-service/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_load: %v", err)
		os.Exit(1)
	}
}

type stats struct {
	connected  atomic.Int64
	received   atomic.Int64
	broadcasts atomic.Int64
	failures   atomic.Int64
}

func run() error {
	base := flag.String("base", envOr("WS_HTTP_HOST", "http://localhost:8080"), "relay base URL")
	clients := flag.Int("clients", 100, "number of websocket clients")
	games := flag.Int("games", 100, "ids are drawn from [0, games)")
	rate := flag.Duration("every", 50*time.Millisecond, "interval between broadcasts")
	duration := flag.Duration("duration", 10*time.Second, "how long to generate load")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var st stats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*clients + 1)

	for i := 0; i < *clients; i++ {
		g.Go(func() error {
			return client(gctx, *base, int64(rand.IntN(*games)), int64(rand.IntN(*games)), &st)
		})
	}
	g.Go(func() error {
		return broadcaster(gctx, *base, *games, *rate, &st)
	})

	err := g.Wait()
	fmt.Printf("connected=%d broadcasts=%d failed=%d received=%d\n",
		st.connected.Load(), st.broadcasts.Load(), st.failures.Load(), st.received.Load())
	return err
}

func client(ctx context.Context, base string, user, game int64, st *stats) error {
	var reg proto.RegisterResponse
	if err := postJSON(ctx, base+"/register", proto.RegisterRequest{UserID: &user, GameID: &game}, &reg); err != nil {
		return ignoreDone(ctx, fmt.Errorf("register: %w", err))
	}

	conn, _, err := websocket.Dial(ctx, strings.Replace(base, "http", "ws", 1)+reg.URL, nil)
	if err != nil {
		return ignoreDone(ctx, fmt.Errorf("dial: %w", err))
	}
	defer conn.CloseNow()
	st.connected.Add(1)

	keepalive := time.NewTicker(5 * time.Second)
	defer keepalive.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepalive.C:
				_ = conn.Write(ctx, websocket.MessageText, []byte(proto.Keepalive))
			}
		}
	}()

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			conn.Close(websocket.StatusNormalClosure, "done")
			return ignoreDone(ctx, err)
		}
		st.received.Add(1)
	}
}

func broadcaster(ctx context.Context, base string, games int, every time.Duration, st *stats) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			game := int64(rand.IntN(games))
			msg := fmt.Sprintf("load %d", time.Now().UnixNano())
			var out proto.BroadcastResponse
			if err := postJSON(ctx, base+"/broadcast", proto.BroadcastRequest{GameID: &game, Message: &msg}, &out); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				st.failures.Add(1)
				continue
			}
			st.broadcasts.Add(1)
		}
	}
}

func ignoreDone(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package mtrengine

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sudorandom/mtr-history/pkg/control"
)

// Listen connects to a control server and forwards its commands to out,
// reconnecting with exponential backoff until ctx is done. Commands that
// find out full are dropped.
func Listen(ctx context.Context, url string, out chan<- control.Command) {
	backoff := 1 * time.Second
	for ctx.Err() == nil {
		log.Printf("[REMOTE] Connecting to %s", url)
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Printf("[REMOTE] Dial error: %v. Retrying in %v...", err, backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
			continue
		}
		backoff = 1 * time.Second

		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-done:
			}
		}()
		readCommands(c, out)
		close(done)
		_ = c.Close()
		if !sleep(ctx, time.Second) {
			return
		}
	}
}

func readCommands(c *websocket.Conn, out chan<- control.Command) {
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("[REMOTE] Read error: %v. Reconnecting...", err)
			return
		}
		cmd, err := control.Decode(message)
		if err != nil {
			log.Printf("[REMOTE] %v", err)
			continue
		}
		select {
		case out <- cmd:
		default:
			log.Printf("[REMOTE] Command queue full, dropping %s", cmd.Type)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

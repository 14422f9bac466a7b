package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/sudorandom/mtr-history/pkg/config"
	"github.com/sudorandom/mtr-history/pkg/control"
)

type globals struct {
	Addr   string `help:"Listen address." default:":8765" env:"MTR_CONTROL_ADDR"`
	Config string `help:"Path to the YAML config file." default:"mtr-history.yaml" type:"path"`
}

// ServeCmd relays commands typed on stdin to every connected viewer.
type ServeCmd struct{}

func (c *ServeCmd) Run(ctx context.Context, g *globals) error {
	hub := control.NewHub()
	return serve(ctx, g.Addr, hub, func(ctx context.Context) error {
		log.Println("[CONTROL] Reading commands from stdin: toggle, zoom in|out, seek YYYY-MM-DD")
		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				log.Printf("[CONTROL] Error reading stdin: %v", err)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				cmd, err := control.ParseLine(line)
				if err != nil {
					log.Printf("[CONTROL] %v", err)
					continue
				}
				hub.Broadcast(cmd)
				log.Printf("[CONTROL] Sent %s to %d viewers", cmd.Type, hub.Clients())
			}
		}
	})
}

// SweepCmd walks every viewer through the timeline at a fixed pace.
type SweepCmd struct {
	From       string        `help:"First date, YYYY-MM-DD; defaults to the configured minimum."`
	To         string        `help:"Last date, YYYY-MM-DD; defaults to the configured maximum."`
	StepMonths int           `help:"Months per step." default:"1"`
	Rate       float64       `help:"Steps per second." default:"4"`
	Wait       time.Duration `help:"How long to wait for the first viewer." default:"30s"`
}

func (c *SweepCmd) Run(ctx context.Context, g *globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	bounds := cfg.Bounds()
	from, to := bounds.Min, bounds.Max
	if c.From != "" {
		if from, err = time.ParseInLocation(time.DateOnly, c.From, time.UTC); err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
	}
	if c.To != "" {
		if to, err = time.ParseInLocation(time.DateOnly, c.To, time.UTC); err != nil {
			return fmt.Errorf("parse --to: %w", err)
		}
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", c.Rate)
	}

	hub := control.NewHub()
	return serve(ctx, g.Addr, hub, func(ctx context.Context) error {
		if err := waitForViewer(ctx, hub, c.Wait); err != nil {
			return err
		}
		limiter := rate.NewLimiter(rate.Limit(c.Rate), 1)
		n, err := control.Sweep(ctx, hub, from, to, c.StepMonths, limiter)
		if errors.Is(err, context.Canceled) {
			log.Printf("[CONTROL] Sweep interrupted after %d seeks", n)
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("[CONTROL] Sweep finished after %d seeks", n)
		return nil
	})
}

func waitForViewer(ctx context.Context, hub *control.Hub, wait time.Duration) error {
	log.Printf("[CONTROL] Waiting up to %v for a viewer...", wait)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(wait)
	for hub.Clients() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("no viewer connected within %v", wait)
		case <-ticker.C:
		}
	}
	return nil
}

// serve runs the control server while fn runs and shuts it down afterwards.
func serve(ctx context.Context, addr string, hub *control.Hub, fn func(context.Context) error) error {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	r.Handle("/ws", hub)
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"viewers":   hub.Clients(),
			"timestamp": time.Now().UTC(),
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Printf("[CONTROL] Listening on %s (viewers connect to ws://%s/ws)", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	var runErr error
	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
	case runErr = <-done:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[CONTROL] Shutdown error: %v", err)
	}
	return runErr
}

var cli struct {
	globals

	Serve ServeCmd `cmd:"" default:"1" help:"Relay commands from stdin to connected viewers."`
	Sweep SweepCmd `cmd:"" help:"Seek connected viewers through the timeline at a fixed rate."`
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := kong.Parse(&cli,
		kong.Name("mtr-control"),
		kong.Description("Remote control server for MTR history viewers."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	k.FatalIfErrorf(k.Run(&cli.globals))
}

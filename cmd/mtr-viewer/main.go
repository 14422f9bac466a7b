package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/mtr-history/pkg/config"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/mtrengine"
	"github.com/sudorandom/mtr-history/pkg/sources"
	"github.com/sudorandom/mtr-history/pkg/utils"
)

var (
	configFlag   = flag.String("config", "mtr-history.yaml", "Path to the YAML config file (optional)")
	mapFlag      = flag.String("map", "", "Map asset path or URL (overrides config)")
	legendFlag   = flag.String("legend", "", "Legend feed path or URL (overrides config)")
	remoteFlag   = flag.String("remote", "", "Control server websocket URL to follow (overrides config)")
	captureDir   = flag.String("capture-dir", "captures", "Directory for F12 frame captures")
	noCacheFlag  = flag.Bool("no-cache", false, "Stream remote assets instead of caching them")
	playFlag     = flag.Bool("play", false, "Start playing immediately")
	windowWidth  = flag.Int("window-width", 1280, "Initial window width")
	windowHeight = flag.Int("window-height", 720, "Initial window height")
	tpsFlag      = flag.Int("tps", 60, "Ticks per second (engine updates)")
)

func main() {
	flag.Parse()
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *mapFlag != "" {
		cfg.Map.Asset = *mapFlag
	}
	if *legendFlag != "" {
		cfg.Legend.Source = *legendFlag
	}
	if *remoteFlag != "" {
		cfg.Remote.URL = *remoteFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cache *utils.AssetCache
	if !*noCacheFlag && cfg.Cache.Dir != "" {
		if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
			log.Fatalf("Failed to create cache directory: %v", err)
		}
		if cache, err = utils.OpenAssetCache(cfg.Cache.Dir); err != nil {
			log.Fatalf("Failed to open asset cache: %v", err)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				log.Printf("Error closing asset cache: %v", err)
			}
		}()
	}

	doc, err := loadMap(ctx, cfg, cache)
	if err != nil {
		log.Fatalf("Failed to load map: %v", err)
	}
	legendReader, err := sources.Open(ctx, cfg.Legend.Source, mtrengine.LinesJSON, cache, "[LEGEND]")
	if err != nil {
		log.Fatalf("Failed to open legend: %v", err)
	}
	legend, err := sources.LoadLegend(legendReader, cfg.Timeline.Max)
	_ = legendReader.Close()
	if err != nil {
		log.Fatalf("Failed to load legend: %v", err)
	}

	engine, err := mtrengine.NewEngine(*windowWidth, *windowHeight, cfg, doc, legend)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	engine.FrameCaptureDir = *captureDir

	if cfg.Remote.URL != "" {
		go engine.ListenToRemote(ctx, cfg.Remote.URL)
	}
	if *playFlag {
		engine.Player().Toggle()
	}

	ebiten.SetTPS(*tpsFlag)
	ebiten.SetWindowSize(*windowWidth, *windowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowTitle("MTR History")
	if err := ebiten.RunGame(engine); err != nil {
		log.Fatal(err)
	}
	engine.Player().Stop()
}

func loadMap(ctx context.Context, cfg config.Config, cache *utils.AssetCache) (*mapdoc.Document, error) {
	r, err := sources.Open(ctx, cfg.Map.Asset, mtrengine.MapSVG, cache, "[MAP]")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("Error closing map asset: %v", err)
		}
	}()
	return mapdoc.Read(r)
}

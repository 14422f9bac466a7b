package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sudorandom/mtr-history/pkg/config"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/mtrengine"
	"github.com/sudorandom/mtr-history/pkg/scene"
	"github.com/sudorandom/mtr-history/pkg/snapshot"
	"github.com/sudorandom/mtr-history/pkg/sources"
	"github.com/sudorandom/mtr-history/pkg/utils"
)

type globals struct {
	Config string `help:"Path to the YAML config file." default:"mtr-history.yaml" type:"path"`
}

type ExportCmd struct {
	At  string `arg:"" help:"Date to export, YYYY-MM-DD."`
	Map string `help:"Map asset path or URL; defaults to the configured or bundled map."`
	Out string `short:"o" help:"Write the GeoJSON here instead of stdout." type:"path"`
}

func (c *ExportCmd) Run(ctx context.Context, g *globals) error {
	at, err := time.ParseInLocation(time.DateOnly, c.At, time.UTC)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if c.Map != "" {
		cfg.Map.Asset = c.Map
	}

	r, err := sources.Open(ctx, cfg.Map.Asset, mtrengine.MapSVG, nil, "[MAP]")
	if err != nil {
		return err
	}
	doc, err := mapdoc.Read(r)
	_ = r.Close()
	if err != nil {
		return err
	}
	sc, err := scene.Build(doc, cfg.SceneOptions(), nil)
	if err != nil {
		return err
	}
	fc, err := snapshot.Export(sc, cfg.Bounds().Clamp(at))
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Printf("Error closing %s: %v", c.Out, err)
			}
		}()
		w = f
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	log.Printf("[SNAPSHOT] Exported %d features at %s", len(fc.Features), at.Format(time.DateOnly))
	return nil
}

type FetchCmd struct {
	URL string `arg:"" help:"Map asset or legend feed URL."`
	Out string `arg:"" help:"Destination path." type:"path"`
}

func (c *FetchCmd) Run(ctx context.Context) error {
	if err := utils.DownloadFile(ctx, c.URL, c.Out, os.Stderr); err != nil {
		return fmt.Errorf("fetch %s: %w", c.URL, err)
	}
	log.Printf("[SNAPSHOT] Saved %s", c.Out)
	return nil
}

var cli struct {
	globals

	Export ExportCmd `cmd:"" help:"Export the network at a date as a GeoJSON FeatureCollection."`
	Fetch  FetchCmd  `cmd:"" help:"Download an asset with a progress bar."`
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := kong.Parse(&cli,
		kong.Name("mtr-snapshot"),
		kong.Description("Export and fetch MTR history map data."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	k.FatalIfErrorf(k.Run(&cli.globals))
}

// Package mtrengine hosts the network map in an ebiten game loop. It renders
// the scene and the HUD, and feeds keyboard, pointer and remote input into the
// player and the viewport.
package mtrengine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/mtr-history/pkg/config"
	"github.com/sudorandom/mtr-history/pkg/control"
	"github.com/sudorandom/mtr-history/pkg/mapdoc"
	"github.com/sudorandom/mtr-history/pkg/scene"
	"github.com/sudorandom/mtr-history/pkg/timeline"
	"github.com/sudorandom/mtr-history/pkg/viewport"
)

// commandQueue is how many remote commands may wait for the next Update.
const commandQueue = 64

type dragMode int

const (
	dragNone dragMode = iota
	dragPan
	dragSlider
)

type Engine struct {
	Width, Height int
	// FrameCaptureDir receives F12 captures; empty disables them.
	FrameCaptureDir string

	cfg    config.Config
	scene  *scene.Scene
	anim   *scene.Animator
	player *timeline.Player
	view   *viewport.Controller
	legend []timeline.LegendEntry

	tooltip scene.TooltipTracker
	hovered *scene.StationRecord

	reconciled time.Time
	commands   chan control.Command
	clock      func() time.Time

	drag         dragMode
	lastX, lastY float64
	touchDrag    dragMode
	pinched      bool
	touchIDs     []ebiten.TouchID
	lastTouch    *viewport.Point

	fontSource  *text.GoTextFaceSource
	whiteImage  *ebiten.Image
	captureNext bool
}

// NewEngine builds the scene from doc and sizes the view to width x height.
func NewEngine(width, height int, cfg config.Config, doc *mapdoc.Document, legend []timeline.LegendEntry) (*Engine, error) {
	e := &Engine{
		Width:    width,
		Height:   height,
		cfg:      cfg,
		legend:   legend,
		commands: make(chan control.Command, commandQueue),
		clock:    time.Now,
	}
	e.anim = scene.NewAnimator(func() time.Time { return e.clock() })

	sc, err := scene.Build(doc, cfg.SceneOptions(), e.anim)
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}
	e.scene = sc
	e.player = timeline.NewPlayer(cfg.Bounds(), cfg.PlayerOptions())
	e.view = viewport.New(doc.ViewBox, float64(width), float64(height), cfg.ViewportOptions())

	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	e.fontSource = s

	log.Printf("[MAP] Loaded %d lines, %d stations and %d backdrop elements", len(sc.Lines), len(sc.Stations), len(sc.Backdrop))
	return e, nil
}

// Player exposes the playback clock, e.g. to start playing on launch.
func (e *Engine) Player() *timeline.Player { return e.player }

// Commands is the queue remote commands are delivered on.
func (e *Engine) Commands() chan<- control.Command { return e.commands }

// ListenToRemote follows the control server at url until ctx is done.
func (e *Engine) ListenToRemote(ctx context.Context, url string) {
	Listen(ctx, url, e.commands)
}

func (e *Engine) Update() error {
	now := e.clock()
	e.handleInput(now)
	e.step(now)
	return nil
}

// step applies queued commands, reconciles the scene when the clock moved and
// advances every running animation.
func (e *Engine) step(now time.Time) {
drain:
	for {
		select {
		case cmd := <-e.commands:
			e.applyCommand(cmd, now)
		default:
			break drain
		}
	}

	if t := e.player.Current(); !t.Equal(e.reconciled) {
		e.scene.Reconcile(t)
		e.reconciled = t
		if e.hovered != nil && !e.hovered.Hittable() {
			e.leaveHover()
		}
	}
	e.anim.Step(now)
	e.view.Step(now)
}

func (e *Engine) applyCommand(cmd control.Command, now time.Time) {
	if err := cmd.Validate(); err != nil {
		log.Printf("[REMOTE] Ignoring command: %v", err)
		return
	}
	switch cmd.Type {
	case control.CommandSeek:
		e.player.Seek(cmd.At())
	case control.CommandToggle:
		e.player.Toggle()
	case control.CommandZoom:
		if cmd.Direction == control.ZoomIn {
			e.view.ZoomIn(now)
		} else {
			e.view.ZoomOut(now)
		}
	}
}

func (e *Engine) enterHover(rec *scene.StationRecord, x, y float64) {
	if e.hovered == rec {
		e.tooltip.Move(x, y)
		return
	}
	e.leaveHover()
	e.hovered = rec
	rec.HoverEnter()
	e.tooltip.Enter(rec, x, y)
}

func (e *Engine) leaveHover() {
	if e.hovered == nil {
		return
	}
	e.hovered.HoverLeave()
	e.hovered = nil
	e.tooltip.Leave()
}

func (e *Engine) Layout(w, h int) (int, int) {
	if w != e.Width || h != e.Height {
		e.Width, e.Height = w, h
		e.view.Resize(float64(w), float64(h))
	}
	return e.Width, e.Height
}

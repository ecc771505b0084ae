// Package theme derives the page background effect from the theme section of
// the links document.
package theme

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alexraskin/linktree/internal/models"
)

const (
	DefaultOverlayOpacity = 0.2
	DefaultBlurPx         = 3.0

	BackgroundClass = "with-bg-image"
)

// Effect is the presentational state applied to the page once the
// background image has been preloaded. The zero value applies nothing.
type Effect struct {
	Applied        bool
	Image          string
	OverlayOpacity float64
	BlurPx         float64
}

func (e Effect) BodyClass() string {
	if !e.Applied {
		return ""
	}
	return BackgroundClass
}

// CSSVars renders the custom properties consumed by the stylesheet.
func (e Effect) CSSVars() template.CSS {
	if !e.Applied {
		return ""
	}
	return template.CSS(fmt.Sprintf("--bg-image: url(%s); --bg-image-opacity: %s; --bg-image-blur: %spx;",
		cssString(e.Image),
		strconv.FormatFloat(e.OverlayOpacity, 'f', -1, 64),
		strconv.FormatFloat(e.BlurPx, 'f', -1, 64),
	))
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", "", "\r", "", "<", `\3c `, ">", `\3e `)
	return `"` + r.Replace(s) + `"`
}

// EffectFor computes the effect a theme asks for, with defaults filled in.
func EffectFor(t *models.ThemeConfig) Effect {
	if !t.Enabled() {
		return Effect{}
	}
	e := Effect{
		Applied:        true,
		Image:          t.BackgroundImage,
		OverlayOpacity: DefaultOverlayOpacity,
		BlurPx:         DefaultBlurPx,
	}
	if t.BackgroundOverlayOpacity != nil {
		e.OverlayOpacity = min(max(*t.BackgroundOverlayOpacity, 0), 1)
	}
	if t.BackgroundBlur != nil {
		e.BlurPx = max(*t.BackgroundBlur, 0)
	}
	return e
}

// Controller applies background effects for successive theme configurations.
// Every Apply starts a new generation; a preload that completes for an older
// generation is discarded.
type Controller struct {
	preloader Preloader
	timeout   time.Duration

	mu      sync.Mutex
	gen     uint64
	want    Effect
	effect  Effect
	cancel  context.CancelFunc
	failed  bool
	closed  bool
	pending sync.WaitGroup

	onSettled func(gen uint64)
}

func NewController(preloader Preloader) *Controller {
	return &Controller{
		preloader: preloader,
		timeout:   30 * time.Second,
	}
}

// Apply hands the controller a theme configuration. The background marker is
// removed right away and only set again after the new image has loaded.
// Applying the configuration that is already active or still loading is a
// no-op; one whose preload failed is loaded again.
func (c *Controller) Apply(t *models.ThemeConfig) uint64 {
	want := EffectFor(t)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.gen
	}
	if want == c.want && c.gen > 0 && !c.failed {
		return c.gen
	}

	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.want = want
	c.effect = Effect{}
	c.failed = false

	if !want.Applied {
		return gen
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.pending.Add(1)
	go c.preload(ctx, cancel, gen, want)

	return gen
}

func (c *Controller) preload(ctx context.Context, cancel context.CancelFunc, gen uint64, want Effect) {
	defer c.pending.Done()
	defer cancel()

	err := c.preloader.Preload(ctx, want.Image)
	c.settle(gen, want, err)

	if c.onSettled != nil {
		c.onSettled(gen)
	}
}

func (c *Controller) settle(gen uint64, want Effect, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		slog.Debug("Discarding stale background preload", slog.String("image", want.Image), slog.Uint64("generation", gen))
		return
	}
	c.cancel = nil
	if err != nil {
		c.failed = true
		slog.Warn("Background image failed to load", slog.String("image", want.Image), "error", err)
		return
	}
	c.effect = want
	slog.Debug("Applied background image", slog.String("image", want.Image), slog.Uint64("generation", gen))
}

// Effect returns the currently applied effect.
func (c *Controller) Effect() Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effect
}

func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Wait blocks until every in-flight preload has finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// Close removes any applied effect and waits for in-flight preloads.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.want = Effect{}
	c.effect = Effect{}
	c.failed = false
	c.mu.Unlock()

	c.pending.Wait()
}

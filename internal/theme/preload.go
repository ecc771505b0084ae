package theme

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/alexraskin/linktree/internal/cache"
)

const maxImageSize = 20 << 20

var ErrNotImage = errors.New("not a decodable image")

// Preloader proves that a background image reference can be loaded.
type Preloader interface {
	Preload(ctx context.Context, ref string) error
}

// ImagePreloader loads absolute URLs over HTTP and site-relative references
// from the static asset filesystem. Successful loads are cached and
// concurrent loads of the same reference share one fetch.
type ImagePreloader struct {
	assets  fs.FS
	client  *http.Client
	cache   *cache.Cache
	timeout time.Duration
	group   singleflight.Group
}

func NewImagePreloader(assets fs.FS, client *http.Client, c *cache.Cache) *ImagePreloader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if c == nil {
		c = cache.NewCache(time.Hour)
	}
	return &ImagePreloader{
		assets:  assets,
		client:  client,
		cache:   c,
		timeout: 15 * time.Second,
	}
}

func (p *ImagePreloader) Preload(ctx context.Context, ref string) error {
	if _, ok := p.cache.GetImage(ref); ok {
		return nil
	}

	ch := p.group.DoChan(ref, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		img, err := p.load(loadCtx, ref)
		if err != nil {
			return nil, err
		}
		p.cache.SetImage(img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (p *ImagePreloader) load(ctx context.Context, ref string) (cache.Image, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err = p.fetch(ctx, ref)
	} else {
		data, err = p.open(ref)
	}
	if err != nil {
		return cache.Image{}, fmt.Errorf("preload %s: %w", ref, err)
	}

	img, err := decodeImage(ref, data)
	if err != nil {
		return cache.Image{}, fmt.Errorf("preload %s: %w", ref, err)
	}
	return img, nil
}

func (p *ImagePreloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
}

func (p *ImagePreloader) open(ref string) ([]byte, error) {
	if p.assets == nil {
		return nil, fs.ErrNotExist
	}
	name := path.Clean(strings.TrimPrefix(ref, "/"))
	if !fs.ValidPath(name) {
		return nil, fs.ErrInvalid
	}
	file, err := p.assets.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(io.LimitReader(file, maxImageSize))
}

func decodeImage(ref string, data []byte) (cache.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		return cache.Image{Ref: ref, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	// SVG has no decoder; accept it when the payload looks like markup.
	head := bytes.TrimSpace(data[:min(len(data), 512)])
	if bytes.Contains(head, []byte("<svg")) {
		return cache.Image{Ref: ref, Format: "svg"}, nil
	}
	return cache.Image{}, ErrNotImage
}

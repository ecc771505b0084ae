package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const maxDocumentSize = 1 << 20

// Source retrieves the raw bytes of the links document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{URL: location}
	}
	return FileSource(location)
}

type FileSource string

func (f FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(string(f))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return io.ReadAll(io.LimitReader(file, maxDocumentSize))
}

func (f FileSource) String() string {
	return string(f)
}

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/toml, text/plain;q=0.9, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, h.URL)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

func (h *HTTPSource) String() string {
	return h.URL
}

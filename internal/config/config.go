// Package config loads the links document that drives the page.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/alexraskin/linktree/internal/models"
)

var (
	ErrFetch   = errors.New("fetch links document")
	ErrParse   = errors.New("parse links document")
	ErrInvalid = errors.New("invalid links document")
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validateInst
}

// Parse decodes a TOML links document.
func Parse(data []byte) (models.Document, error) {
	var doc models.Document

	decoder := toml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return models.Document{}, fmt.Errorf("%w: line %d column %d: %s", ErrParse, row, col, derr.Error())
		}
		return models.Document{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if doc.Links == nil {
		doc.Links = []models.Link{}
	}
	return doc, nil
}

// Validate checks the shape of a decoded document.
func Validate(doc models.Document) error {
	err := validatorInstance().Struct(doc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Document.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when useBackgroundImage is true"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

type Loader struct {
	source Source
}

func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Check fetches, parses and validates the document, reporting the first failure.
func (l *Loader) Check(ctx context.Context) (models.Document, error) {
	doc, err := l.read(ctx)
	if err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// read returns the parsed document alongside any validation error.
func (l *Loader) read(ctx context.Context) (models.Document, error) {
	data, err := l.source.Fetch(ctx)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w from %s: %w", ErrFetch, l.source, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return models.Document{}, err
	}

	return doc, Validate(doc)
}

// Load never fails. A document that cannot be fetched or parsed, or that has
// no profile name, is replaced by the fallback document. Other validation
// problems are logged and the parsed document is served as is. A single
// attempt is made.
func (l *Loader) Load(ctx context.Context) models.Document {
	doc, err := l.read(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalid) && doc.Profile.Name != "":
		slog.Warn("Links document has problems, serving it anyway", "source", l.source.String(), "error", err)
	default:
		slog.Error("Failed to load link tree configuration", "source", l.source.String(), "error", err)
		return models.FallbackDocument()
	}

	slog.Info("Loaded link tree configuration",
		slog.String("source", l.source.String()),
		slog.Int("links", len(doc.Links)),
		slog.Bool("background", doc.Theme.Enabled()),
	)
	return doc
}

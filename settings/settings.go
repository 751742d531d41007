package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	keyColor = "hudColor"
	keySize  = "hudSize"
)

// Palette is the set of colours offered by the settings screen
var Palette = []string{
	"#06b6d4", // cyan
	"#22c55e", // green
	"#fafafa", // white
	"#eab308", // yellow
	"#f43f5e", // red
}

// Settings are the display preferences that survive restarts
type Settings struct {
	Color              string  `json:"color" validate:"required,hexcolor"`
	TextSizeMultiplier float64 `json:"textSizeMultiplier" validate:"gt=0,lte=3"`
}

// Defaults is used for anything missing from the store
var Defaults = Settings{Color: Palette[0], TextSizeMultiplier: 1}

// ErrInvalid is returned by Save for settings outside the allowed values
var ErrInvalid = errors.New("invalid settings")

// Store is a string key-value store. SetAll writes every value or none.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SetAll(ctx context.Context, values map[string]string) error
}

var validate = validator.New()

// Validate checks colour and size bounds
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// Load reads settings from store, falling back to Defaults per field when
// a value is missing or unusable.
func Load(ctx context.Context, store Store) (Settings, error) {
	s := Defaults

	color, ok, err := store.Get(ctx, keyColor)
	if err != nil {
		return Defaults, fmt.Errorf("error loading %s: %w", keyColor, err)
	}
	if ok && validate.Var(color, "hexcolor") == nil {
		s.Color = color
	} else if ok {
		log.Printf("Debug: Ignoring stored color %q", color)
	}

	size, ok, err := store.Get(ctx, keySize)
	if err != nil {
		return Defaults, fmt.Errorf("error loading %s: %w", keySize, err)
	}
	if ok {
		if v, err := strconv.ParseFloat(size, 64); err == nil && validate.Var(v, "gt=0,lte=3") == nil {
			s.TextSizeMultiplier = v
		} else {
			log.Printf("Debug: Ignoring stored size %q", size)
		}
	}

	return s, nil
}

// Save validates s and writes it to store
func Save(ctx context.Context, store Store, s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	err := store.SetAll(ctx, map[string]string{
		keyColor: s.Color,
		keySize:  strconv.FormatFloat(s.TextSizeMultiplier, 'f', -1, 64),
	})
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	return nil
}

package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Package storage remembers where created checkout orders live.

// ErrEmptyReference is returned for blank order references.
var ErrEmptyReference = errors.New("order reference is empty")

// Store maps merchant order references to checkout order locations.
type Store interface {
	Close() error
	SaveLocation(ref, location string) error
	Location(ref string) (string, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	OrderTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultOrderTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OrderTTL <= 0 {
		opts.OrderTTL = defaultOrderTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                          { return nil }
func (noopStore) SaveLocation(string, string) error     { return nil }
func (noopStore) Location(string) (string, bool, error) { return "", false, nil }

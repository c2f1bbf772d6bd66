// Package state saves and restores a running session: the ledger snapshot
// plus the histories the dashboard draws.
package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/levtrader/sim"
)

type ValuePoint struct {
	Time  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

type PricePoint struct {
	Time  time.Time `json:"timestamp"`
	Price float64   `json:"price"`
}

// Document is one saved session.
type Document struct {
	SavedAt      time.Time               `json:"timestamp"`
	Iteration    int                     `json:"iteration_count"`
	Invocations  int                     `json:"invocation_count,omitempty"`
	Ledger       sim.Snapshot            `json:"simulator"`
	ValueHistory []ValuePoint            `json:"value_history"`
	PriceHistory map[string][]PricePoint `json:"price_history"`
}

// Store persists Documents. Load reports found=false when nothing has been
// saved yet.
type Store interface {
	Save(ctx context.Context, doc Document) error
	Load(ctx context.Context) (doc Document, found bool, err error)
	Delete(ctx context.Context) error
	Close() error
}

const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeNone   = "none"
)

type Config struct {
	Type string
	Path string
	// Keep bounds how many checkpoints the sqlite store retains. Zero keeps all.
	Keep int
}

// Open returns the store named by cfg.Type.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeFile, "json", "":
		path := cfg.Path
		if path == "" {
			path = "trading_data.json"
		}
		return NewFileStore(path), nil
	case TypeSQLite:
		return NewGormStore(cfg.Path, cfg.Keep)
	case TypeNone:
		return Nop{}, nil
	}
	return nil, fmt.Errorf("state: unknown store type %q", cfg.Type)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Save(context.Context, Document) error { return nil }

func (Nop) Load(context.Context) (Document, bool, error) { return Document{}, false, nil }

func (Nop) Delete(context.Context) error { return nil }

func (Nop) Close() error { return nil }

// Package repository persists per-client named entries: the chat snapshot and the last viewed product.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
)

// EntryStore holds one JSON payload per (client, name).
type EntryStore interface {
	// Get returns domain.ErrEntryNotFound when nothing is stored.
	Get(ctx context.Context, clientID, name string) ([]byte, error)

	// Put replaces the whole entry.
	Put(ctx context.Context, clientID, name string, payload []byte) error

	Delete(ctx context.Context, clientID, name string) error

	// DeleteStale removes entries not written for longer than age.
	DeleteStale(ctx context.Context, age time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ClientStore maps domain values onto named entries.
type ClientStore struct {
	entries EntryStore
}

func NewClientStore(entries EntryStore) *ClientStore {
	return &ClientStore{entries: entries}
}

func (s *ClientStore) LoadSnapshot(ctx context.Context, clientID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := s.get(ctx, clientID, config.EntryChatState, &snap); err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return &snap, nil
}

func (s *ClientStore) SaveSnapshot(ctx context.Context, clientID string, snap *domain.Snapshot) error {
	return s.put(ctx, clientID, config.EntryChatState, snap)
}

func (s *ClientStore) DeleteSnapshot(ctx context.Context, clientID string) error {
	if err := s.entries.Delete(ctx, clientID, config.EntryChatState); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *ClientStore) LoadSelectedProduct(ctx context.Context, clientID string) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	if err := s.get(ctx, clientID, config.EntrySelectedProduct, &p); err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *ClientStore) SaveSelectedProduct(ctx context.Context, clientID string, p *domain.CatalogProduct) error {
	return s.put(ctx, clientID, config.EntrySelectedProduct, p)
}

func (s *ClientStore) DeleteStale(ctx context.Context, age time.Duration) (int64, error) {
	return s.entries.DeleteStale(ctx, age)
}

func (s *ClientStore) Ping(ctx context.Context) error {
	return s.entries.Ping(ctx)
}

func (s *ClientStore) Close() error {
	return s.entries.Close()
}

func (s *ClientStore) get(ctx context.Context, clientID, name string, out any) error {
	raw, err := s.entries.Get(ctx, clientID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// An unreadable entry is treated like a missing one.
		return domain.ErrEntryNotFound
	}
	return nil
}

func (s *ClientStore) put(ctx context.Context, clientID, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := s.entries.Put(ctx, clientID, name, raw); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

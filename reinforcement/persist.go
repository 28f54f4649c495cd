package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gamelearn/storage"
)

// SaveTable serializes @table and stores it under @key.
func SaveTable[S, A comparable](ctx context.Context, store storage.Store, key string, table *QTable[S, A]) error {
	data, err := table.GobEncode()
	if err != nil {
		return err
	}
	if err = store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadTable reads the table stored under @key. A missing key yields storage.ErrNotFound.
func LoadTable[S, A comparable](ctx context.Context, store storage.Store, key string) (*QTable[S, A], error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	table := NewQTable[S, A]()
	if err = table.GobDecode(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return table, nil
}

// LoadTableOrEmpty is LoadTable, except that a missing model starts an empty
// table. Malformed data is still an error.
func LoadTableOrEmpty[S, A comparable](ctx context.Context, store storage.Store, key string) (*QTable[S, A], error) {
	table, err := LoadTable[S, A](ctx, store, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("no model at %s, starting from an empty table", key)
		return NewQTable[S, A](), nil
	}
	return table, err
}

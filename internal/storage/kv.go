// Package storage persists the product catalog and feature data on the device.
package storage

import (
	"sync"

	"github.com/pkg/errors"
)

// Keys used on the device.
const (
	KeyAllProducts       = "allProducts"
	KeyAllProductsBackup = "allProducts_backup"
	KeyShoppingItems     = "shoppingItems"
	KeyStandardItems     = "standardItems"
	KeyCategories        = "categories"
	KeyRecipes           = "recipes"
	KeyMealPlans         = "mealPlans"
	KeyCustomSettings    = "customSettings"
	KeyShoppingBaseline  = "shoppingBaseline"
	KeyTripState         = "tripState"
)

// ErrNotFound is returned by KV.Get for absent keys.
var ErrNotFound = errors.New("key not found")

// KV is durable key-value storage holding JSON documents.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }

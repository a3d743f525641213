package storage

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Adapter writes the catalog through to a KV with a backup copy. Writes are
// best effort: failures are logged, never returned.
type Adapter struct {
	kv  KV
	log *zap.Logger

	store   *catalog.Store
	handler func(ids []string)
}

// NewAdapter wraps kv.
func NewAdapter(kv KV, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{kv: kv, log: logger.Named("storage")}
}

// Save writes the primary record and then the backup.
func (a *Adapter) Save(products []models.Product) {
	if products == nil {
		products = []models.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		a.log.Error("encode products", zap.Error(err))
		return
	}
	if err := a.kv.Put(KeyAllProducts, data); err != nil {
		a.log.Error("write products", zap.Error(err))
	}
	if err := a.kv.Put(KeyAllProductsBackup, data); err != nil {
		a.log.Error("write products backup", zap.Error(err))
	}
}

// Load reads the primary record, falling back to the backup and finally to
// the built-in sample set.
func (a *Adapter) Load() []models.Product {
	for _, key := range []string{KeyAllProducts, KeyAllProductsBackup} {
		var products []models.Product
		err := a.GetJSON(key, &products)
		if err == nil {
			if key == KeyAllProductsBackup {
				a.log.Warn("primary product record unusable, restored from backup", zap.Int("count", len(products)))
			}
			return products
		}
		if !errors.Is(err, ErrNotFound) {
			a.log.Warn("product record unreadable", zap.String("key", key), zap.Error(err))
		}
	}
	a.log.Info("no stored products, loading sample set")
	return SampleProducts()
}

// SaveCategories stores the category lookup.
func (a *Adapter) SaveCategories(categories []models.Category) {
	if err := a.PutJSON(KeyCategories, categories); err != nil {
		a.log.Error("write categories", zap.Error(err))
	}
}

// LoadCategories returns stored categories or the defaults.
func (a *Adapter) LoadCategories() []models.Category {
	var categories []models.Category
	if err := a.GetJSON(KeyCategories, &categories); err != nil || len(categories) == 0 {
		return models.DefaultCategories()
	}
	return categories
}

// PutJSON encodes v under key.
func (a *Adapter) PutJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(a.kv.Put(key, data), "write %s", key)
}

// GetJSON decodes the value under key into v. Absent keys yield ErrNotFound.
func (a *Adapter) GetJSON(key string, v interface{}) error {
	data, err := a.kv.Get(key)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNotFound
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decode %s", key)
}

// GetRaw returns the stored bytes under key, or nil when absent.
func (a *Adapter) GetRaw(key string) []byte {
	data, err := a.kv.Get(key)
	if err != nil {
		return nil
	}
	return data
}

// PutRaw stores already encoded JSON.
func (a *Adapter) PutRaw(key string, data []byte) {
	if err := a.kv.Put(key, data); err != nil {
		a.log.Error("write raw key", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key.
func (a *Adapter) Delete(key string) {
	if err := a.kv.Delete(key); err != nil {
		a.log.Error("delete key", zap.String("key", key), zap.Error(err))
	}
}

// Attach loads the stored catalog into store and writes it back once per
// mutation batch from then on.
func (a *Adapter) Attach(store *catalog.Store) error {
	store.Replace(a.Load())
	a.store = store
	a.handler = func(ids []string) {
		a.Save(store.All())
	}
	// Persist the initial load (sample set included) before listening.
	a.Save(store.All())
	return store.Subscribe(a.handler)
}

// Detach stops the write-through.
func (a *Adapter) Detach() {
	if a.store != nil && a.handler != nil {
		if err := a.store.Unsubscribe(a.handler); err != nil {
			a.log.Warn("unsubscribe", zap.Error(err))
		}
	}
	a.store, a.handler = nil, nil
}

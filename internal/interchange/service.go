package interchange

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/storage"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Warnings int `json:"warnings"`
}

// Service exports and imports the catalog of one device.
type Service struct {
	store   *catalog.Store
	adapter *storage.Adapter
	device  string
	version string
	log     *zap.Logger
}

// NewService creates a service. adapter may be nil, in which case only the
// product list travels through the file.
func NewService(store *catalog.Store, adapter *storage.Adapter, device, version string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = FormatVersion
	}
	return &Service{store: store, adapter: adapter, device: device, version: version, log: logger.Named("interchange")}
}

// Export builds the export file for the current catalog.
func (s *Service) Export() ([]byte, error) {
	products := s.store.All()
	categories := models.DefaultCategories()
	data := &Data{AllProducts: &products}

	if s.adapter != nil {
		if stored := s.adapter.LoadCategories(); len(stored) > 0 {
			categories = stored
		}
		data.StandardItems = s.adapter.GetRaw(storage.KeyStandardItems)
		data.Recipes = s.adapter.GetRaw(storage.KeyRecipes)
		data.MealPlan = s.adapter.GetRaw(storage.KeyMealPlans)
		data.CustomSettings = s.adapter.GetRaw(storage.KeyCustomSettings)
	}
	data.Categories = categories

	f := &File{
		Timestamp:  models.Now(),
		Device:     s.device,
		Version:    s.version,
		Data:       data,
		Statistics: StatisticsOf(products, len(categories)),
	}
	out, err := Encode(f)
	if err != nil {
		return nil, err
	}
	s.log.Info("📤 catalog exported", zap.Int("products", len(products)))
	return out, nil
}

// Import replaces the catalog with the file's product list. A file that
// fails validation leaves the store untouched.
func (s *Service) Import(raw []byte) (ImportResult, error) {
	f, err := Decode(raw)
	if err != nil {
		s.log.Warn("import rejected", zap.Error(err))
		return ImportResult{}, err
	}

	products := f.Products()
	s.store.Replace(products)

	res := ImportResult{Imported: s.store.Len()}
	res.Skipped = len(products) - res.Imported
	for _, err := range catalog.CheckInvariants(s.store.All()) {
		s.log.Warn("imported catalog inconsistency", zap.Error(err))
		res.Warnings++
	}

	if s.adapter != nil {
		s.passThrough(storage.KeyStandardItems, f.Data.StandardItems)
		s.passThrough(storage.KeyRecipes, f.Data.Recipes)
		s.passThrough(storage.KeyMealPlans, f.Data.MealPlan)
		s.passThrough(storage.KeyCustomSettings, f.Data.CustomSettings)
		if len(f.Data.Categories) > 0 {
			s.adapter.SaveCategories(f.Data.Categories)
		}
	}
	s.log.Info("📥 catalog imported",
		zap.String("device", f.Device),
		zap.String("version", f.Version),
		zap.Int("products", res.Imported),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Service) passThrough(key string, raw jsoniter.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	s.adapter.PutRaw(key, raw)
}

// ImportCSV merges CSV rows into the catalog. Rows naming an existing
// product update its category and flags; blank names are skipped.
func (s *Service) ImportCSV(r io.Reader) (ImportResult, error) {
	rows, err := ParseCSV(r)
	if err != nil {
		s.log.Warn("csv import rejected", zap.Error(err))
		return ImportResult{}, err
	}

	var res ImportResult
	s.store.Batch(func(tx *catalog.Tx) {
		for i, row := range rows {
			p, created := tx.Add(row.Name, row.Category)
			if p.ID == "" {
				s.log.Warn("skipping csv row without name", zap.Int("row", i+2))
				res.Skipped++
				continue
			}
			if created {
				res.Imported++
			} else {
				if row.Category != "" && row.Category != p.Category {
					tx.SetCategory(p.ID, row.Category)
				}
				res.Updated++
			}
			for flag, v := range row.Flags() {
				tx.SetFlag(p.ID, flag, v)
			}
		}
	})
	s.log.Info("📥 csv imported",
		zap.Int("imported", res.Imported),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ExportCSV renders the catalog as CSV.
func (s *Service) ExportCSV() ([]byte, error) {
	return EncodeCSV(s.store.All())
}

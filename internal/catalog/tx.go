package catalog

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/models"
)

// Tx is the mutation handle passed to Store.Batch.
type Tx struct {
	s       *Store
	touched map[string]struct{}
}

func (tx *Tx) touch(id string) {
	tx.touched[id] = struct{}{}
}

func (tx *Tx) touchedIDs() []string {
	if len(tx.touched) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tx.touched))
	for id := range tx.touched {
		ids = append(ids, id)
	}
	return ids
}

// Get returns a copy of one product.
func (tx *Tx) Get(id string) (models.Product, bool) {
	p, ok := tx.s.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return *p, true
}

// FindByNormalizedName looks a product up by its normalized name.
func (tx *Tx) FindByNormalizedName(name string) (models.Product, bool) {
	if p := tx.s.findByName(models.NormalizeName(name)); p != nil {
		return *p, true
	}
	return models.Product{}, false
}

// Add creates a product with default flags unless the name is taken.
func (tx *Tx) Add(name, category string) (models.Product, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		tx.s.log.Error("add: empty product name")
		return models.Product{}, false
	}
	if existing := tx.s.findByName(models.NormalizeName(name)); existing != nil {
		tx.s.log.Warn("add: duplicate name, returning existing product",
			zap.String("name", name), zap.String("id", existing.ID))
		return *existing, false
	}

	now := models.Now()
	p := &models.Product{
		ID:        newID(),
		Name:      name,
		Category:  categoryOrDefault(category),
		DateAdded: now,
		Timestamp: now,
	}
	tx.insert(p)
	return *p, true
}

// AddToShopping reuses or creates the product and puts it on the list.
func (tx *Tx) AddToShopping(name, category string) models.Product {
	p, ok := tx.FindByNormalizedName(name)
	if !ok {
		if p, ok = tx.Add(name, category); !ok {
			return models.Product{}
		}
	}
	tx.SetFlag(p.ID, models.FlagInShopping, true)
	out, _ := tx.Get(p.ID)
	return out
}

// SetFlag mutates one flag and keeps completed implying inShopping.
func (tx *Tx) SetFlag(id, flag string, value bool) bool {
	p, ok := tx.s.byID[id]
	if !ok {
		tx.s.log.Error("setFlag: product not found", zap.String("id", id), zap.String("flag", flag))
		return false
	}

	switch flag {
	case models.FlagInShopping:
		p.InShopping = value
		if !value {
			p.Completed = false
		}
	case models.FlagInPantry:
		p.InPantry = value
	case models.FlagInStock:
		p.InStock = value
	case models.FlagInSeason:
		p.InSeason = value
	case models.FlagCompleted:
		if value && !p.InShopping {
			tx.s.log.Error("setFlag: cannot complete an item that is not on the shopping list",
				zap.String("id", id), zap.String("name", p.Name))
			return false
		}
		p.Completed = value
	default:
		tx.s.log.Error("setFlag: unknown flag", zap.String("id", id), zap.String("flag", flag))
		return false
	}

	p.Timestamp = models.Now()
	tx.touch(id)
	return true
}

// SetCategory changes a product category.
func (tx *Tx) SetCategory(id, category string) bool {
	p, ok := tx.s.byID[id]
	if !ok {
		tx.s.log.Error("setCategory: product not found", zap.String("id", id))
		return false
	}
	p.Category = categoryOrDefault(category)
	p.Timestamp = models.Now()
	tx.touch(id)
	return true
}

// Rename changes a product name.
func (tx *Tx) Rename(id, name string) bool {
	p, ok := tx.s.byID[id]
	if !ok {
		tx.s.log.Error("rename: product not found", zap.String("id", id))
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		tx.s.log.Error("rename: empty product name", zap.String("id", id))
		return false
	}
	if other := tx.s.findByName(models.NormalizeName(name)); other != nil && other.ID != id {
		tx.s.log.Warn("rename: name already used", zap.String("name", name), zap.String("by", other.ID))
		return false
	}
	p.Name = name
	p.Timestamp = models.Now()
	tx.touch(id)
	return true
}

// Remove deletes a product.
func (tx *Tx) Remove(id string) bool {
	if _, ok := tx.s.byID[id]; !ok {
		tx.s.log.Error("remove: product not found", zap.String("id", id))
		return false
	}
	delete(tx.s.byID, id)
	for i, oid := range tx.s.order {
		if oid == id {
			tx.s.order = append(tx.s.order[:i], tx.s.order[i+1:]...)
			break
		}
	}
	tx.touch(id)
	return true
}

// Rekey moves a product to newID, keeping its position. It fails when oldID
// is unknown or newID is taken.
func (tx *Tx) Rekey(oldID, newID string) bool {
	p, ok := tx.s.byID[oldID]
	if !ok || newID == "" {
		tx.s.log.Error("rekey: product not found", zap.String("id", oldID))
		return false
	}
	if _, taken := tx.s.byID[newID]; taken {
		tx.s.log.Error("rekey: id already used", zap.String("id", newID))
		return false
	}
	delete(tx.s.byID, oldID)
	p.ID = newID
	tx.s.byID[newID] = p
	for i, id := range tx.s.order {
		if id == oldID {
			tx.s.order[i] = newID
			break
		}
	}
	tx.touch(oldID)
	tx.touch(newID)
	return true
}

// Upsert overwrites every field of an existing product or inserts p.
func (tx *Tx) Upsert(p models.Product) {
	if p.ID == "" {
		tx.s.log.Error("upsert: product without id", zap.String("name", p.Name))
		return
	}
	p = repair(p, tx.s.log)
	if existing, ok := tx.s.byID[p.ID]; ok {
		*existing = p
		tx.touch(p.ID)
		return
	}
	tx.insert(&p)
}

// ClearCompleted applies the bought-item policy and returns affected ids.
func (tx *Tx) ClearCompleted() []string {
	var ids []string
	now := models.Now()
	for _, id := range tx.s.order {
		p := tx.s.byID[id]
		if !p.Completed {
			continue
		}
		p.InShopping = false
		p.Completed = false
		p.InStock = true
		p.Timestamp = now
		tx.touch(id)
		ids = append(ids, id)
	}
	return ids
}

// Replace drops the current collection and loads products. Duplicate ids
// are skipped and broken completion flags repaired, both with a warning.
func (tx *Tx) Replace(products []models.Product) {
	for _, id := range tx.s.order {
		tx.touch(id)
	}
	tx.s.byID = make(map[string]*models.Product, len(products))
	tx.s.order = make([]string, 0, len(products))

	for _, p := range products {
		if p.ID == "" {
			tx.s.log.Warn("replace: skipping product without id", zap.String("name", p.Name))
			continue
		}
		if _, dup := tx.s.byID[p.ID]; dup {
			tx.s.log.Warn("replace: duplicate product id skipped", zap.String("id", p.ID))
			continue
		}
		p = repair(p, tx.s.log)
		tx.insert(&p)
	}
}

func (tx *Tx) insert(p *models.Product) {
	tx.s.byID[p.ID] = p
	tx.s.order = append(tx.s.order, p.ID)
	tx.touch(p.ID)
}

func repair(p models.Product, log *zap.Logger) models.Product {
	if p.Completed && !p.InShopping {
		log.Warn("completed item not on shopping list, clearing completed", zap.String("id", p.ID))
		p.Completed = false
	}
	p.Category = categoryOrDefault(p.Category)
	return p
}

func categoryOrDefault(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.DefaultCategory
	}
	return category
}

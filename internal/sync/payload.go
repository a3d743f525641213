package sync

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/remote"
)

// BuildPayload turns a product into a remote document. Every field is
// coerced to a defined primitive; this is the only place a write payload
// is built.
func BuildPayload(p models.Product) (remote.Document, error) {
	id := strings.TrimSpace(cast.ToString(p.ID))
	if id == "" {
		return nil, errors.Wrapf(ErrInvalidPayload, "product %q has no id", p.Name)
	}
	name := strings.TrimSpace(cast.ToString(p.Name))
	if name == "" {
		return nil, errors.Wrapf(ErrInvalidPayload, "product %s has no name", id)
	}

	now := models.Now()
	doc := remote.Document{
		"id":          id,
		"name":        name,
		"category":    stringOr(p.Category, models.DefaultCategory),
		"inShopping":  cast.ToBool(p.InShopping),
		"inPantry":    cast.ToBool(p.InPantry),
		"inStock":     cast.ToBool(p.InStock),
		"inSeason":    cast.ToBool(p.InSeason),
		"completed":   cast.ToBool(p.Completed) && cast.ToBool(p.InShopping),
		"recipeCount": cast.ToInt(p.RecipeCount),
		"dateAdded":   stringOr(p.DateAdded, now),
		"timestamp":   stringOr(p.Timestamp, now),
	}
	if err := remote.ValidateDocument(doc); err != nil {
		return nil, errors.Wrapf(err, "payload for %s", id)
	}
	return doc, nil
}

// DocumentToProduct reads a remote document back into a product. Loose
// types written by older clients ("true", 3.0) are coerced.
func DocumentToProduct(s remote.Snapshot) (models.Product, error) {
	d := s.Data
	id := strings.TrimSpace(s.ID)
	if id == "" {
		id = strings.TrimSpace(cast.ToString(d["id"]))
	}
	if id == "" {
		return models.Product{}, errors.Wrap(ErrInvalidPayload, "document without id")
	}
	name := strings.TrimSpace(cast.ToString(d["name"]))
	if name == "" {
		return models.Product{}, errors.Wrapf(ErrInvalidPayload, "document %s has no name", id)
	}

	return models.Product{
		ID:          id,
		Name:        name,
		Category:    stringOr(cast.ToString(d["category"]), models.DefaultCategory),
		InShopping:  cast.ToBool(d["inShopping"]),
		InPantry:    cast.ToBool(d["inPantry"]),
		InStock:     cast.ToBool(d["inStock"]),
		InSeason:    cast.ToBool(d["inSeason"]),
		Completed:   cast.ToBool(d["completed"]),
		RecipeCount: cast.ToInt(d["recipeCount"]),
		DateAdded:   cast.ToString(d["dateAdded"]),
		Timestamp:   cast.ToString(d["timestamp"]),
	}, nil
}

func stringOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// TripMarker is the decoded meta/trip document.
type TripMarker struct {
	TripID string
	State  State
	Device string
}

// MarkerFrom finds the trip marker among the meta documents.
func MarkerFrom(docs []remote.Snapshot) (TripMarker, bool) {
	for _, s := range docs {
		if s.ID != MetaTripDoc {
			continue
		}
		return TripMarker{
			TripID: strings.TrimSpace(cast.ToString(s.Data["tripId"])),
			State:  State(cast.ToString(s.Data["state"])),
			Device: cast.ToString(s.Data["device"]),
		}, true
	}
	return TripMarker{}, false
}

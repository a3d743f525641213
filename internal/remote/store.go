// Package remote is the boundary to the hosted document store holding one
// authoritative copy of the catalog per user account.
package remote

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Collections under users/{uid}/.
const (
	CollectionShoppingItems = "shoppingItems"
	CollectionStandardItems = "standardItems"
	CollectionAllProducts   = "allProducts"
	CollectionMeta          = "meta"
)

// ErrInvalidDocument is returned when a document carries a nil or
// non-primitive field. The hosted store rejects such writes.
var ErrInvalidDocument = errors.New("invalid document")

// Document is the field map of one stored document.
type Document map[string]interface{}

// Snapshot is one document as read from a collection.
type Snapshot struct {
	ID   string
	Data Document
}

// Store is the subset of the document store API the sync engine consumes.
type Store interface {
	Get(ctx context.Context, uid, collection string) ([]Snapshot, error)
	Set(ctx context.Context, uid, collection, id string, data Document) error
	Delete(ctx context.Context, uid, collection, id string) error
	Batch(uid string) Batch
}

// Batch groups writes that commit atomically.
type Batch interface {
	Set(collection, id string, data Document) Batch
	Delete(collection, id string) Batch
	Commit(ctx context.Context) error
	Ops() []Op
}

// OpKind distinguishes batch operations.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// Op is one queued batch operation.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       Document
}

// CollectionPath returns users/{uid}/{collection}.
func CollectionPath(uid, collection string) string {
	return fmt.Sprintf("users/%s/%s", uid, collection)
}

// ValidateDocument rejects nil values and anything but strings, booleans and numbers.
func ValidateDocument(doc Document) error {
	if doc == nil {
		return errors.Wrap(ErrInvalidDocument, "nil document")
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch doc[k].(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		case nil:
			return errors.Wrapf(ErrInvalidDocument, "field %q is undefined", k)
		default:
			return errors.Wrapf(ErrInvalidDocument, "field %q has unsupported type %T", k, doc[k])
		}
	}
	return nil
}

// ValidateOps validates every set operation of a batch.
func ValidateOps(ops []Op) error {
	for _, op := range ops {
		if op.ID == "" {
			return errors.Wrapf(ErrInvalidDocument, "%s in %s without document id", op.Kind, op.Collection)
		}
		if op.Kind != OpSet {
			continue
		}
		if err := ValidateDocument(op.Data); err != nil {
			return errors.Wrapf(err, "%s/%s", op.Collection, op.ID)
		}
	}
	return nil
}

// Clone copies a document one level deep.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// opList is the shared Batch bookkeeping.
type opList struct {
	ops []Op
}

func (l *opList) add(op Op) {
	if op.Kind == OpSet {
		op.Data = op.Data.Clone()
	}
	l.ops = append(l.ops, op)
}

func (l *opList) Ops() []Op {
	return append([]Op(nil), l.ops...)
}

package remote

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/pantrysync/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GormStore keeps documents as JSONB rows in the remote_documents table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection. Call Migrate once at startup.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the documents table.
func (g *GormStore) Migrate() error {
	return g.db.AutoMigrate(&models.RemoteDocument{})
}

func (g *GormStore) Get(ctx context.Context, uid, collection string) ([]Snapshot, error) {
	var rows []models.RemoteDocument
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND collection = ?", uid, collection).
		Order("doc_id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", CollectionPath(uid, collection))
	}

	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s/%s", CollectionPath(uid, collection), row.DocID)
		}
		out = append(out, Snapshot{ID: row.DocID, Data: doc})
	}
	return out, nil
}

func (g *GormStore) Set(ctx context.Context, uid, collection, id string, data Document) error {
	return g.Batch(uid).Set(collection, id, data).Commit(ctx)
}

func (g *GormStore) Delete(ctx context.Context, uid, collection, id string) error {
	return g.Batch(uid).Delete(collection, id).Commit(ctx)
}

func (g *GormStore) Batch(uid string) Batch {
	return &gormBatch{db: g.db, uid: uid}
}

type gormBatch struct {
	opList
	db  *gorm.DB
	uid string
}

func (b *gormBatch) Set(collection, id string, data Document) Batch {
	b.add(Op{Kind: OpSet, Collection: collection, ID: id, Data: data})
	return b
}

func (b *gormBatch) Delete(collection, id string) Batch {
	b.add(Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

// Commit runs every operation in one transaction.
func (b *gormBatch) Commit(ctx context.Context) error {
	if b.uid == "" {
		return errors.New("commit without user id")
	}
	if err := ValidateOps(b.ops); err != nil {
		return err
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			switch op.Kind {
			case OpSet:
				raw, err := encodeDocument(op.Data)
				if err != nil {
					return errors.Wrapf(err, "encode %s/%s", op.Collection, op.ID)
				}
				row := models.RemoteDocument{
					UserID:     b.uid,
					Collection: op.Collection,
					DocID:      op.ID,
					Data:       raw,
				}
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}, {Name: "collection"}, {Name: "doc_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
				}).Create(&row).Error
				if err != nil {
					return errors.Wrapf(err, "set %s/%s", op.Collection, op.ID)
				}
			case OpDelete:
				err := tx.Where("user_id = ? AND collection = ? AND doc_id = ?", b.uid, op.Collection, op.ID).
					Delete(&models.RemoteDocument{}).Error
				if err != nil {
					return errors.Wrapf(err, "delete %s/%s", op.Collection, op.ID)
				}
			}
		}
		return nil
	})
}

func encodeDocument(doc Document) (datatypes.JSON, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeDocument(raw datatypes.JSON) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

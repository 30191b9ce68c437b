package deletions

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metadata is stored next to the archived document
type Metadata struct {
	DeletedByUserId *string `bson:"deletedByUserId,omitempty"`
}

// Archive keeps a copy of removed documents in the <type>_deletions collection
type Archive[T any] interface {
	Initialize(ctx context.Context) error
	Archive(ctx context.Context, deleted T, meta Metadata) error
}

// Deletion is an archived document as it is persisted
type Deletion[T any] struct {
	DeletedTime     time.Time `bson:"deletedTime"`
	DeletedByUserId *string   `bson:"deletedByUserId,omitempty"`
	Document        T         `bson:"document"`
}

// NewArchive returns the archive of documents of typ. keyAttributes are the
// document fields archived copies are looked up by.
func NewArchive[T any](typ string, keyAttributes []string, db *mongo.Database) Archive[T] {
	return &archive[T]{
		collection:    db.Collection(fmt.Sprintf("%s_deletions", typ)),
		documentType:  typ,
		keyAttributes: keyAttributes,
		now:           time.Now,
	}
}

type archive[T any] struct {
	collection    *mongo.Collection
	documentType  string
	keyAttributes []string
	now           func() time.Time
}

func (a *archive[T]) Initialize(ctx context.Context) error {
	keys := bson.D{}
	for _, attr := range a.keyAttributes {
		keys = append(keys, bson.E{Key: "document." + attr, Value: 1})
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    append(bson.D{{Key: "deletedTime", Value: 1}}, keys...),
			Options: options.Index().SetName("DeletedTime"),
		},
	}
	if len(keys) > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetName(cases.Title(language.English).String(a.documentType) + "Deletion"),
		})
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (a *archive[T]) Archive(ctx context.Context, deleted T, meta Metadata) error {
	document := Deletion[T]{
		DeletedTime:     a.now(),
		DeletedByUserId: meta.DeletedByUserId,
		Document:        deleted,
	}
	if _, err := a.collection.InsertOne(ctx, document); err != nil {
		return fmt.Errorf("unable to archive deleted %s: %w", a.documentType, err)
	}
	return nil
}

package clinics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/deletions"
	"github.com/tidepool-org/blip/store"
)

const (
	CollectionName = "clinics"
)

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Service, error) {
	repo := &repository{
		collection: db.Collection(CollectionName),
		deletions:  deletions.NewArchive[Clinic]("clinic", []string{"_id"}, db),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := repo.Initialize(ctx); err != nil {
				return err
			}
			return repo.deletions.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	collection *mongo.Collection
	deletions  deletions.Archive[Clinic]
}

func (c *repository) Initialize(ctx context.Context) error {
	_, err := c.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "clinicians", Value: 1},
			},
			Options: options.Index().
				SetName("Clinicians"),
		},
	})
	return err
}

func (c *repository) Get(ctx context.Context, id string) (*Clinic, error) {
	clinicId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	clinic := &Clinic{}
	err = c.collection.FindOne(ctx, bson.M{"_id": clinicId}).Decode(clinic)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return clinic, nil
}

func (c *repository) List(ctx context.Context, filter *Filter, pagination store.Pagination) ([]*Clinic, error) {
	selector := bson.M{}
	if filter != nil {
		if len(filter.Ids) > 0 {
			selector["_id"] = bson.M{"$in": store.ObjectIDSFromStringArray(filter.Ids)}
		}
		if filter.ClinicianId != nil {
			selector["clinicians"] = *filter.ClinicianId
		}
	}

	opts := pagination.FindOptions().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := c.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing clinics: %w", err)
	}

	clinics := make([]*Clinic, 0)
	if err = cursor.All(ctx, &clinics); err != nil {
		return nil, fmt.Errorf("error decoding clinics list: %w", err)
	}

	return clinics, nil
}

func (c *repository) Create(ctx context.Context, clinic *Clinic) (*Clinic, error) {
	if clinic.PreferredBgUnits == "" {
		clinic.PreferredBgUnits = DefaultBgUnits
	}
	if clinic.GlycemicRangePreset == "" {
		clinic.GlycemicRangePreset = DefaultGlycemicRangePreset
	}
	if err := clinic.Settings().Validate(); err != nil {
		return nil, err
	}
	if clinic.Clinicians == nil {
		clinic.Clinicians = []string{}
	}

	now := time.Now()
	clinic.Id = nil
	clinic.CreatedTime = now
	clinic.UpdatedTime = now

	res, err := c.collection.InsertOne(ctx, clinic)
	if err != nil {
		return nil, fmt.Errorf("error creating clinic: %w", err)
	}

	id := res.InsertedID.(primitive.ObjectID)
	return c.Get(ctx, id.Hex())
}

func (c *repository) UpdateSettings(ctx context.Context, id string, settings *Settings) (*Clinic, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	clinicId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{
		"updatedTime": time.Now(),
	}
	if settings.PreferredBgUnits != nil {
		set["preferredBgUnits"] = *settings.PreferredBgUnits
	}
	if settings.GlycemicRangePreset != nil {
		set["glycemicRangePreset"] = *settings.GlycemicRangePreset
	}
	if settings.Timezone != nil {
		set["timezone"] = *settings.Timezone
	}

	err = c.collection.FindOneAndUpdate(ctx, bson.M{"_id": clinicId}, bson.M{"$set": set}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error updating clinic settings: %w", err)
	}

	return c.Get(ctx, id)
}

func (c *repository) AddClinician(ctx context.Context, id string, userId string) error {
	clinicId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	update := bson.M{
		"$addToSet": bson.M{
			"clinicians": userId,
		},
		"$set": bson.M{
			"updatedTime": time.Now(),
		},
	}
	err = c.collection.FindOneAndUpdate(ctx, bson.M{"_id": clinicId}, update).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c *repository) Delete(ctx context.Context, id string) error {
	clinicId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	clinic := Clinic{}
	err = c.collection.FindOneAndDelete(ctx, bson.M{"_id": clinicId}).Decode(&clinic)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	return c.deletions.Archive(ctx, clinic, deletions.Metadata{})
}

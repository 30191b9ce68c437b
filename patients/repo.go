package patients

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
	patientsCollectionName = "patients"
)

func NewRepository(db *mongo.Database, lifecycle fx.Lifecycle) (Service, error) {
	repo := &repository{
		collection: db.Collection(patientsCollectionName),
		deletions:  deletions.NewArchive[Patient]("patient", []string{"clinicId", "userId"}, db),
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
	deletions  deletions.Archive[Patient]
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "clinicId", Value: 1},
				{Key: "userId", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniquePatient"),
		},
		{
			Keys: bson.D{
				{Key: "clinicId", Value: 1},
				{Key: "fullName", Value: "text"},
				{Key: "mrn", Value: "text"},
			},
			Options: options.Index().
				SetName("PatientSearch"),
		},
	})
	return err
}

func selectPatient(clinicId string, userId string) (bson.M, error) {
	clinicObjId, err := primitive.ObjectIDFromHex(clinicId)
	if err != nil {
		return nil, ErrNotFound
	}
	return bson.M{
		"clinicId": clinicObjId,
		"userId":   userId,
	}, nil
}

func (r *repository) Get(ctx context.Context, clinicId string, userId string) (*Patient, error) {
	selector, err := selectPatient(clinicId, userId)
	if err != nil {
		return nil, err
	}

	patient := &Patient{}
	err = r.collection.FindOne(ctx, selector).Decode(patient)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return patient, nil
}

func (r *repository) Remove(ctx context.Context, clinicId string, userId string, deletedByUserId *string) error {
	selector, err := selectPatient(clinicId, userId)
	if err != nil {
		return err
	}

	patient := Patient{}
	err = r.collection.FindOneAndDelete(ctx, selector).Decode(&patient)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	return r.deletions.Archive(ctx, patient, deletions.Metadata{DeletedByUserId: deletedByUserId})
}

func (r *repository) List(ctx context.Context, filter *Filter, pagination store.Pagination) ([]*Patient, error) {
	opts := pagination.FindOptions()

	selector := bson.M{}
	if filter != nil {
		if filter.ClinicId != nil {
			clinicObjId, err := primitive.ObjectIDFromHex(*filter.ClinicId)
			if err != nil {
				return []*Patient{}, nil
			}
			selector["clinicId"] = clinicObjId
		}
		if filter.UserId != nil {
			selector["userId"] = *filter.UserId
		}
		if filter.Search != nil {
			selector["$text"] = bson.M{
				"$search": *filter.Search,
			}
			textScore := bson.M{
				"score": bson.M{
					"$meta": "textScore",
				},
			}
			opts.SetProjection(textScore)
			opts.SetSort(textScore)
		}
	}
	if filter == nil || filter.Search == nil {
		opts.SetSort(bson.D{{Key: "fullName", Value: 1}, {Key: "_id", Value: 1}})
	}

	cursor, err := r.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing patients: %w", err)
	}

	patients := make([]*Patient, 0)
	if err = cursor.All(ctx, &patients); err != nil {
		return nil, fmt.Errorf("error decoding patients list: %w", err)
	}

	return patients, nil
}

func (r *repository) Create(ctx context.Context, patient Patient) (*Patient, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	patient.Id = nil
	patient.CreatedTime = now
	patient.UpdatedTime = now

	if _, err := r.collection.InsertOne(ctx, patient); err != nil {
		if store.IsDuplicateKeyError(err) {
			return nil, ErrDuplicatePatient
		}
		return nil, fmt.Errorf("error creating patient: %w", err)
	}

	return r.Get(ctx, patient.ClinicId.Hex(), *patient.UserId)
}

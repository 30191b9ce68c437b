package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/store"
)

const (
	summaryCollectionName = "summary"
	defaultFilterPeriod   = "14d"
)

func NewRepository(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		collection: db.Collection(summaryCollectionName),
		logger:     logger,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	collection *mongo.Collection
	logger     *zap.SugaredLogger
}

func (r *repository) Initialize(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "userId", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniqueUserSummaryType"),
		},
		{
			Keys: bson.D{
				{Key: "dates.lastData", Value: 1},
			},
			Options: options.Index().
				SetName("LastData"),
		},
	}
	for _, field := range filterablePeriodFields {
		key := fmt.Sprintf("periods.%s.%s", defaultFilterPeriod, field)
		indexes = append(indexes, mongo.IndexModel{
			Keys: bson.D{
				{Key: key, Value: 1},
			},
			Options: options.Index().
				SetName(fmt.Sprintf("%s%s", defaultFilterPeriod, field)),
		})
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *repository) Get(ctx context.Context, userId string) (*Summary, error) {
	selector := bson.M{
		"type":   TypeCGM,
		"userId": userId,
	}

	summary := &Summary{}
	err := r.collection.FindOne(ctx, selector).Decode(summary)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return summary, nil
}

func (r *repository) Remove(ctx context.Context, userId string) error {
	selector := bson.M{
		"type":   TypeCGM,
		"userId": userId,
	}

	res, err := r.collection.DeleteOne(ctx, selector)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *repository) List(ctx context.Context, filter *Filter, pagination store.Pagination, sorts []*store.Sort) (*ListResult, error) {
	if filter == nil {
		filter = &Filter{}
	}

	// The facet returns the page and the total count from a single query
	pipeline := []bson.M{
		{"$match": generateListFilterQuery(filter)},
		{"$sort": generateListSortStage(sorts)},
	}
	pipeline = append(pipeline, generatePaginationFacetStages(pagination)...)

	r.logger.Debugw("retrieving list of summaries", "pipeline", pipeline)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error listing summaries: %w", err)
	}
	if !cursor.Next(ctx) {
		return nil, fmt.Errorf("error getting pipeline result")
	}

	var result ListResult
	if err = cursor.Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding summaries list: %w", err)
	}

	if result.TotalCount == 0 {
		result.Summaries = make([]*Summary, 0)
	}

	return &result, nil
}

func (r *repository) CreateOrUpdate(ctx context.Context, summary *Summary) error {
	if summary == nil {
		return fmt.Errorf("%w: summary object is missing", ErrInvalidSummary)
	}
	if summary.Type != TypeCGM {
		return fmt.Errorf("%w: invalid summary type %v, expected %v", ErrInvalidSummary, summary.Type, TypeCGM)
	}
	if summary.UserId == "" {
		return fmt.Errorf("%w: summary missing user id", ErrInvalidSummary)
	}

	if summary.Dates.LastUpdatedDate.IsZero() {
		summary.Dates.LastUpdatedDate = time.Now()
	}
	summary.Id = nil

	opts := options.Update().SetUpsert(true)
	selector := bson.M{
		"userId": summary.UserId,
		"type":   summary.Type,
	}

	if _, err := r.collection.UpdateOne(ctx, selector, bson.M{"$set": summary}, opts); err != nil {
		return fmt.Errorf("error updating summary: %w", err)
	}

	return nil
}

func generateListFilterQuery(filter *Filter) bson.M {
	selector := bson.M{
		"type": TypeCGM,
	}
	if len(filter.UserIds) > 0 {
		selector["userId"] = bson.M{"$in": filter.UserIds}
	}

	period := filter.Period
	if _, ok := periodDays[period]; !ok {
		period = defaultFilterPeriod
	}

	maybeApplyNumericFilter(selector, period, "timeCGMUsePercent", filter.TimeCGMUsePercentCmp, filter.TimeCGMUsePercentValue)
	maybeApplyNumericFilter(selector, period, "timeInTargetPercent", filter.TimeInTargetPercentCmp, filter.TimeInTargetPercentValue)
	maybeApplyNumericFilter(selector, period, "timeInVeryLowPercent", filter.TimeInVeryLowPercentCmp, filter.TimeInVeryLowPercentValue)

	return selector
}

func maybeApplyNumericFilter(selector bson.M, period string, field string, cmp *string, value float64) {
	if operator, ok := cmpToMongoFilter(cmp); ok {
		selector[fmt.Sprintf("periods.%s.%s", period, field)] = bson.M{operator: value}
	}
}

func isSortAttributeValid(attribute string) bool {
	_, ok := validSortAttributes[attribute]
	return ok
}

func generateListSortStage(sorts []*store.Sort) bson.D {
	var s bson.D
	for _, sort := range sorts {
		if sort != nil && isSortAttributeValid(sort.Attribute) {
			s = append(s, bson.E{Key: sort.Attribute, Value: sort.Order()})
		}
	}

	if len(s) == 0 {
		s = append(s, bson.E{Key: "userId", Value: 1})
	}

	// $skip needs a total order
	s = append(s, bson.E{Key: "_id", Value: 1})

	return s
}

func generatePaginationFacetStages(pagination store.Pagination) []bson.M {
	return []bson.M{
		{
			"$facet": bson.M{
				"data": []bson.M{
					{"$match": bson.M{}},
					{"$skip": pagination.Offset},
					{"$limit": pagination.Limit},
				},
				"meta": []bson.M{
					{"$count": "count"},
				},
			},
		},
		// lift {"meta": [{"count": n}]} up to {"count": n}
		{
			"$project": bson.M{
				"data": "$data",
				"temp_count": bson.M{
					"$arrayElemAt": bson.A{"$meta", 0},
				},
			},
		},
		{
			"$project": bson.M{
				"data":  "$data",
				"count": "$temp_count.count",
			},
		},
	}
}

var cmpToFilter = map[string]string{
	">":  "$gt",
	">=": "$gte",
	"<":  "$lt",
	"<=": "$lte",
}

func cmpToMongoFilter(cmp *string) (string, bool) {
	if cmp == nil {
		return "", false
	}

	f, ok := cmpToFilter[*cmp]
	return f, ok
}

var validSortAttributes = map[string]struct{}{
	"userId":         {},
	"dates.lastData": {},

	"periods.14d.timeCGMUsePercent":          {},
	"periods.14d.glucoseManagementIndicator": {},
	"periods.14d.timeInTargetPercent":        {},
	"periods.14d.timeInVeryLowPercent":       {},
	"periods.30d.timeCGMUsePercent":          {},
	"periods.30d.timeInTargetPercent":        {},
}

var filterablePeriodFields = []string{
	"timeCGMUsePercent",
	"timeInTargetPercent",
	"timeInVeryLowPercent",
}

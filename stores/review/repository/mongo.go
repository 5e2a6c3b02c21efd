package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/database/mongoclient"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/review"
	"github.com/atelierhq/marketapi/service/query"
)

func makeFindQuery(opts review.FindAllOptions) (query bson.M) {
	query = bson.M{}

	if opts.ListingId != nil {
		query["listingId"] = *opts.ListingId
	}

	if opts.ReviewerId != nil {
		query["reviewerId"] = *opts.ReviewerId
	}

	if opts.SellerId != nil {
		query["sellerId"] = *opts.SellerId
	}

	return query
}

type mongoImpl struct {
	q query.Mongo
}

func NewMongo(q query.Mongo) review.Repo {
	return &mongoImpl{q: q}
}

func (im *mongoImpl) FindAll(c ctx.Ctx, optFns ...review.FindAllOptionsFunc) ([]*review.Review, error) {
	opts, err := review.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("review.GetFindAllOptions failed")
		return nil, err
	}

	offset := int(0)
	limit := int(0)

	// creation order with id tiebreak keeps results stable for pagination
	sort := []string{"createdAt", "id"}

	if opts.Offset != nil {
		offset = int(*opts.Offset)
	}

	if opts.Limit != nil {
		limit = int(*opts.Limit)
	}

	if opts.SortBy != nil {
		sortBy := *opts.SortBy
		if opts.SortDir != nil && *opts.SortDir == domain.SortDirDesc {
			sortBy = "-" + sortBy
		}
		sort = []string{sortBy, "id"}
	}

	query := makeFindQuery(opts)

	res := []*review.Review{}

	if err := im.q.SearchNSorts(c, domain.TableReviews, offset, limit, sort, query, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": query,
			"sort":  sort,
		}).Error("q.SearchNSorts failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Count(c ctx.Ctx, optFns ...review.FindAllOptionsFunc) (int, error) {
	opts, err := review.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("review.GetFindAllOptions failed")
		return 0, err
	}

	cnt, err := im.q.Count(c, domain.TableReviews, makeFindQuery(opts))
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return cnt, nil
}

func (im *mongoImpl) FindOne(c ctx.Ctx, id string) (*review.Review, error) {
	res := &review.Review{}

	if err := im.q.FindOne(c, domain.TableReviews, bson.M{"id": id}, res); errors.Is(err, query.ErrNotFound) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Create(c ctx.Ctx, r *review.Review) error {
	if err := im.q.Insert(c, domain.TableReviews, r); err != nil {
		if errors.Is(err, query.ErrDuplicateKey) {
			return domain.ErrConflict
		}
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *mongoImpl) Patch(c ctx.Ctx, id string, value review.Patchable) error {
	val, err := mongoclient.MakeBsonM(value)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}

	if err := im.q.Patch(c, domain.TableReviews, bson.M{"id": id}, val); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Patch failed")
		return err
	}

	return nil
}

func (im *mongoImpl) IncreaseHelpfulCount(c ctx.Ctx, id string, count int32) error {
	res := &review.Review{}

	if err := im.q.Increment(c, domain.TableReviews, bson.M{"id": id}, res, "helpfulCount", count); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Increment failed")
		return err
	}

	return nil
}

package repository

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/database/mongoclient"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/keys"
	"github.com/atelierhq/marketapi/domain/listing"
	"github.com/atelierhq/marketapi/service/cache"
	compoundcache "github.com/atelierhq/marketapi/service/cache/compoundCache"
	"github.com/atelierhq/marketapi/service/cache/provider/primitive"
	redisCache "github.com/atelierhq/marketapi/service/cache/provider/redis"
	"github.com/atelierhq/marketapi/service/query"
	"github.com/atelierhq/marketapi/service/redis"
)

func makeFindQuery(opts listing.FindAllOptions) (query bson.M) {
	query = bson.M{}

	if opts.Status != nil {
		query["status"] = *opts.Status
	}

	if opts.SellerId != nil {
		query["sellerId"] = *opts.SellerId
	}

	if opts.DesignId != nil {
		query["designId"] = *opts.DesignId
	}

	if opts.Category != nil {
		query["category"] = *opts.Category
	}

	if opts.IsFeatured != nil {
		query["isFeatured"] = *opts.IsFeatured
	}

	if opts.Ids != nil {
		query["id"] = bson.M{"$in": *opts.Ids}
	}

	return query
}

type mongoImpl struct {
	q            query.Mongo
	listingCache cache.Service
}

// NewMongo builds the mongo backed store. FindOne reads go through a short
// lived compound cache which every write path invalidates.
func NewMongo(q query.Mongo, redis redis.Service) listing.Repo {
	cacheServices := []cache.Service{
		cache.New(cache.ServiceConfig{
			Ttl:   10 * time.Second,
			Pfx:   keys.PfxListing,
			Cache: primitive.NewPrimitive(keys.PfxListing, 64),
		}),
	}

	if redis != nil {
		cacheServices = append(cacheServices, cache.New(cache.ServiceConfig{
			Ttl:   10 * time.Minute,
			Pfx:   keys.PfxListing,
			Cache: redisCache.NewRedis(redis),
		}))
	}

	return &mongoImpl{
		q:            q,
		listingCache: compoundcache.NewCompoundCache(cacheServices),
	}
}

func (im *mongoImpl) FindAll(c ctx.Ctx, optFns ...listing.FindAllOptionsFunc) ([]*listing.Listing, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
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

	res := []*listing.Listing{}

	if err := im.q.SearchNSorts(c, domain.TableListings, offset, limit, sort, query, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": query,
			"sort":  sort,
		}).Error("q.SearchNSorts failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Count(c ctx.Ctx, optFns ...listing.FindAllOptionsFunc) (int, error) {
	opts, err := listing.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("listing.GetFindAllOptions failed")
		return 0, err
	}

	cnt, err := im.q.Count(c, domain.TableListings, makeFindQuery(opts))
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return cnt, nil
}

func (im *mongoImpl) FindOne(c ctx.Ctx, id string) (*listing.Listing, error) {
	res := &listing.Listing{}

	if err := im.listingCache.GetByFunc(c, id, res, func() (interface{}, error) {
		return im.findOne(c, id)
	}); err != nil {
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) findOne(c ctx.Ctx, id string) (*listing.Listing, error) {
	res := &listing.Listing{}

	if err := im.q.FindOne(c, domain.TableListings, bson.M{"id": id}, res); errors.Is(err, query.ErrNotFound) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Create(c ctx.Ctx, l *listing.Listing) error {
	if err := im.q.Insert(c, domain.TableListings, l); err != nil {
		if errors.Is(err, query.ErrDuplicateKey) {
			return domain.ErrConflict
		}
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *mongoImpl) Patch(c ctx.Ctx, id string, value listing.Patchable) error {
	val, err := mongoclient.MakeBsonM(value)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}

	if err := im.q.Patch(c, domain.TableListings, bson.M{"id": id}, val); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Patch failed")
		return err
	}

	im.invalidate(c, id)
	return nil
}

func (im *mongoImpl) IncreaseViewCount(c ctx.Ctx, id string, count int32) error {
	return im.increase(c, id, "viewCount", count)
}

func (im *mongoImpl) IncreaseLikeCount(c ctx.Ctx, id string, count int32) error {
	if count >= 0 {
		return im.increase(c, id, "likeCount", count)
	}

	// guarded decrement, the counter never goes below zero
	err := im.q.CustomPatch(c, domain.TableListings,
		bson.M{"id": id, "likeCount": bson.M{"$gte": -count}},
		bson.M{"$inc": bson.M{"likeCount": count}})
	if errors.Is(err, query.ErrNotFound) {
		// distinguish a missing listing from a counter already at zero
		if _, err := im.findOne(c, id); err != nil {
			return err
		}
		return nil
	} else if err != nil {
		c.WithField("err", err).Error("q.CustomPatch failed")
		return err
	}

	im.invalidate(c, id)
	return nil
}

func (im *mongoImpl) IncreaseSalesCount(c ctx.Ctx, id string, count int32) error {
	return im.increase(c, id, "salesCount", count)
}

func (im *mongoImpl) increase(c ctx.Ctx, id string, field string, count int32) error {
	res := &listing.Listing{}

	if err := im.q.Increment(c, domain.TableListings, bson.M{"id": id}, res, field, count); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Increment failed")
		return err
	}

	im.invalidate(c, id)
	return nil
}

func (im *mongoImpl) invalidate(c ctx.Ctx, id string) {
	if err := im.listingCache.Del(c, id); err != nil {
		c.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("listingCache.Del failed")
	}
}

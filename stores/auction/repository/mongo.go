package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/database/mongoclient"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/domain"
	"github.com/atelierhq/marketapi/domain/auction"
	"github.com/atelierhq/marketapi/service/query"
)

func makeAuctionFindQuery(opts auction.FindAllOptions) (query bson.M) {
	query = bson.M{}

	if opts.Status != nil {
		query["status"] = *opts.Status
	}

	if opts.Statuses != nil {
		query["status"] = bson.M{"$in": opts.Statuses}
	}

	if opts.ListingId != nil {
		query["listingId"] = *opts.ListingId
	}

	if opts.SellerId != nil {
		query["sellerId"] = *opts.SellerId
	}

	if opts.StartsBefore != nil {
		query["startsAt"] = bson.M{"$lte": *opts.StartsBefore}
	}

	if opts.EndsBefore != nil {
		query["endsAt"] = bson.M{"$lte": *opts.EndsBefore}
	}

	return query
}

type mongoImpl struct {
	q query.Mongo
}

// NewMongo builds the mongo backed store. Auction state moves with every bid,
// so reads always hit the database, there is no cache in front of it.
func NewMongo(q query.Mongo) auction.Repo {
	return &mongoImpl{q: q}
}

func (im *mongoImpl) FindAll(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
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

	query := makeAuctionFindQuery(opts)

	res := []*auction.Auction{}

	if err := im.q.SearchNSorts(c, domain.TableAuctions, offset, limit, sort, query, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": query,
			"sort":  sort,
		}).Error("q.SearchNSorts failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Count(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) (int, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return 0, err
	}

	cnt, err := im.q.Count(c, domain.TableAuctions, makeAuctionFindQuery(opts))
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return cnt, nil
}

func (im *mongoImpl) FindOne(c ctx.Ctx, id string) (*auction.Auction, error) {
	res := &auction.Auction{}

	if err := im.q.FindOne(c, domain.TableAuctions, bson.M{"id": id}, res); errors.Is(err, query.ErrNotFound) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoImpl) Create(c ctx.Ctx, a *auction.Auction) error {
	if err := im.q.Insert(c, domain.TableAuctions, a); err != nil {
		if errors.Is(err, query.ErrDuplicateKey) {
			return domain.ErrConflict
		}
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *mongoImpl) Patch(c ctx.Ctx, id string, value auction.Patchable) error {
	val, err := mongoclient.MakeBsonM(value)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}

	if err := im.q.Patch(c, domain.TableAuctions, bson.M{"id": id}, val); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Patch failed")
		return err
	}

	return nil
}

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

func makeBidFindQuery(opts auction.SelectBidOptions) (query bson.M) {
	query = bson.M{}

	if opts.AuctionId != nil {
		query["auctionId"] = *opts.AuctionId
	}

	if opts.BidderId != nil {
		query["bidderId"] = *opts.BidderId
	}

	if opts.IsWinning != nil {
		query["isWinning"] = *opts.IsWinning
	}

	return query
}

type mongoBidImpl struct {
	q query.Mongo
}

func NewMongoBid(q query.Mongo) auction.BidRepo {
	return &mongoBidImpl{q: q}
}

func (im *mongoBidImpl) FindAll(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) ([]*auction.Bid, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return nil, err
	}

	offset := int(0)
	limit := int(0)

	// placement order with id tiebreak keeps results stable for pagination
	sort := []string{"placedAt", "id"}

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

	query := makeBidFindQuery(opts)

	res := []*auction.Bid{}

	if err := im.q.SearchNSorts(c, domain.TableBids, offset, limit, sort, query, &res); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"query": query,
			"sort":  sort,
		}).Error("q.SearchNSorts failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoBidImpl) Count(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) (int, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return 0, err
	}

	cnt, err := im.q.Count(c, domain.TableBids, makeBidFindQuery(opts))
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return cnt, nil
}

func (im *mongoBidImpl) FindOne(c ctx.Ctx, optFns ...auction.SelectBidOptionsFunc) (*auction.Bid, error) {
	opts, err := auction.GetSelectBidOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetSelectBidOptions failed")
		return nil, err
	}

	res := &auction.Bid{}

	if err := im.q.FindOne(c, domain.TableBids, makeBidFindQuery(opts), res); errors.Is(err, query.ErrNotFound) {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}

	return res, nil
}

func (im *mongoBidImpl) Create(c ctx.Ctx, b *auction.Bid) error {
	if err := im.q.Insert(c, domain.TableBids, b); err != nil {
		if errors.Is(err, query.ErrDuplicateKey) {
			return domain.ErrConflict
		}
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *mongoBidImpl) Patch(c ctx.Ctx, id string, value auction.PatchableBid) error {
	val, err := mongoclient.MakeBsonM(value)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}

	if err := im.q.Patch(c, domain.TableBids, bson.M{"id": id}, val); errors.Is(err, query.ErrNotFound) {
		return domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.Patch failed")
		return err
	}

	return nil
}

package redis

import (
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/domain/keys"
)

var (
	delBatchSize = 100 // redis lab recommended
)

type redImpl struct {
	name string
	met  metrics.Service
	pool *redis.Pool
}

// Pools represents different pool types
type Pools struct {
	Src *redis.Pool
}

// New redis service backed by the given pool
func New(name string, metrics metrics.Service, pools *Pools) Service {
	return &redImpl{
		name: name,
		met:  metrics,
		pool: pools.Src,
	}
}

func (r *redImpl) getConn() (redis.Conn, error) {
	defer r.met.BumpTime("getconn.time", "cluster", r.name).End()

	if r.pool == nil {
		return nil, ErrPoolUnavailable
	}

	conn := r.pool.Get()
	if err := conn.Err(); err != nil {
		r.met.BumpSum("getConn.err", 1, "cluster", r.name, "reason", err.Error())
		return nil, err
	}

	return conn, nil
}

func (r *redImpl) connDo(context ctx.Ctx, commandName string, args ...interface{}) (interface{}, error) {
	conn, err := r.getConn()
	if err != nil {
		return nil, err
	}

	reply, err := conn.Do(commandName, args...)

	// the longer a connection is held the more connections the pool has
	// to keep open at once, close as soon as the command returns
	if err := conn.Close(); err != nil {
		r.met.BumpSum("conn.Close.err", 1, "cluster", r.name)
	}
	return reply, err
}

func (r *redImpl) Get(context ctx.Ctx, key string) (val []byte, err error) {
	tags := []string{
		"func", "get",
		"cluster", r.name,
		"prefix", keys.GetPrefix(key),
	}
	defer r.met.BumpTime("time", tags...).End()

	val, err = redis.Bytes(r.connDo(context, "GET", key))
	r.met.BumpHistogram("bytes", float64(len(val)), tags...)
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (r *redImpl) Set(context ctx.Ctx, key string, val []byte, expire time.Duration) error {
	tags := []string{
		"func", "set",
		"cluster", r.name,
		"prefix", keys.GetPrefix(key),
	}
	defer r.met.BumpTime("time", tags...).End()
	r.met.BumpHistogram("bytes", float64(len(val)), tags...)

	if expire == Forever {
		r.met.BumpSum("ttl.forever", 1, tags...)
		if _, err := r.connDo(context, "SET", key, val); err != nil {
			context.WithField("err", err).Error("set redis failed")
			return err
		}
		return nil
	}

	r.met.BumpAvg("ttl", expire.Seconds(), tags...)
	if _, err := r.connDo(context, "SET", key, val, "PX", int(expire/time.Millisecond)); err != nil {
		context.WithField("err", err).Error("set redis failed")
		return err
	}
	return nil
}

func (r *redImpl) Del(context ctx.Ctx, ks ...string) (int, error) {
	if len(ks) == 0 {
		return 0, ErrNotFound
	}

	tags := []string{"func", "del", "cluster", r.name, "prefix", keys.GetPrefix(ks[0])}
	defer r.met.BumpTime("time", tags...).End()
	r.met.BumpHistogram("elements", float64(len(ks)), tags...)

	affected := 0
	for i := 0; i < len(ks); i += delBatchSize {
		end := i + delBatchSize
		if end > len(ks) {
			end = len(ks)
		}
		res, err := redis.Int(r.connDo(context, "DEL", redis.Args{}.AddFlat(ks[i:end])...))
		if err != nil {
			context.WithField("err", err).Error("DEL redis failed")
			return 0, err
		}
		affected += res
	}

	return affected, nil
}

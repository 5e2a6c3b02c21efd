package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"

	"github.com/atelierhq/marketapi/base/clock"
	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/database/mongoclient"
	"github.com/atelierhq/marketapi/base/database/redisclient"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/base/pubsub"
	bValidator "github.com/atelierhq/marketapi/base/validator"
	"github.com/atelierhq/marketapi/domain/auction"
	"github.com/atelierhq/marketapi/domain/listing"
	"github.com/atelierhq/marketapi/domain/review"
	mmiddleware "github.com/atelierhq/marketapi/middleware"
	"github.com/atelierhq/marketapi/service/query"
	"github.com/atelierhq/marketapi/service/redis"
	auction_delivery "github.com/atelierhq/marketapi/stores/auction/delivery/http"
	auction_repository "github.com/atelierhq/marketapi/stores/auction/repository"
	auction_usecase "github.com/atelierhq/marketapi/stores/auction/usecase"
	hc_delivery "github.com/atelierhq/marketapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/atelierhq/marketapi/stores/healthcheck/repository"
	hc_usecase "github.com/atelierhq/marketapi/stores/healthcheck/usecase"
	listing_delivery "github.com/atelierhq/marketapi/stores/listing/delivery/http"
	listing_repository "github.com/atelierhq/marketapi/stores/listing/repository"
	listing_usecase "github.com/atelierhq/marketapi/stores/listing/usecase"
	review_delivery "github.com/atelierhq/marketapi/stores/review/delivery/http"
	review_repository "github.com/atelierhq/marketapi/stores/review/repository"
	review_usecase "github.com/atelierhq/marketapi/stores/review/usecase"
	search_delivery "github.com/atelierhq/marketapi/stores/search/delivery/http"
	search_usecase "github.com/atelierhq/marketapi/stores/search/usecase"
)

func init() {
	configFile := pflag.String("config", "infra/configs/config.yaml", "path to the config file")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*configFile)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	var (
		mongoClient *mongoclient.Client
		redisCache  redis.Service

		listingRepo listing.Repo
		auctionRepo auction.Repo
		bidRepo     auction.BidRepo
		reviewRepo  review.Repo
	)

	backend := viper.GetString("store.backend")
	switch backend {
	case "mongo":
		context.Info("init mongo")
		uri := viper.GetString("mongo.uri")
		authDBName := viper.GetString("mongo.authDBName")
		dbName := viper.GetString("mongo.dbName")
		enableSSL := viper.GetBool("mongo.enableSSL")
		mongoClient = mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
		q := query.New(mongoClient)

		if redisCacheURI := viper.GetString("redis_cache.uri"); redisCacheURI != "" {
			context.Info("init redis cache")
			redisCacheName := viper.GetString("redis_cache.name")
			redisCachePwd := viper.GetString("redis_cache.password")
			redisCachePoolMultiplier := viper.GetFloat64("redis_cache.poolMultiplier")
			redisCachePool := redisclient.MustConnectRedis(redisCacheURI, redisCachePwd, redisclient.RedisParam{
				PoolMultiplier: redisCachePoolMultiplier,
				Retry:          true,
			})
			redisCache = redis.New(redisCacheName, metrics.New(redisCacheName), &redis.Pools{
				Src: redisCachePool,
			})
		}

		listingRepo = listing_repository.NewMongo(q, redisCache)
		auctionRepo = auction_repository.NewMongo(q)
		bidRepo = auction_repository.NewMongoBid(q)
		reviewRepo = review_repository.NewMongo(q)
	case "memory", "":
		context.Info("init in-memory store")
		listingRepo = listing_repository.NewInmem()
		auctionRepo = auction_repository.NewInmem()
		bidRepo = auction_repository.NewInmemBid()
		reviewRepo = review_repository.NewInmem()
	default:
		context.WithField("backend", backend).Panic("unknown store.backend")
	}

	mmiddleware.SetupCache(redisCache)

	clk := clock.New()
	ids := idgen.NewUUIDGenerator()
	bus := pubsub.New()

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient, redisCache)

	hc := hc_usecase.New(hcRepo)
	listingUsecase := listing_usecase.New(&listing_usecase.ListingUseCaseCfg{
		ListingRepo: listingRepo,
		Bus:         bus,
		Clock:       clk,
		IdGen:       ids,
	})
	searchUsecase := search_usecase.New(&search_usecase.SearchUseCaseCfg{
		ListingRepo: listingRepo,
	})
	auctionUsecase := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		ListingRepo: listingRepo,
		Clock:       clk,
		IdGen:       ids,
	})
	reviewUsecase := review_usecase.New(&review_usecase.ReviewUseCaseCfg{
		ReviewRepo:  reviewRepo,
		ListingRepo: listingRepo,
		Bus:         bus,
		Clock:       clk,
		IdGen:       ids,
	})

	hc_delivery.New(e, hc)
	listing_delivery.New(e, listingUsecase)
	search_delivery.New(e, searchUsecase)
	auction_delivery.New(e, auctionUsecase)
	review_delivery.New(e, reviewUsecase)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}

package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atelierhq/marketapi/base/clock"
	bCtx "github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/database/mongoclient"
	"github.com/atelierhq/marketapi/base/idgen"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/base/sweeper"
	"github.com/atelierhq/marketapi/domain/auction"
	hcdomain "github.com/atelierhq/marketapi/domain/healthcheck"
	"github.com/atelierhq/marketapi/domain/listing"
	mmiddleware "github.com/atelierhq/marketapi/middleware"
	"github.com/atelierhq/marketapi/service/query"
	auction_repository "github.com/atelierhq/marketapi/stores/auction/repository"
	auction_usecase "github.com/atelierhq/marketapi/stores/auction/usecase"
	hc_delivery "github.com/atelierhq/marketapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/atelierhq/marketapi/stores/healthcheck/repository"
	hc_usecase "github.com/atelierhq/marketapi/stores/healthcheck/usecase"
	listing_repository "github.com/atelierhq/marketapi/stores/listing/repository"
)

func init() {
	configFile := pflag.String("config", "infra/configs/sweeper/config.yaml", "path to the config file")
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
	ctx, cancel := bCtx.WithCancel(bCtx.Background())

	var (
		mongoClient *mongoclient.Client

		listingRepo listing.Repo
		auctionRepo auction.Repo
		bidRepo     auction.BidRepo
	)

	backend := viper.GetString("store.backend")
	switch backend {
	case "mongo":
		ctx.Info("init mongo")
		uri := viper.GetString("mongo.uri")
		authDBName := viper.GetString("mongo.authDBName")
		dbName := viper.GetString("mongo.dbName")
		enableSSL := viper.GetBool("mongo.enableSSL")
		mongoClient = mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
		q := query.New(mongoClient)

		listingRepo = listing_repository.NewMongo(q, nil)
		auctionRepo = auction_repository.NewMongo(q)
		bidRepo = auction_repository.NewMongoBid(q)
	case "memory", "":
		// a memory store only ever sees auctions created by this process,
		// useful for local runs
		ctx.Info("init in-memory store")
		listingRepo = listing_repository.NewInmem()
		auctionRepo = auction_repository.NewInmem()
		bidRepo = auction_repository.NewInmemBid()
	default:
		ctx.WithField("backend", backend).Panic("unknown store.backend")
	}

	hc := hc_usecase.New(hc_repo.New(mongoClient, nil))
	startEchoServer(hc)

	auctionUsecase := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		ListingRepo: listingRepo,
		Clock:       clock.New(),
		IdGen:       idgen.NewUUIDGenerator(),
	})

	errCh := make(chan error, 10)

	sw := sweeper.New(auctionUsecase, errCh)
	if interval := viper.GetDuration("sweeper.interval"); interval > 0 {
		sw.SetInterval(interval)
	}
	sw.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		ctx.WithField("err", err).Error("sweeper error")
	case sig := <-quit:
		ctx.WithField("signal", sig).Info("received signal")
	}

	go func() {
		for range errCh {
		}
	}()
	cancel()
	sw.Wait()
}

func startEchoServer(hc hcdomain.Usecase) {
	context := bCtx.Background()

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())

	hc_delivery.New(e, hc)

	address := viper.GetString("server.address")
	context.WithField("address", address).Info("starting server")
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			context.Error("shutting down the server")
		}
	}()
}

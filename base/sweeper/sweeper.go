package sweeper

import (
	"time"

	"golang.org/x/xerrors"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/base/goroutine"
	"github.com/atelierhq/marketapi/base/log"
	"github.com/atelierhq/marketapi/base/metrics"
	"github.com/atelierhq/marketapi/domain/auction"
)

var met metrics.Service

// Sweeper periodically advances time-dependent auction state: due scheduled
// auctions start and due active auctions settle. Every pass is idempotent so
// a crashed or restarted sweeper just catches up on its next tick.
type Sweeper struct {
	auction   auction.Usecase
	interval  time.Duration
	errorCh   chan<- error
	stoppedCh chan interface{}
}

func New(auctionUsecase auction.Usecase, errCh chan<- error) *Sweeper {
	met = metrics.New("sweeper")
	return &Sweeper{
		auction:   auctionUsecase,
		interval:  30 * time.Second,
		errorCh:   errCh,
		stoppedCh: make(chan interface{}),
	}
}

func (im *Sweeper) SetInterval(interval time.Duration) *Sweeper {
	im.interval = interval
	return im
}

func (im *Sweeper) Start(ctx ctx.Ctx) {
	goroutine.RecoverableGo(func() {
		im.loop(ctx)
	}, goroutine.WithAfterRecovered(func(p interface{}, stack []byte) {
		im.errorCh <- xerrors.Errorf("sweep loop panic: %v", p)
		close(im.stoppedCh)
	}))
}

func (im *Sweeper) loop(ctx ctx.Ctx) {
	// the first pass runs immediately so a restart catches up without
	// waiting out a full interval
	nextTick := time.Second * 0

	for {
		select {
		case <-ctx.Done():
			close(im.stoppedCh)
			return
		case <-time.After(nextTick):
			report, err := im.auction.ProcessAuctionEndings(ctx)
			if err != nil {
				ctx.WithField("err", err).Error("auction.ProcessAuctionEndings failed")
				im.errorCh <- err
				close(im.stoppedCh)
				return
			}

			if report.Started+report.Sold+report.Ended+report.NoBids > 0 {
				ctx.WithFields(log.Fields{
					"started": report.Started,
					"sold":    report.Sold,
					"ended":   report.Ended,
					"noBids":  report.NoBids,
				}).Info("sweep pass moved auctions")
			}

			met.BumpSum("auction.started", float64(report.Started))
			met.BumpSum("auction.sold", float64(report.Sold))
			met.BumpSum("auction.ended", float64(report.Ended))
			met.BumpSum("auction.no_bids", float64(report.NoBids))

			nextTick = im.interval
		}
	}
}

func (im *Sweeper) Wait() {
	<-im.stoppedCh
}

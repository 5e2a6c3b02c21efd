package ctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type testsuite struct {
	suite.Suite
}

func Test(t *testing.T) {
	suite.Run(t, new(testsuite))
}

func (ts *testsuite) TestWithValue() {
	c := WithValue(Background(), "listingId", "lst_1")
	ts.Equal("lst_1", c.Value("listingId"))
}

func (ts *testsuite) TestWithValues() {
	c := WithValues(Background(), map[string]interface{}{
		"auctionId": "auc_1",
		"bidderId":  "usr_9",
	})
	ts.Equal("auc_1", c.Value("auctionId"))
	ts.Equal("usr_9", c.Value("bidderId"))
}

func (ts *testsuite) TestWithCancel() {
	c, cancel := WithCancel(Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		ts.Fail("cancel did not propagate")
	}
	ts.ErrorIs(c.Err(), context.Canceled)
}

func (ts *testsuite) TestWithTimeout() {
	c, cancel := WithTimeout(Background(), 10*time.Millisecond)
	defer cancel()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		ts.Fail("deadline did not fire")
	}
	ts.ErrorIs(c.Err(), context.DeadlineExceeded)
}

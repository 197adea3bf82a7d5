package store

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aaronwang/auction-platform/shared/apperror"
	"github.com/aaronwang/auction-platform/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func seconds(n float64) *float64 { return &n }

func createAuction(t *testing.T, s *Store, startingBid float64, duration *float64) *models.Auction {
	t.Helper()
	a, err := s.Create(models.CreateAuctionRequest{Name: "Lamp", StartingBid: startingBid, DurationSeconds: duration})
	require.NoError(t, err)
	return a
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  models.CreateAuctionRequest
	}{
		{name: "empty name", req: models.CreateAuctionRequest{Name: "  ", StartingBid: 10}},
		{name: "zero starting bid", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 0}},
		{name: "negative starting bid", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: -5}},
		{name: "negative duration", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 10, DurationSeconds: seconds(-1)}},
		{name: "fractional duration", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 10, DurationSeconds: seconds(1.5)}},
		{name: "duration overflowing the deadline", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 10, DurationSeconds: seconds(1e10)}},
		{name: "duration overflowing int64", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 10, DurationSeconds: seconds(1e19)}},
		{name: "infinite duration", req: models.CreateAuctionRequest{Name: "Lamp", StartingBid: 10, DurationSeconds: seconds(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			a, err := s.Create(tt.req)

			require.Error(t, err)
			assert.Nil(t, a)
			assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
			assert.Empty(t, s.List(), "no record may be created")
		})
	}
}

func TestCreateInitialState(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	a, err := s.Create(models.CreateAuctionRequest{Name: "Lamp", Description: "brass", StartingBid: 25, DurationSeconds: seconds(30)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOpen, a.Status)
	assert.Equal(t, models.ReasonOpen, a.StatusReason)
	assert.Equal(t, a.StartingBid, a.CurrentBid)
	assert.Empty(t, a.HighestBidder)
	assert.Equal(t, int64(30), a.DurationSeconds)
	assert.Equal(t, models.EpochSeconds(clock.Now().Add(30*time.Second)), a.ClosingTime)
	assert.Equal(t, "1772366400000", a.ID)
}

func TestCreateDurationDefaults(t *testing.T) {
	s := New()

	omitted := createAuction(t, s, 10, nil)
	assert.Equal(t, int64(DefaultDuration), omitted.DurationSeconds)
	assert.NotZero(t, omitted.ClosingTime)

	never := createAuction(t, s, 10, seconds(0))
	assert.Equal(t, int64(0), never.DurationSeconds)
	assert.Zero(t, never.ClosingTime)
}

func TestCreateLongestDurationStaysOpen(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	a := createAuction(t, s, 10, seconds(float64(MaxDuration)))
	assert.Equal(t, MaxDuration, a.DurationSeconds)
	assert.Greater(t, a.ClosingTime, models.EpochSeconds(clock.Now()))

	clock.Advance(24 * time.Hour)
	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
}

func TestCreateAssignsDistinctIDsWithinSameMillisecond(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	first := createAuction(t, s, 10, nil)
	second := createAuction(t, s, 10, nil)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.Len(t, s.List(), 2)
}

func TestLazyExpiry(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	a := createAuction(t, s, 10, seconds(10))
	deadline := a.ClosingTime

	clock.Advance(10*time.Second - time.Millisecond)
	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status, "must not expire before the deadline")

	clock.Advance(time.Millisecond)
	got, err = s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, got.Status)
	assert.Equal(t, models.ReasonEnded, got.StatusReason)
	assert.Equal(t, deadline, got.ClosingTime, "closing time is frozen at the deadline")

	clock.Advance(time.Hour)
	listed := s.List()
	require.Len(t, listed, 1)
	assert.Equal(t, deadline, listed[0].ClosingTime)
}

func TestListExpiresEveryOverdueAuction(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	short := createAuction(t, s, 10, seconds(5))
	long := createAuction(t, s, 10, seconds(500))
	forever := createAuction(t, s, 10, seconds(0))

	clock.Advance(time.Minute)
	statuses := map[string]models.AuctionStatus{}
	for _, a := range s.List() {
		statuses[a.ID] = a.Status
	}

	assert.Equal(t, models.StatusEnded, statuses[short.ID])
	assert.Equal(t, models.StatusOpen, statuses[long.ID])
	assert.Equal(t, models.StatusOpen, statuses[forever.ID])
}

func TestListReturnsCopies(t *testing.T) {
	s := New()
	a := createAuction(t, s, 10, nil)
	_, err := s.Bid(a.ID, "alice", 20)
	require.NoError(t, err)

	listed := s.List()
	listed[0].CurrentBid = 999
	listed[0].Bids[0].Amount = 999

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.CurrentBid)
	assert.Equal(t, 20.0, got.Bids[0].Amount)
}

func TestGetUnknown(t *testing.T) {
	_, err := New().Get("nope")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestBid(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	a := createAuction(t, s, 10, nil)

	updated, err := s.Bid(a.ID, "alice", 15)
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.CurrentBid)
	assert.Equal(t, "alice", updated.HighestBidder)

	clock.Advance(time.Second)
	updated, err = s.Bid(a.ID, "bob", 30)
	require.NoError(t, err)
	require.Len(t, updated.Bids, 2)
	assert.Equal(t, "alice", updated.Bids[0].Bidder)
	assert.Equal(t, "bob", updated.Bids[1].Bidder)
	assert.Less(t, updated.Bids[0].Timestamp, updated.Bids[1].Timestamp)
}

func TestBidDoesNotCompareWithCurrentBid(t *testing.T) {
	s := New()
	a := createAuction(t, s, 10, nil)
	_, err := s.Bid(a.ID, "alice", 200)
	require.NoError(t, err)

	updated, err := s.Bid(a.ID, "bob", 100)
	require.NoError(t, err, "amount ordering is the validator's job")
	assert.Equal(t, 100.0, updated.CurrentBid)
	assert.Equal(t, "bob", updated.HighestBidder)
}

func TestBidErrors(t *testing.T) {
	s := New()
	a := createAuction(t, s, 10, nil)

	_, err := s.Bid(a.ID, "", 20)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	_, err = s.Bid(a.ID, "alice", 0)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	_, err = s.Bid("missing", "alice", 20)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestBidWhenExpiryFires(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	a := createAuction(t, s, 10, seconds(5))

	clock.Advance(5 * time.Second)
	_, err := s.Bid(a.ID, "alice", 20)

	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, err.Error(), models.ReasonEnded)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Bids)
	assert.Equal(t, 10.0, got.CurrentBid)
}

func TestBidOnTerminalAuctionAlwaysConflicts(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	closed := createAuction(t, s, 10, nil)
	_, _, err := s.Close(closed.ID)
	require.NoError(t, err)

	ended := createAuction(t, s, 10, seconds(1))
	clock.Advance(2 * time.Second)
	_, err = s.Get(ended.ID)
	require.NoError(t, err)

	for _, amount := range []float64{1, 11, 1e9} {
		_, err := s.Bid(closed.ID, "alice", amount)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
		assert.Contains(t, err.Error(), models.ReasonClosed)

		_, err = s.Bid(ended.ID, "alice", amount)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
		assert.Contains(t, err.Error(), models.ReasonEnded)
	}
}

func TestClose(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	a := createAuction(t, s, 10, seconds(60))
	_, err := s.Bid(a.ID, "alice", 40)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	closed, transitioned, err := s.Close(a.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Equal(t, models.ReasonClosed, closed.StatusReason)
	assert.Equal(t, models.EpochSeconds(clock.Now()), closed.ClosingTime)
	assert.Equal(t, "alice", closed.HighestBidder)

	clock.Advance(10 * time.Second)
	again, transitioned, err := s.Close(a.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, closed, again, "repeated close returns the same terminal state")
}

func TestCloseAfterDeadlineIsNoop(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	a := createAuction(t, s, 10, seconds(5))

	clock.Advance(time.Minute)
	got, transitioned, err := s.Close(a.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.StatusEnded, got.Status)
	assert.Equal(t, a.ClosingTime, got.ClosingTime)
}

func TestCloseUnknown(t *testing.T) {
	_, _, err := New().Close("missing")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestConcurrentBidsAreSerialized(t *testing.T) {
	s := New()
	a := createAuction(t, s, 1, seconds(0))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			_, err := s.Bid(a.ID, "bidder", amount)
			assert.NoError(t, err)
		}(float64(i))
	}
	wg.Wait()

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Len(t, got.Bids, 50)
	assert.Equal(t, got.Bids[len(got.Bids)-1].Amount, got.CurrentBid, "current bid is whichever write landed last")
}

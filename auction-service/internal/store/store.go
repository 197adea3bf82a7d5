// Package store owns auction records and their lifecycle.
//
// All reads and writes go through one mutex. Reads take the lock too because
// they may expire an auction whose deadline has passed (lazy expiry), so no
// caller can observe an OPEN auction past its closing time.
package store

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aaronwang/auction-platform/shared/apperror"
	"github.com/aaronwang/auction-platform/shared/models"
)

// DefaultDuration is applied when a create request omits duration_seconds
const DefaultDuration = 60

// MaxDuration is the longest duration_seconds whose deadline fits a time.Duration
const MaxDuration = math.MaxInt64 / int64(time.Second)

// Store is the in-memory auction store
type Store struct {
	mu       sync.Mutex
	auctions map[string]*auction
	order    []string
	lastID   int64
	now      func() time.Time
}

// auction is the live record; closingTime is zero for auctions that never expire
type auction struct {
	models.Auction
	closingTime time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		auctions: make(map[string]*auction),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req and registers a new OPEN auction
func (s *Store) Create(req models.CreateAuctionRequest) (*models.Auction, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.InvalidInput("name is required")
	}
	if math.IsNaN(req.StartingBid) || req.StartingBid <= 0 {
		return nil, apperror.InvalidInput("starting_bid must be positive")
	}

	duration := int64(DefaultDuration)
	if req.DurationSeconds != nil {
		d := *req.DurationSeconds
		if d < 0 || d != math.Trunc(d) || math.IsInf(d, 0) {
			return nil, apperror.InvalidInput("duration_seconds must be a non-negative integer")
		}
		if d > float64(MaxDuration) {
			return nil, apperror.InvalidInput("duration_seconds must not exceed %d", MaxDuration)
		}
		duration = int64(d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &auction{
		Auction: models.Auction{
			ID:              s.nextID(now),
			Name:            name,
			Description:     req.Description,
			StartingBid:     req.StartingBid,
			CurrentBid:      req.StartingBid,
			DurationSeconds: duration,
			Status:          models.StatusOpen,
			StatusReason:    models.ReasonOpen,
			Bids:            []models.Bid{},
		},
	}
	if duration > 0 {
		rec.closingTime = now.Add(time.Duration(duration) * time.Second)
		rec.ClosingTime = models.EpochSeconds(rec.closingTime)
	}

	s.auctions[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec.Clone(), nil
}

// nextID returns the creation time in milliseconds, bumped past the last
// issued id so two auctions created in the same millisecond stay distinct.
// Caller must hold s.mu.
func (s *Store) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// List expires overdue auctions and returns copies of all auctions in creation order
func (s *Store) List() []*models.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]*models.Auction, 0, len(s.order))
	for _, id := range s.order {
		rec := s.auctions[id]
		s.expireIfDue(rec, now)
		out = append(out, rec.Clone())
	}
	return out
}

// Get returns a copy of one auction after the lazy expiry check
func (s *Store) Get(id string) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.auctions[id]
	if !ok {
		return nil, apperror.NotFound("auction not found")
	}
	s.expireIfDue(rec, s.now())
	return rec.Clone(), nil
}

// Bid records a bid on an OPEN auction. It does not compare amount with the
// current bid: the bid validator owns that rule, and two bids validated against
// the same current bid both commit here, last writer wins.
func (s *Store) Bid(id, bidder string, amount float64) (*models.Auction, error) {
	bidder = strings.TrimSpace(bidder)
	if math.IsNaN(amount) || amount <= 0 || bidder == "" {
		return nil, apperror.InvalidInput("invalid bid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.auctions[id]
	if !ok {
		return nil, apperror.NotFound("auction not found")
	}

	now := s.now()
	if s.expireIfDue(rec, now) {
		return nil, apperror.Conflict(models.ReasonEnded)
	}
	if rec.Status != models.StatusOpen {
		return nil, apperror.Conflict("%s", rec.StatusReason)
	}

	rec.CurrentBid = amount
	rec.HighestBidder = bidder
	rec.Bids = append(rec.Bids, models.Bid{
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: models.EpochSeconds(now),
	})
	return rec.Clone(), nil
}

// Close moves an OPEN auction to CLOSED. Closing an auction that is already
// terminal, or that turns out to be past its deadline, changes nothing and
// reports transitioned=false.
func (s *Store) Close(id string) (*models.Auction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.auctions[id]
	if !ok {
		return nil, false, apperror.NotFound("auction not found")
	}

	now := s.now()
	if s.expireIfDue(rec, now) || rec.Status.Terminal() {
		return rec.Clone(), false, nil
	}

	rec.Status = models.StatusClosed
	rec.StatusReason = models.ReasonClosed
	rec.closingTime = now
	rec.ClosingTime = models.EpochSeconds(now)
	return rec.Clone(), true, nil
}

// expireIfDue ends an OPEN auction whose deadline has passed and reports
// whether it did. closing_time is left as the original deadline.
// Caller must hold s.mu.
func (s *Store) expireIfDue(rec *auction, now time.Time) bool {
	if rec.Status != models.StatusOpen || rec.closingTime.IsZero() {
		return false
	}
	if now.Before(rec.closingTime) {
		return false
	}
	rec.Status = models.StatusEnded
	rec.StatusReason = models.ReasonEnded
	return true
}

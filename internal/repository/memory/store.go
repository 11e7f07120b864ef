// Package memory implements the repositories in process memory.
// Transactions are serialized by a single lock and rolled back from a snapshot.
package memory

import (
	"context"
	"sync"
	"time"

	"savefood/internal/model"
	"savefood/internal/repository"

	"github.com/google/uuid"
)

type txKey struct{}

// Store holds every table. Use the accessor methods to get repository views.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	users      map[uuid.UUID]model.User
	donations  map[uuid.UUID]model.FoodDonation
	requests   map[uuid.UUID]model.BuyRequest
	collectors map[uuid.UUID]model.FoodWasteCollector
	audit      []model.AuditLog

	// insertion order, oldest first
	userIDs      []uuid.UUID
	donationIDs  []uuid.UUID
	requestIDs   []uuid.UUID
	collectorIDs []uuid.UUID
}

func NewStore() *Store {
	return &Store{
		now:        time.Now,
		users:      make(map[uuid.UUID]model.User),
		donations:  make(map[uuid.UUID]model.FoodDonation),
		requests:   make(map[uuid.UUID]model.BuyRequest),
		collectors: make(map[uuid.UUID]model.FoodWasteCollector),
	}
}

func (s *Store) Users() repository.UserRepository             { return &userRepo{s} }
func (s *Store) Donations() repository.DonationRepository     { return &donationRepo{s} }
func (s *Store) BuyRequests() repository.BuyRequestRepository { return &buyRequestRepo{s} }
func (s *Store) Collectors() repository.CollectorRepository   { return &collectorRepo{s} }
func (s *Store) Audit() repository.AuditRepository            { return &auditRepo{s} }
func (s *Store) Stats() repository.StatsRepository            { return &statsRepo{s} }
func (s *Store) TxManager() repository.TransactionManager     { return &txManager{s} }

type txManager struct {
	s *Store
}

// RunInTx runs fn while holding the store-wide transaction lock.
// All writes made by fn are discarded when it returns an error. Repository
// calls outside fn wait for the lock, so a rollback only ever undoes fn's own
// writes and nothing outside sees them before commit.
func (t *txManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// autocommit makes a repository call outside a transaction a transaction of
// its own. Inside RunInTx the lock is already held.
func (s *Store) autocommit(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type snapshot struct {
	users        map[uuid.UUID]model.User
	donations    map[uuid.UUID]model.FoodDonation
	requests     map[uuid.UUID]model.BuyRequest
	collectors   map[uuid.UUID]model.FoodWasteCollector
	audit        []model.AuditLog
	userIDs      []uuid.UUID
	donationIDs  []uuid.UUID
	requestIDs   []uuid.UUID
	collectorIDs []uuid.UUID
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:        cloneMap(s.users),
		donations:    cloneMap(s.donations),
		requests:     cloneMap(s.requests),
		collectors:   cloneMap(s.collectors),
		audit:        append([]model.AuditLog(nil), s.audit...),
		userIDs:      append([]uuid.UUID(nil), s.userIDs...),
		donationIDs:  append([]uuid.UUID(nil), s.donationIDs...),
		requestIDs:   append([]uuid.UUID(nil), s.requestIDs...),
		collectorIDs: append([]uuid.UUID(nil), s.collectorIDs...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.donations = snap.donations
	s.requests = snap.requests
	s.collectors = snap.collectors
	s.audit = snap.audit
	s.userIDs = snap.userIDs
	s.donationIDs = snap.donationIDs
	s.requestIDs = snap.requestIDs
	s.collectorIDs = snap.collectorIDs
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// newestFirst walks ids from newest to oldest, keeping those accepted by keep,
// and returns the requested page together with the total match count.
func newestFirst(ids []uuid.UUID, keep func(uuid.UUID) bool, page, limit int) ([]uuid.UUID, int64) {
	var matched []uuid.UUID
	for i := len(ids) - 1; i >= 0; i-- {
		if keep(ids[i]) {
			matched = append(matched, ids[i])
		}
	}
	total := int64(len(matched))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return matched, total
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total
}

func (s *Store) stamp(id *uuid.UUID, createdAt, updatedAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := s.now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// userRef returns a detached copy of the user, or nil when unknown. Callers hold mu.
func (s *Store) userRef(id uuid.UUID) *model.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return &u
}

func (s *Store) donationWithDonor(id uuid.UUID) (model.FoodDonation, bool) {
	d, ok := s.donations[id]
	if !ok {
		return d, false
	}
	d.Donor = s.userRef(d.DonorID)
	return d, true
}

func (s *Store) collectorWithUser(id uuid.UUID) (model.FoodWasteCollector, bool) {
	c, ok := s.collectors[id]
	if !ok {
		return c, false
	}
	c.User = s.userRef(c.UserID)
	return c, true
}

func (s *Store) requestWithRelations(id uuid.UUID) (model.BuyRequest, bool) {
	r, ok := s.requests[id]
	if !ok {
		return r, false
	}
	r.Requester = s.userRef(r.RequesterID)
	if d, ok := s.donationWithDonor(r.DonationID); ok {
		r.Donation = &d
	}
	if r.AssignedCollectorID != nil {
		if c, ok := s.collectorWithUser(*r.AssignedCollectorID); ok {
			r.AssignedCollector = &c
		}
		id := *r.AssignedCollectorID
		r.AssignedCollectorID = &id
	}
	return r, true
}

// bareRequest strips relations before a row is written
func bareRequest(r model.BuyRequest) model.BuyRequest {
	r.Requester = nil
	r.Donation = nil
	r.AssignedCollector = nil
	if r.AssignedCollectorID != nil {
		id := *r.AssignedCollectorID
		r.AssignedCollectorID = &id
	}
	return r
}

// Stores returns all repository views of s
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Users:       s.Users(),
		Donations:   s.Donations(),
		BuyRequests: s.BuyRequests(),
		Collectors:  s.Collectors(),
		Audit:       s.Audit(),
		Stats:       s.Stats(),
		Tx:          s.TxManager(),
	}
}

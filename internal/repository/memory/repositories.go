package memory

import (
	"context"

	"savefood/internal/model"
	"savefood/internal/repository"

	"github.com/google/uuid"
)

// --- users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email || u.Phone == user.Phone {
			return repository.ErrDuplicate
		}
	}
	r.s.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	r.s.users[user.ID] = *user
	r.s.userIDs = append(r.s.userIDs, user.ID)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer r.s.autocommit(ctx)()
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	defer r.s.autocommit(ctx)()
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.s.autocommit(ctx)()
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	defer r.s.autocommit(ctx)()
	return r.find(func(u model.User) bool { return u.Phone == phone })
}

func (r *userRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- donations ---

type donationRepo struct{ s *Store }

func (r *donationRepo) Create(ctx context.Context, donation *model.FoodDonation) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&donation.ID, &donation.CreatedAt, &donation.UpdatedAt)
	row := *donation
	row.Donor = nil
	r.s.donations[row.ID] = row
	r.s.donationIDs = append(r.s.donationIDs, row.ID)
	return nil
}

func (r *donationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.donationWithDonor(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

// FindByIDForUpdate relies on the transaction lock for exclusion
func (r *donationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.FoodDonation, error) {
	return r.FindByID(ctx, id)
}

func (r *donationRepo) MarkSold(ctx context.Context, id uuid.UUID) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.IsSold = true
	d.UpdatedAt = r.s.now()
	r.s.donations[id] = d
	return nil
}

func (r *donationRepo) ListSafe(ctx context.Context, page, limit int) ([]model.FoodDonation, int64, error) {
	defer r.s.autocommit(ctx)()
	return r.list(func(d model.FoodDonation) bool { return d.IsSafe }, page, limit)
}

func (r *donationRepo) ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.FoodDonation, int64, error) {
	defer r.s.autocommit(ctx)()
	return r.list(func(d model.FoodDonation) bool { return d.DonorID == donorID }, page, limit)
}

func (r *donationRepo) list(keep func(model.FoodDonation) bool, page, limit int) ([]model.FoodDonation, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids, total := newestFirst(r.s.donationIDs, func(id uuid.UUID) bool {
		return keep(r.s.donations[id])
	}, page, limit)

	out := make([]model.FoodDonation, 0, len(ids))
	for _, id := range ids {
		d, _ := r.s.donationWithDonor(id)
		out = append(out, d)
	}
	return out, total, nil
}

// --- buy requests ---

type buyRequestRepo struct{ s *Store }

func (r *buyRequestRepo) Create(ctx context.Context, req *model.BuyRequest) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.requests {
		if existing.RequesterID == req.RequesterID && existing.DonationID == req.DonationID {
			return repository.ErrDuplicate
		}
	}
	r.s.stamp(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	r.s.requests[req.ID] = bareRequest(*req)
	r.s.requestIDs = append(r.s.requestIDs, req.ID)
	return nil
}

func (r *buyRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requestWithRelations(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *buyRequestRepo) FindDonationID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return req.DonationID, nil
}

// FindByIDForUpdate relies on the transaction lock for exclusion
func (r *buyRequestRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.BuyRequest, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	req = bareRequest(req)
	return &req, nil
}

func (r *buyRequestRepo) FindByRequesterAndDonation(ctx context.Context, requesterID, donationID uuid.UUID) (*model.BuyRequest, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.requests {
		if req.RequesterID == requesterID && req.DonationID == donationID {
			req = bareRequest(req)
			return &req, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *buyRequestRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error) {
	defer r.s.autocommit(ctx)()
	return r.list(func(req model.BuyRequest) bool { return req.RequesterID == requesterID }, page, limit)
}

func (r *buyRequestRepo) ListByDonor(ctx context.Context, donorID uuid.UUID, page, limit int) ([]model.BuyRequest, int64, error) {
	defer r.s.autocommit(ctx)()
	return r.list(func(req model.BuyRequest) bool {
		d, ok := r.s.donations[req.DonationID]
		return ok && d.DonorID == donorID
	}, page, limit)
}

func (r *buyRequestRepo) ListByCollector(ctx context.Context, collectorID uuid.UUID, status string) ([]model.BuyRequest, error) {
	defer r.s.autocommit(ctx)()
	out, _, err := r.list(func(req model.BuyRequest) bool {
		return req.IsAssignedTo(collectorID) && req.Status == status
	}, 1, 0)
	return out, err
}

func (r *buyRequestRepo) ListPendingByDonation(ctx context.Context, donationID uuid.UUID) ([]model.BuyRequest, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.BuyRequest
	for _, id := range r.s.requestIDs {
		req := r.s.requests[id]
		if req.DonationID == donationID && req.Status == model.BuyRequestPending {
			out = append(out, bareRequest(req))
		}
	}
	return out, nil
}

func (r *buyRequestRepo) Update(ctx context.Context, req *model.BuyRequest) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; !ok {
		return repository.ErrNotFound
	}
	req.UpdatedAt = r.s.now()
	r.s.requests[req.ID] = bareRequest(*req)
	return nil
}

func (r *buyRequestRepo) RejectPendingSiblings(ctx context.Context, donationID, keepID uuid.UUID) (int64, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, req := range r.s.requests {
		if req.DonationID != donationID || req.Status != model.BuyRequestPending || id == keepID {
			continue
		}
		req.Status = model.BuyRequestRejected
		req.UpdatedAt = r.s.now()
		r.s.requests[id] = req
		n++
	}
	return n, nil
}

func (r *buyRequestRepo) AdvanceDeliveryStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok || req.Status != model.BuyRequestAccepted || req.DeliveryStatus != from {
		return false, nil
	}
	req.DeliveryStatus = to
	req.UpdatedAt = r.s.now()
	r.s.requests[id] = req
	return true, nil
}

func (r *buyRequestRepo) SetCollector(ctx context.Context, id uuid.UUID, collectorID *uuid.UUID) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.AssignedCollectorID = collectorID
	req.UpdatedAt = r.s.now()
	r.s.requests[id] = bareRequest(req)
	return nil
}

func (r *buyRequestRepo) list(keep func(model.BuyRequest) bool, page, limit int) ([]model.BuyRequest, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids, total := newestFirst(r.s.requestIDs, func(id uuid.UUID) bool {
		return keep(r.s.requests[id])
	}, page, limit)

	out := make([]model.BuyRequest, 0, len(ids))
	for _, id := range ids {
		req, _ := r.s.requestWithRelations(id)
		out = append(out, req)
	}
	return out, total, nil
}

// --- collectors ---

type collectorRepo struct{ s *Store }

func (r *collectorRepo) Create(ctx context.Context, collector *model.FoodWasteCollector) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.collectors {
		if c.UserID == collector.UserID {
			return repository.ErrDuplicate
		}
	}
	r.s.stamp(&collector.ID, &collector.CreatedAt, &collector.UpdatedAt)
	row := *collector
	row.User = nil
	r.s.collectors[row.ID] = row
	r.s.collectorIDs = append(r.s.collectorIDs, row.ID)
	return nil
}

func (r *collectorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.FoodWasteCollector, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.collectorWithUser(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *collectorRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.FoodWasteCollector, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, c := range r.s.collectors {
		if c.UserID == userID {
			c, _ = r.s.collectorWithUser(id)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *collectorRepo) List(ctx context.Context, page, limit int) ([]model.FoodWasteCollector, int64, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids, total := newestFirst(r.s.collectorIDs, func(uuid.UUID) bool { return true }, page, limit)
	out := make([]model.FoodWasteCollector, 0, len(ids))
	for _, id := range ids {
		c, _ := r.s.collectorWithUser(id)
		out = append(out, c)
	}
	return out, total, nil
}

func (r *collectorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.collectors[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = r.s.now()
	r.s.collectors[id] = c
	return nil
}

// --- audit ---

type auditRepo struct{ s *Store }

func (r *auditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	defer r.s.autocommit(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.s.now()
	}
	row := *entry
	row.User = nil
	r.s.audit = append(r.s.audit, row)
	return nil
}

func (r *auditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	defer r.s.autocommit(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := int64(len(r.s.audit))
	if page < 1 {
		page = 1
	}
	out := make([]model.AuditLog, 0, limit)
	for i, skipped := len(r.s.audit)-1, 0; i >= 0 && len(out) < limit; i-- {
		if skipped < (page-1)*limit {
			skipped++
			continue
		}
		entry := r.s.audit[i]
		if entry.UserID != nil {
			entry.User = r.s.userRef(*entry.UserID)
		}
		out = append(out, entry)
	}
	return out, total, nil
}

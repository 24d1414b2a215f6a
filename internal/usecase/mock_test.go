//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/domain/ports/adapter"
	"eduplatform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func strPtr(s string) *string { return &s }

// =============================
// Transactional in-memory store
// =============================

// memStore backs the mock repositories. A transaction holds mu for its whole
// duration and restores a snapshot on error, so concurrent redemptions are
// serialized the way row locks serialize them in PostgreSQL.
type memStore struct {
	mu          sync.Mutex
	codes       map[string]*model.PromoCode
	users       map[string]*model.User
	redemptions []*model.Redemption

	// fault injection
	FindErr      error
	IncrementErr error
	GrantErr     error
	LedgerErr    error
	BeginErr     error
}

type memTx struct{}

func newMemStore() *memStore {
	return &memStore{
		codes: make(map[string]*model.PromoCode),
		users: make(map[string]*model.User),
	}
}

func (s *memStore) lock(tx repository.Tx) func() {
	if tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func clonePromo(p *model.PromoCode) *model.PromoCode {
	c := *p
	return &c
}

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.Grant != nil {
		g := *u.Grant
		c.Grant = &g
	}
	return &c
}

func (s *memStore) snapshot() (map[string]*model.PromoCode, map[string]*model.User, []*model.Redemption) {
	codes := make(map[string]*model.PromoCode, len(s.codes))
	for k, v := range s.codes {
		codes[k] = clonePromo(v)
	}
	users := make(map[string]*model.User, len(s.users))
	for k, v := range s.users {
		users[k] = cloneUser(v)
	}
	return codes, users, append([]*model.Redemption(nil), s.redemptions...)
}

func (s *memStore) addCode(p *model.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[p.Code] = clonePromo(p)
}

func (s *memStore) addUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &model.User{ID: id, CreatedAt: time.Now().UTC()}
}

func (s *memStore) code(code string) *model.PromoCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.codes[code]; ok {
		return clonePromo(p)
	}
	return nil
}

func (s *memStore) user(id string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *memStore) ledger() []*model.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Redemption(nil), s.redemptions...)
}

// ---- TransactionManager ----

type mockTxManager struct {
	s *memStore

	mu         sync.Mutex
	Committed  int
	RolledBack int
}

var _ repository.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.s.BeginErr != nil {
		return m.s.BeginErr
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	codes, users, ledger := m.s.snapshot()
	if err := fn(ctx, memTx{}); err != nil {
		m.s.codes, m.s.users, m.s.redemptions = codes, users, ledger
		m.mu.Lock()
		m.RolledBack++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.Committed++
	m.mu.Unlock()
	return nil
}

// ---- PromoCodeRepository ----

type memPromoRepo struct{ s *memStore }

var _ repository.PromoCodeRepository = (*memPromoRepo)(nil)

func (r *memPromoRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	defer r.s.lock(tx)()
	if r.s.FindErr != nil {
		return nil, r.s.FindErr
	}
	p, ok := r.s.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePromo(p), nil
}

func (r *memPromoRepo) IncrementUsage(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.PromoCode, error) {
	defer r.s.lock(tx)()
	if r.s.IncrementErr != nil {
		return nil, r.s.IncrementErr
	}
	p, ok := r.s.codes[code]
	if !ok || p.CheckEligibility(now) != nil {
		return nil, domain.ErrConditionNotMet
	}
	p.CurrentUses++
	p.UpdatedAt = now
	return clonePromo(p), nil
}

func (r *memPromoRepo) Create(ctx context.Context, tx repository.Tx, p *model.PromoCode) error {
	defer r.s.lock(tx)()
	if _, ok := r.s.codes[p.Code]; ok {
		return domain.ErrAlreadyExists
	}
	r.s.codes[p.Code] = clonePromo(p)
	return nil
}

func (r *memPromoRepo) SetActive(ctx context.Context, tx repository.Tx, code string, active bool) (*model.PromoCode, error) {
	defer r.s.lock(tx)()
	p, ok := r.s.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Active = active
	return clonePromo(p), nil
}

func (r *memPromoRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.PromoCode, error) {
	defer r.s.lock(tx)()
	all := make([]*model.PromoCode, 0, len(r.s.codes))
	for _, p := range r.s.codes {
		all = append(all, clonePromo(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	if offset >= len(all) {
		return []*model.PromoCode{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memPromoRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (map[model.PromoCodeState]int, error) {
	defer r.s.lock(tx)()
	out := make(map[model.PromoCodeState]int)
	for _, p := range r.s.codes {
		out[p.State(now)]++
	}
	return out, nil
}

func (r *memPromoRepo) TotalRemainingUses(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	defer r.s.lock(tx)()
	var n int
	for _, p := range r.s.codes {
		if p.CheckEligibility(now) == nil {
			n += p.RemainingUses()
		}
	}
	return n, nil
}

// ---- UserRepository ----

type memUserRepo struct{ s *memStore }

var _ repository.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	defer r.s.lock(tx)()
	if existing, ok := r.s.users[u.ID]; ok {
		existing.Email = u.Email
		return nil
	}
	c := cloneUser(u)
	c.Grant = nil
	r.s.users[u.ID] = c
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	defer r.s.lock(tx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *memUserRepo) ApplyGrant(ctx context.Context, tx repository.Tx, g *model.RedemptionGrant) error {
	defer r.s.lock(tx)()
	if r.s.GrantErr != nil {
		return r.s.GrantErr
	}
	u, ok := r.s.users[g.UserID]
	if !ok || u.Grant != nil {
		return domain.ErrConditionNotMet
	}
	cp := *g
	u.Grant = &cp
	return nil
}

func (r *memUserRepo) CountActiveTrials(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	defer r.s.lock(tx)()
	var n int
	for _, u := range r.s.users {
		if u.Grant.TrialActive(now) {
			n++
		}
	}
	return n, nil
}

// ---- RedemptionRepository ----

type memRedemptionRepo struct{ s *memStore }

var _ repository.RedemptionRepository = (*memRedemptionRepo)(nil)

func (r *memRedemptionRepo) Save(ctx context.Context, tx repository.Tx, rd *model.Redemption) error {
	defer r.s.lock(tx)()
	if r.s.LedgerErr != nil {
		return r.s.LedgerErr
	}
	for _, existing := range r.s.redemptions {
		if existing.UserID == rd.UserID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *rd
	r.s.redemptions = append(r.s.redemptions, &cp)
	return nil
}

func (r *memRedemptionRepo) ListByCode(ctx context.Context, tx repository.Tx, code string, limit int) ([]*model.Redemption, error) {
	defer r.s.lock(tx)()
	var out []*model.Redemption
	for i := len(r.s.redemptions) - 1; i >= 0 && len(out) < limit; i-- {
		if rd := r.s.redemptions[i]; rd.Code == code {
			cp := *rd
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================
// Adapters
// =============================

type mockNotifier struct {
	mu   sync.Mutex
	Sent []string
	Err  error
}

var _ adapter.OperatorNotifier = (*mockNotifier)(nil)

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return m.Err
}

func (m *mockNotifier) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Sent...)
}

// fixture bundles a store with repositories over it.
// cachedPromoRepo records Invalidate calls together with the commit count
// seen at that moment.
type cachedPromoRepo struct {
	*memPromoRepo
	tm *mockTxManager

	mu          sync.Mutex
	invalidated []string
	commitsSeen []int
}

var _ repository.PromoCodeCacheInvalidator = (*cachedPromoRepo)(nil)

func (r *cachedPromoRepo) Invalidate(_ context.Context, code string) {
	r.tm.mu.Lock()
	commits := r.tm.Committed
	r.tm.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, code)
	r.commitsSeen = append(r.commitsSeen, commits)
}

type fixture struct {
	store       *memStore
	codes       *memPromoRepo
	users       *memUserRepo
	redemptions *memRedemptionRepo
	tm          *mockTxManager
	notifier    *mockNotifier
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:       s,
		codes:       &memPromoRepo{s: s},
		users:       &memUserRepo{s: s},
		redemptions: &memRedemptionRepo{s: s},
		tm:          &mockTxManager{s: s},
		notifier:    &mockNotifier{},
	}
}

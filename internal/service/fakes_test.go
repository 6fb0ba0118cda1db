package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/lock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository/contract"
	"meal-subscription-be/internal/repository/gateway"
	"meal-subscription-be/internal/repository/memory"
	"meal-subscription-be/internal/repository/specification"
	"meal-subscription-be/internal/repository/unitofwork"
	"meal-subscription-be/pkg/calendar"
	"meal-subscription-be/pkg/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("dial tcp: connection refused")

// --- subscriptions ---

type fakeSubscriptionRepo struct {
	mu            sync.Mutex
	rows          map[uuid.UUID]*entity.Subscription
	down          bool
	conflictsLeft int
	patches       int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{rows: map[uuid.UUID]*entity.Subscription{}}
}

func (r *fakeSubscriptionRepo) setDown(down bool) {
	r.mu.Lock()
	r.down = down
	r.mu.Unlock()
}

func (r *fakeSubscriptionRepo) get(id uuid.UUID) *entity.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Clone()
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	sub.Version = 1
	r.rows[sub.Id] = sub.Clone()
	return nil
}

func (r *fakeSubscriptionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errStoreDown
	}
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			if row, found := r.rows[byID.ID]; found {
				return row.Clone(), nil
			}
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errStoreDown
	}
	var out []*entity.Subscription
	for _, row := range r.rows {
		if matchesAll(row, specs) {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func matchesAll(row *entity.Subscription, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByCustomerID:
			if row.CustomerId != spec.CustomerID {
				return false
			}
		case specification.ByAssignedDelivery:
			if !row.IsAssignedTo(spec.DeliveryID) {
				return false
			}
		case specification.ByStatus:
			if string(row.Status) != spec.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeSubscriptionRepo) ApplyPatch(ctx context.Context, id uuid.UUID, expectedVersion int, patch *entity.SubscriptionPatch, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return 0, errStoreDown
	}
	row, ok := r.rows[id]
	if !ok {
		return 0, entity.ErrSubscriptionNotFound
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return 0, entity.ErrConcurrentUpdate
	}
	if row.Version != expectedVersion {
		return 0, entity.ErrConcurrentUpdate
	}
	row.Apply(patch)
	row.Version++
	row.UpdatedAt = now
	r.patches++
	return row.Version, nil
}

func (r *fakeSubscriptionRepo) Overwrite(ctx context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	if _, ok := r.rows[sub.Id]; !ok {
		return entity.ErrSubscriptionNotFound
	}
	c := sub.Clone()
	c.Version++
	r.rows[sub.Id] = c
	return nil
}

// --- acknowledgments ---

type fakeAckRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*entity.DeliveryAck
	findErr error
}

func newFakeAckRepo() *fakeAckRepo {
	return &fakeAckRepo{rows: map[uuid.UUID]*entity.DeliveryAck{}}
}

func copyAck(a *entity.DeliveryAck) *entity.DeliveryAck {
	c := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (r *fakeAckRepo) all() []*entity.DeliveryAck {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.DeliveryAck, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, copyAck(a))
	}
	return out
}

func (r *fakeAckRepo) only(t *testing.T) *entity.DeliveryAck {
	t.Helper()
	acks := r.all()
	require.Len(t, acks, 1)
	return acks[0]
}

func (r *fakeAckRepo) Create(ctx context.Context, ack *entity.DeliveryAck) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.SubscriptionId == ack.SubscriptionId && a.Date == ack.Date && a.IsOpen() {
			return false, nil
		}
	}
	r.rows[ack.Id] = copyAck(ack)
	return true, nil
}

func (r *fakeAckRepo) FindOpen(ctx context.Context, subscriptionId uuid.UUID, date calendar.Day) (*entity.DeliveryAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.SubscriptionId == subscriptionId && a.Date == date && a.IsOpen() {
			return copyAck(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAckRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.DeliveryAck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*entity.DeliveryAck
	for _, a := range r.rows {
		if a.IsDue(now) {
			out = append(out, copyAck(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextActionAt.Before(out[j].NextActionAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAckRepo) CompareAndSet(ctx context.Context, ack *entity.DeliveryAck, expected entity.AckState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ack.Id]
	if !ok || row.State != expected {
		return false, nil
	}
	r.rows[ack.Id] = copyAck(ack)
	return true, nil
}

func (r *fakeAckRepo) CountOpen(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.rows {
		if a.IsOpen() {
			n++
		}
	}
	return n, nil
}

// --- settings, catalog, wallet ---

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *entity.AppSettings
	err      error
}

func (r *fakeSettingsRepo) set(skip, addOn string) {
	r.mu.Lock()
	r.settings = &entity.AppSettings{SkipCutoffTime: skip, AddOnCutoffTime: addOn}
	r.mu.Unlock()
}

func (r *fakeSettingsRepo) Get(ctx context.Context) (*entity.AppSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.settings == nil {
		return nil, nil
	}
	c := *r.settings
	return &c, nil
}

type fakeAddOnRepo struct {
	items map[string]*entity.AddOn
}

func (r *fakeAddOnRepo) FindActiveByIds(ctx context.Context, ids []string) ([]*entity.AddOn, error) {
	var out []*entity.AddOn
	for _, id := range ids {
		if a, ok := r.items[id]; ok && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeWalletRepo struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]decimal.Decimal
	transactions []*entity.WalletTransaction
}

func (r *fakeWalletRepo) balance(id uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[id]
}

func (r *fakeWalletRepo) FindForUpdate(ctx context.Context, customerId uuid.UUID) (*entity.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[customerId]
	if !ok {
		return nil, nil
	}
	return &entity.Wallet{CustomerId: customerId, Balance: b}, nil
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, customerId uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[customerId] = balance
	return nil
}

func (r *fakeWalletRepo) CreateTransaction(ctx context.Context, tx *entity.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, tx)
	return nil
}

// --- unit of work ---

type fakeUnitOfWork struct {
	env *testEnv
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) SubscriptionRepository() contract.SubscriptionRepository { return u.env.subs }
func (u *fakeUnitOfWork) DeliveryAckRepository() contract.DeliveryAckRepository   { return u.env.acks }
func (u *fakeUnitOfWork) AppSettingsRepository() contract.AppSettingsRepository {
	return u.env.settings
}
func (u *fakeUnitOfWork) AddOnRepository() contract.AddOnRepository   { return u.env.addOns }
func (u *fakeUnitOfWork) WalletRepository() contract.WalletRepository { return u.env.wallets }

type fakeFactory struct {
	env *testEnv
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{env: f.env}
}

// --- outbound collaborators ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type sentPrompt struct {
	CustomerId     uuid.UUID
	Kind           entity.PromptKind
	SubscriptionId uuid.UUID
	Date           calendar.Day
}

type recordingNotifier struct {
	mu      sync.Mutex
	prompts []sentPrompt
}

func (n *recordingNotifier) SendPrompt(ctx context.Context, customerId uuid.UUID, kind entity.PromptKind, subscriptionId uuid.UUID, date calendar.Day) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, sentPrompt{customerId, kind, subscriptionId, date})
}

func (n *recordingNotifier) sent() []sentPrompt {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentPrompt(nil), n.prompts...)
}

type stubLocker struct {
	err      error
	acquired int
}

func (l *stubLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.ReleaseFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error { return nil }, nil
}

// memLocker is an in-process stand-in for the Redis lock.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, lock.ErrNotAcquired
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, nil
}

// --- environment ---

type testEnv struct {
	clock    *clock.Mock
	subs     *fakeSubscriptionRepo
	acks     *fakeAckRepo
	settings *fakeSettingsRepo
	addOns   *fakeAddOnRepo
	wallets  *fakeWalletRepo
	local    *memory.SubscriptionStore
	factory  unitofwork.RepositoryFactory
	gateway  gateway.SubscriptionGateway
	locker   *stubLocker
	mutator  *SubscriptionMutator
	cutoff   CutoffService
	events   *recordingPublisher
	notifier *recordingNotifier
	log      logger.ILogger

	customerId uuid.UUID
	agentId    uuid.UUID
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:    clock.NewMock(now),
		subs:     newFakeSubscriptionRepo(),
		acks:     newFakeAckRepo(),
		settings: &fakeSettingsRepo{},
		addOns: &fakeAddOnRepo{items: map[string]*entity.AddOn{
			"raita":   {Id: "raita", Name: "Raita", Price: decimal.RequireFromString("30"), IsActive: true},
			"lassi":   {Id: "lassi", Name: "Sweet Lassi", Price: decimal.RequireFromString("45.50"), IsActive: true},
			"papad":   {Id: "papad", Name: "Papad", Price: decimal.RequireFromString("10"), IsActive: true},
			"retired": {Id: "retired", Name: "Old Dessert", Price: decimal.RequireFromString("99"), IsActive: false},
		}},
		wallets:    &fakeWalletRepo{balances: map[uuid.UUID]decimal.Decimal{}},
		local:      memory.NewSubscriptionStore(time.Hour),
		locker:     &stubLocker{},
		events:     &recordingPublisher{},
		notifier:   &recordingNotifier{},
		log:        logger.NewNopLogger(),
		customerId: uuid.New(),
		agentId:    uuid.New(),
	}
	env.settings.set("09:00", "09:00")
	env.wallets.balances[env.customerId] = decimal.RequireFromString("100")
	env.factory = &fakeFactory{env: env}
	env.gateway = gateway.NewSubscriptionGateway(env.subs, env.local, env.clock, env.log)
	env.mutator = NewSubscriptionMutator(env.gateway, env.locker, time.Second, env.log)
	env.mutator.retryInterval = time.Millisecond
	env.cutoff = NewCutoffService(env.factory, env.clock, time.UTC, env.log)
	return env
}

// seed creates an active subscription assigned to env.agentId.
func (e *testEnv) seed(t *testing.T, start string, total int, ex calendar.Exclusion) *entity.Subscription {
	t.Helper()
	return e.seedWith(t, start, total, ex, nil)
}

func (e *testEnv) seedWith(t *testing.T, start string, total int, ex calendar.Exclusion, edit func(*entity.Subscription)) *entity.Subscription {
	t.Helper()
	sub := entity.NewSubscription(e.customerId, "plan-veg-lunch", "thali", calendar.MustParseDay(start), total, ex)
	agent := e.agentId
	sub.AssignedDeliveryId = &agent
	if edit != nil {
		edit(sub)
	}
	require.NoError(t, e.gateway.Create(context.Background(), sub))
	return sub
}

func (e *testEnv) read(t *testing.T, id uuid.UUID) *entity.Subscription {
	t.Helper()
	sub, err := e.gateway.Read(context.Background(), id)
	require.NoError(t, err)
	return sub
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) calendar.Day {
	return calendar.MustParseDay(s)
}

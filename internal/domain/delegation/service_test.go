package delegation

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthgateway/gateway/internal/domain/dependent"
	"github.com/healthgateway/gateway/internal/domain/profile"
	"github.com/healthgateway/gateway/internal/platform/db"
	"github.com/healthgateway/gateway/internal/platform/notify"
	"github.com/healthgateway/gateway/internal/platform/queue"
	"github.com/healthgateway/gateway/internal/platform/result"
)

// -- Mocks --

type mockDelegationRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Delegation
}

func newMockDelegationRepo() *mockDelegationRepo {
	return &mockDelegationRepo{items: make(map[uuid.UUID]*Delegation)}
}

func (m *mockDelegationRepo) Create(_ context.Context, d *Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDelegationRepo) GetByID(_ context.Context, id uuid.UUID) (*Delegation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// GetByIDForUpdate yields after the read so that callers racing outside a
// transaction interleave.
func (m *mockDelegationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Delegation, error) {
	d, err := m.GetByID(ctx, id)
	runtime.Gosched()
	return d, err
}

func (m *mockDelegationRepo) Update(_ context.Context, d *Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[d.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *d
	m.items[d.ID] = &cp
	return nil
}

func (m *mockDelegationRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockDelegationRepo) ListByOwner(_ context.Context, owner string) ([]*Delegation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Delegation
	for _, d := range m.items {
		if d.ResourceOwnerHdid == owner {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockDelegationRepo) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.items {
		if d.Status == StatusPending && d.expiredAt(now) {
			d.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

type mockGrantRepo struct {
	mu    sync.Mutex
	items []*dependent.ResourceDelegate
}

func (m *mockGrantRepo) Create(_ context.Context, d *dependent.ResourceDelegate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.items {
		if cur.ResourceOwnerHdid == d.ResourceOwnerHdid && cur.ProfileHdid == d.ProfileHdid {
			return result.AlreadyExists("delegate already exists")
		}
	}
	cp := *d
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockGrantRepo) Get(_ context.Context, owner, delegate string) (*dependent.ResourceDelegate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.items {
		if d.ResourceOwnerHdid == owner && d.ProfileHdid == delegate {
			return d, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockGrantRepo) ListByDelegate(context.Context, string) ([]*dependent.ResourceDelegate, error) {
	return nil, errors.New("not used")
}

func (m *mockGrantRepo) Delete(context.Context, string, string) error {
	return errors.New("not used")
}

func (m *mockGrantRepo) DeleteByDelegation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, d := range m.items {
		if d.DelegationID == nil || *d.DelegationID != id {
			kept = append(kept, d)
		}
	}
	m.items = kept
	return nil
}

func (m *mockGrantRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.items[:0]
	for _, d := range m.items {
		if d.ExpiredAt(now) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.items = kept
	return n, nil
}

type ownerProfiles map[string]*profile.UserProfile

func (o ownerProfiles) GetByHdid(_ context.Context, hdid string) (*profile.UserProfile, error) {
	if p, ok := o[hdid]; ok {
		return p, nil
	}
	return nil, db.ErrNotFound
}

var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	svc    *Service
	repo   *mockDelegationRepo
	grants *mockGrantRepo
	pub    *queue.MemoryPublisher
	txs    int
	txMu   sync.Mutex
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:   newMockDelegationRepo(),
		grants: &mockGrantRepo{},
		pub:    queue.NewMemoryPublisher(),
	}
	// Transactions hold one lock, as row locks serialize them on one invitation.
	tx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		env.txMu.Lock()
		defer env.txMu.Unlock()
		env.txs++
		return fn(ctx)
	}
	profiles := ownerProfiles{"owner": {Hdid: "owner", Email: "owner@example.ca"}}
	emails := notify.NewEmailQueue(env.pub, "email", notify.NewTemplateEngine())
	events := notify.NewEventPublisher(env.pub, "events", zerolog.Nop())
	env.svc = NewService(env.repo, env.grants, profiles, emails, events, tx,
		Options{MaxAttempts: 3, WebClientURL: "https://hg.example"}, zerolog.Nop())
	env.svc.now = func() time.Time { return testNow }
	return env
}

func (env *testEnv) create(t *testing.T, expiry string) *CreateResponse {
	t.Helper()
	out, err := env.svc.CreateDelegation(context.Background(), "owner", CreateRequest{
		Nickname: "Mom", ExpiryDate: expiry, DataSources: []string{"Medication", "Laboratory", "Medication"},
	})
	if err != nil {
		t.Fatalf("create delegation: %v", err)
	}
	return out
}

func TestCreateDelegation(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "2024-12-31")
	if len(out.SharingCode) != 6 {
		t.Errorf("expected 6 character code, got %q", out.SharingCode)
	}
	d := env.repo.items[out.DelegationID]
	if d.Status != StatusPending || d.SharingCodeHash == out.SharingCode || d.SharingCodeHash == "" {
		t.Errorf("unexpected stored delegation %+v", d)
	}
	if len(d.DataSources) != 2 {
		t.Errorf("expected duplicate data sources removed, got %v", d.DataSources)
	}
}

func TestCreateDelegation_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"expiry today", CreateRequest{Nickname: "a", ExpiryDate: "2024-06-15", DataSources: []string{"Medication"}}},
		{"expiry past", CreateRequest{Nickname: "a", ExpiryDate: "2024-01-01", DataSources: []string{"Medication"}}},
		{"no sources", CreateRequest{Nickname: "a"}},
		{"unknown source", CreateRequest{Nickname: "a", DataSources: []string{"Astrology"}}},
		{"long nickname", CreateRequest{Nickname: "abcdefghijklmnopqrstu", DataSources: []string{"Medication"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEnv().svc.CreateDelegation(context.Background(), "owner", tt.req)
			if result.KindOf(err) != result.KindValidation {
				t.Errorf("expected Validation, got %v", err)
			}
		})
	}
}

func TestAssociateDelegation(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "2024-12-31")

	d, err := env.svc.AssociateDelegation(context.Background(), "delegate", out.DelegationID, out.SharingCode, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusAccepted || d.ProfileHdid != "delegate" {
		t.Errorf("unexpected delegation %+v", d)
	}
	if env.txs != 1 {
		t.Errorf("expected acceptance in one transaction, got %d", env.txs)
	}
	g, err := env.grants.Get(context.Background(), "owner", "delegate")
	if err != nil {
		t.Fatalf("expected grant: %v", err)
	}
	if g.ReasonCode != dependent.ReasonDelegation || g.ExpiryDate == nil || *g.DelegationID != out.DelegationID {
		t.Errorf("unexpected grant %+v", g)
	}
	if got := env.pub.EventTypes("events"); len(got) != 1 || got[0] != string(notify.EventDelegationAccepted) {
		t.Errorf("expected delegation-accepted event, got %v", got)
	}
	if got := env.pub.EventTypes("email"); len(got) != 1 {
		t.Errorf("expected owner email, got %v", got)
	}

	_, err = env.svc.AssociateDelegation(context.Background(), "someone", out.DelegationID, out.SharingCode, testNow)
	if result.KindOf(err) != result.KindAlreadyExists {
		t.Errorf("expected AlreadyExists for a used invitation, got %v", err)
	}
}

func TestAssociateDelegation_LocksAfterFailures(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.AssociateDelegation(ctx, "delegate", out.DelegationID, "ZZZZZZ", testNow)
		if result.KindOf(err) != result.KindValidation {
			t.Fatalf("attempt %d: expected Validation, got %v", i+1, err)
		}
	}
	if env.repo.items[out.DelegationID].Status != StatusLocked {
		t.Fatalf("expected Locked, got %s", env.repo.items[out.DelegationID].Status)
	}
	_, err := env.svc.AssociateDelegation(ctx, "delegate", out.DelegationID, out.SharingCode, testNow)
	if result.KindOf(err) != result.KindInvalidState {
		t.Errorf("expected InvalidState for locked invitation, got %v", err)
	}
}

func TestAssociateDelegation_ConcurrentRedemption(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "2024-12-31")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, delegate := range []string{"delegate-a", "delegate-b"} {
		wg.Add(1)
		go func(i int, delegate string) {
			defer wg.Done()
			_, errs[i] = env.svc.AssociateDelegation(context.Background(), delegate, out.DelegationID, out.SharingCode, testNow)
		}(i, delegate)
	}
	wg.Wait()

	accepted, used := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case result.KindOf(err) == result.KindAlreadyExists:
			used++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || used != 1 {
		t.Errorf("expected one acceptance and one used rejection, got %v", errs)
	}
	if len(env.grants.items) != 1 {
		t.Errorf("expected one grant for the invitation, got %d", len(env.grants.items))
	}
}

func TestAssociateDelegation_ConcurrentGuessesLock(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "")

	const guesses = 10
	errs := make([]error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.AssociateDelegation(context.Background(), "delegate", out.DelegationID, "ZZZZZZ", testNow)
		}(i)
	}
	wg.Wait()

	invalid, locked := 0, 0
	for _, err := range errs {
		switch result.KindOf(err) {
		case result.KindValidation:
			invalid++
		case result.KindInvalidState:
			locked++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if invalid != 3 || locked != guesses-3 {
		t.Errorf("expected 3 rejected guesses and %d locked, got %d and %d", guesses-3, invalid, locked)
	}
	d := env.repo.items[out.DelegationID]
	if d.FailedAttempts != 3 || d.Status != StatusLocked {
		t.Errorf("expected 3 failed attempts and Locked, got %d %s", d.FailedAttempts, d.Status)
	}
	if _, err := env.svc.AssociateDelegation(context.Background(), "delegate", out.DelegationID, out.SharingCode, testNow); result.KindOf(err) != result.KindInvalidState {
		t.Errorf("expected the right code to be refused once locked, got %v", err)
	}
}

func TestAssociateDelegation_Expired(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "2024-06-20")
	later := time.Date(2024, 6, 21, 0, 0, 1, 0, time.UTC)

	_, err := env.svc.AssociateDelegation(context.Background(), "delegate", out.DelegationID, out.SharingCode, later)
	if result.KindOf(err) != result.KindInvalidState {
		t.Errorf("expected InvalidState, got %v", err)
	}
	if env.repo.items[out.DelegationID].Status != StatusExpired {
		t.Error("expected invitation marked Expired")
	}
}

func TestAssociateDelegation_OwnInvitationAndMissing(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "")
	if _, err := env.svc.AssociateDelegation(context.Background(), "owner", out.DelegationID, out.SharingCode, testNow); result.KindOf(err) != result.KindValidation {
		t.Errorf("expected Validation, got %v", err)
	}
	if _, err := env.svc.AssociateDelegation(context.Background(), "delegate", uuid.New(), "ABCDEF", testNow); result.KindOf(err) != result.KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestGetDelegations_ComputesStatus(t *testing.T) {
	env := newTestEnv()
	out := env.create(t, "2024-06-20")
	items, err := env.svc.GetDelegations(context.Background(), "owner", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Status != StatusExpired {
		t.Errorf("expected computed Expired status, got %+v", items)
	}
	if env.repo.items[out.DelegationID].Status != StatusPending {
		t.Error("expected stored status to be unchanged")
	}
}

func TestRemoveDelegation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	out := env.create(t, "")
	if _, err := env.svc.AssociateDelegation(ctx, "delegate", out.DelegationID, out.SharingCode, testNow); err != nil {
		t.Fatalf("associate: %v", err)
	}

	if err := env.svc.RemoveDelegation(ctx, "delegate", out.DelegationID); result.KindOf(err) != result.KindForbidden {
		t.Errorf("expected Forbidden, got %v", err)
	}
	if err := env.svc.RemoveDelegation(ctx, "owner", out.DelegationID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.repo.items) != 0 || len(env.grants.items) != 0 {
		t.Error("expected invitation and grant removed")
	}
}

func TestExpireDelegations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	pending := env.create(t, "2024-06-20")
	accepted := env.create(t, "2024-06-20")
	env.create(t, "")
	if _, err := env.svc.AssociateDelegation(ctx, "delegate", accepted.DelegationID, accepted.SharingCode, testNow); err != nil {
		t.Fatalf("associate: %v", err)
	}

	sweeper := NewSweeper(env.svc, zerolog.Nop())
	sweeper.now = func() time.Time { return time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC) }
	report, err := sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Invitations != 1 || report.Grants != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if env.repo.items[pending.DelegationID].Status != StatusExpired {
		t.Error("expected pending invitation expired")
	}
}

func TestSweeper_StopsWithContext(t *testing.T) {
	env := newTestEnv()
	ctx, cancel := context.WithCancel(context.Background())
	done := NewSweeper(env.svc, zerolog.Nop()).Start(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

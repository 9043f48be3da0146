package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

type stubAuth struct {
	mu       sync.Mutex
	signInFn func(ctx context.Context, email, secret string) (*ports.Principal, error)
	signOut  error
	listener func(*ports.Principal)
}

func (a *stubAuth) SignIn(ctx context.Context, email, secret string) (*ports.Principal, error) {
	return a.signInFn(ctx, email, secret)
}

func (a *stubAuth) SignOut(ctx context.Context) error { return a.signOut }

func (a *stubAuth) OnStateChanged(fn func(*ports.Principal)) func() {
	a.mu.Lock()
	a.listener = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		a.listener = nil
		a.mu.Unlock()
	}
}

// fire simulates the backend pushing a principal-changed event.
func (a *stubAuth) fire(p *ports.Principal) {
	a.mu.Lock()
	fn := a.listener
	a.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

type stubRoles struct {
	mu          sync.Mutex
	findErrs    []error
	findRole    domain.Role
	findCalls   int
	createErr   error
	createCalls int
}

func (r *stubRoles) Find(ctx context.Context, principalID string) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.findCalls
	r.findCalls++
	if idx < len(r.findErrs) && r.findErrs[idx] != nil {
		return "", r.findErrs[idx]
	}
	return r.findRole, nil
}

func (r *stubRoles) CreateDefault(ctx context.Context, p ports.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	return r.createErr
}

func (r *stubRoles) calls() (find, create int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls, r.createCalls
}

func okSignIn(p ports.Principal) func(context.Context, string, string) (*ports.Principal, error) {
	return func(context.Context, string, string) (*ports.Principal, error) {
		cp := p
		return &cp, nil
	}
}

func newTestStore(auth ports.AuthBackend, roles *stubRoles) (*Store, *[]time.Duration) {
	s := NewStore(auth, roles, zerolog.Nop())
	var delays []time.Duration
	s.SetSleeper(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})
	return s, &delays
}

var alice = ports.Principal{ID: "u1", Email: "alice@example.com"}

func TestSignIn_ResolvesRole(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findRole: domain.RoleManager}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", snap.State)
	}
	if snap.Role != domain.RoleManager {
		t.Fatalf("role = %s, want MANAGER", snap.Role)
	}
	if snap.Loading || snap.Err != "" || snap.Offline {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSignIn_BadCredentialsNotRetried(t *testing.T) {
	calls := 0
	auth := &stubAuth{signInFn: func(context.Context, string, string) (*ports.Principal, error) {
		calls++
		return nil, fault.New(fault.Unauthenticated, domain.ErrInvalidCredentials)
	}}
	s, _ := newTestStore(auth, &stubRoles{})

	err := s.SignIn(context.Background(), alice.Email, "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("sign-in attempted %d times, want 1", calls)
	}

	snap := s.Snapshot()
	if snap.State == StateAuthenticated {
		t.Fatal("session must not become authenticated on failed sign-in")
	}
	if snap.Err != fault.Message(fault.Unauthenticated) {
		t.Fatalf("error overlay = %q", snap.Err)
	}
}

func TestSignIn_NetworkErrorMessage(t *testing.T) {
	auth := &stubAuth{signInFn: func(context.Context, string, string) (*ports.Principal, error) {
		return nil, fault.New(fault.NetworkUnavailable, errors.New("dial tcp: timeout"))
	}}
	s, _ := newTestStore(auth, &stubRoles{})

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err == nil {
		t.Fatal("expected error")
	}
	if got := s.Snapshot().Err; got != "Network error. Please check your connection." {
		t.Fatalf("error overlay = %q", got)
	}
}

// An unavailable role backend must not delay sign-in: the session becomes
// authenticated as EMPLOYEE with the offline flag set, and no retry
// attempts are made.
func TestSignIn_RoleBackendUnavailable(t *testing.T) {
	down := fault.New(fault.NetworkUnavailable, errors.New("backend unreachable"))
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findErrs: []error{down, down, down}}
	s, delays := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want authenticated", snap.State)
	}
	if snap.Role != domain.RoleEmployee {
		t.Fatalf("role = %s, want EMPLOYEE", snap.Role)
	}
	if !snap.Offline {
		t.Fatal("offline flag not set")
	}
	if snap.Err != "" {
		t.Fatalf("no error overlay expected, got %q", snap.Err)
	}
	if find, _ := roles.calls(); find != 1 {
		t.Fatalf("role lookup attempted %d times, want 1", find)
	}
	if len(*delays) != 0 {
		t.Fatalf("unexpected retry delays: %v", *delays)
	}
}

func TestSignIn_RoleResolutionRetriesThenFails(t *testing.T) {
	boom := fault.New(fault.Unknown, errors.New("internal"))
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findErrs: []error{boom, boom, boom}}
	s, delays := newTestStore(auth, roles)

	err := s.SignIn(context.Background(), alice.Email, "secret")
	if err == nil {
		t.Fatal("expected error")
	}

	if find, _ := roles.calls(); find != 3 {
		t.Fatalf("role lookup attempted %d times, want 3", find)
	}
	if len(*delays) != 2 {
		t.Fatalf("got %d retry delays, want 2", len(*delays))
	}
	for _, d := range *delays {
		if d != roleRetryWait {
			t.Fatalf("retry delay = %v, want %v", d, roleRetryWait)
		}
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated || snap.Role != "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Err == "" {
		t.Fatal("error overlay expected")
	}
}

func TestSignIn_TransientErrorThenSuccess(t *testing.T) {
	boom := fault.New(fault.Unknown, errors.New("internal"))
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findErrs: []error{boom, nil}, findRole: domain.RoleAdmin}
	s, delays := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := s.Snapshot().Role; got != domain.RoleAdmin {
		t.Fatalf("role = %s, want ADMIN", got)
	}
	if len(*delays) != 1 {
		t.Fatalf("got %d retry delays, want 1", len(*delays))
	}
}

func TestSignIn_MissingRoleRecordCreatesDefault(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findErrs: []error{domain.ErrRoleNotFound}}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	snap := s.Snapshot()
	if snap.Role != domain.RoleEmployee {
		t.Fatalf("role = %s, want EMPLOYEE", snap.Role)
	}
	if _, create := roles.calls(); create != 1 {
		t.Fatalf("CreateDefault called %d times, want 1", create)
	}
}

func TestSignIn_DefaultRecordCreatedOncePerPrincipal(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findErrs: []error{domain.ErrRoleNotFound, domain.ErrRoleNotFound}}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("first SignIn: %v", err)
	}
	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("second SignIn: %v", err)
	}
	if _, create := roles.calls(); create != 1 {
		t.Fatalf("CreateDefault called %d times, want 1", create)
	}
}

func TestSignIn_InvalidStoredRoleFallsBackToEmployee(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findRole: domain.Role("SUPERUSER")}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := s.Snapshot().Role; got != domain.RoleEmployee {
		t.Fatalf("role = %s, want EMPLOYEE", got)
	}
}

func TestSignOut_ClearsSession(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findRole: domain.RoleAdmin}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := s.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateAnonymous || snap.Principal != nil || snap.Role != "" {
		t.Fatalf("session not cleared: %+v", snap)
	}
}

func TestSignOut_FailureKeepsSession(t *testing.T) {
	auth := &stubAuth{
		signInFn: okSignIn(alice),
		signOut:  fault.New(fault.NetworkUnavailable, errors.New("backend unreachable")),
	}
	roles := &stubRoles{findRole: domain.RoleAdmin}
	s, _ := newTestStore(auth, roles)

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := s.SignOut(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated || snap.Role != domain.RoleAdmin {
		t.Fatalf("session must survive failed sign-out: %+v", snap)
	}
	if snap.Err == "" {
		t.Fatal("error overlay expected")
	}
}

func TestIsAdmin_DerivedFromRole(t *testing.T) {
	cases := []struct {
		role domain.Role
		want bool
	}{
		{domain.RoleAdmin, true},
		{domain.RoleManager, false},
		{domain.RoleEmployee, false},
		{"", false},
	}
	for _, tc := range cases {
		snap := Snapshot{Role: tc.role}
		if got := snap.IsAdmin(); got != tc.want {
			t.Errorf("IsAdmin with role %q = %v, want %v", tc.role, got, tc.want)
		}
	}
}

// pushingAuth publishes the principal to the auth-state stream
// synchronously from inside SignIn and SignOut, matching the production
// backend adapter.
type pushingAuth struct {
	mu        sync.Mutex
	principal ports.Principal
	listener  func(*ports.Principal)
}

func (a *pushingAuth) SignIn(ctx context.Context, email, secret string) (*ports.Principal, error) {
	cp := a.principal
	a.push(&cp)
	return &cp, nil
}

func (a *pushingAuth) SignOut(ctx context.Context) error {
	a.push(nil)
	return nil
}

func (a *pushingAuth) OnStateChanged(fn func(*ports.Principal)) func() {
	a.mu.Lock()
	a.listener = fn
	a.mu.Unlock()
	fn(nil)
	return func() {
		a.mu.Lock()
		a.listener = nil
		a.mu.Unlock()
	}
}

func (a *pushingAuth) push(p *ports.Principal) {
	a.mu.Lock()
	fn := a.listener
	a.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// With a backend that publishes synchronously during SignIn, the explicit
// sign-in call still owns role resolution: a failure that survives all
// retries reaches the caller instead of the stream path degrading it to
// EMPLOYEE behind the caller's back.
func TestSignIn_SynchronousPushKeepsResolutionFailure(t *testing.T) {
	boom := fault.New(fault.Unknown, errors.New("internal"))
	auth := &pushingAuth{principal: alice}
	roles := &stubRoles{findErrs: []error{boom, boom, boom}}
	s, _ := newTestStore(auth, roles)

	s.Start(context.Background())
	defer s.Close()

	err := s.SignIn(context.Background(), alice.Email, "secret")
	if err == nil {
		t.Fatal("resolution failure must reach the caller")
	}
	if !fault.Is(err, fault.Unknown) {
		t.Fatalf("err = %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated || snap.Role != "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Loading {
		t.Fatal("loading flag must clear when SignIn returns")
	}
	if snap.Err == "" {
		t.Fatal("error overlay expected")
	}
	if find, _ := roles.calls(); find != 3 {
		t.Fatalf("role lookup attempted %d times, want 3", find)
	}
}

func TestSignIn_SynchronousPushResolvesOnce(t *testing.T) {
	auth := &pushingAuth{principal: alice}
	roles := &stubRoles{findRole: domain.RoleManager}
	s, _ := newTestStore(auth, roles)

	s.Start(context.Background())
	defer s.Close()

	if err := s.SignIn(context.Background(), alice.Email, "secret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateAuthenticated || snap.Role != domain.RoleManager {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if find, _ := roles.calls(); find != 1 {
		t.Fatalf("role lookup attempted %d times, want 1", find)
	}
}

func TestStart_AuthStreamDrivesSession(t *testing.T) {
	auth := &stubAuth{signInFn: okSignIn(alice)}
	roles := &stubRoles{findRole: domain.RoleManager}
	s, _ := newTestStore(auth, roles)

	s.Start(context.Background())
	defer s.Close()

	if got := s.Snapshot().State; got != StateLoading {
		t.Fatalf("state after Start = %s, want loading", got)
	}

	auth.fire(&alice)
	waitFor(t, s, func(snap Snapshot) bool {
		return snap.State == StateAuthenticated && snap.Role == domain.RoleManager
	})

	auth.fire(nil)
	waitFor(t, s, func(snap Snapshot) bool {
		return snap.State == StateAnonymous && snap.Principal == nil
	})
}

func TestStart_Idempotent(t *testing.T) {
	subs := 0
	auth := &countingAuth{
		inner: &stubAuth{signInFn: okSignIn(alice)},
		count: &subs,
	}
	s := NewStore(auth, &stubRoles{}, zerolog.Nop())

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Close()

	if subs != 1 {
		t.Fatalf("backend subscribed %d times, want 1", subs)
	}
}

type countingAuth struct {
	inner *stubAuth
	count *int
}

func (c *countingAuth) SignIn(ctx context.Context, email, secret string) (*ports.Principal, error) {
	return c.inner.SignIn(ctx, email, secret)
}

func (c *countingAuth) SignOut(ctx context.Context) error { return c.inner.SignOut(ctx) }

func (c *countingAuth) OnStateChanged(fn func(*ports.Principal)) func() {
	*c.count++
	return c.inner.OnStateChanged(fn)
}

func TestSubscribe_NotifiedAndUnsubscribed(t *testing.T) {
	s, _ := newTestStore(&stubAuth{signInFn: okSignIn(alice)}, &stubRoles{})

	var mu sync.Mutex
	got := 0
	unsub := s.Subscribe(func(Snapshot) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	s.SetOffline()
	mu.Lock()
	after := got
	mu.Unlock()
	if after != 1 {
		t.Fatalf("subscriber called %d times, want 1", after)
	}

	unsub()
	s.SetOnline()
	mu.Lock()
	final := got
	mu.Unlock()
	if final != 1 {
		t.Fatalf("subscriber called after unsubscribe: %d", final)
	}
}

func TestConnectivityFlags(t *testing.T) {
	s, _ := newTestStore(&stubAuth{signInFn: okSignIn(alice)}, &stubRoles{})

	s.SetOffline()
	if !s.Snapshot().Offline {
		t.Fatal("offline flag not set")
	}
	s.SetOnline()
	if s.Snapshot().Offline {
		t.Fatal("offline flag not cleared")
	}

	s.SetError("something happened")
	if got := s.Snapshot().Err; got != "something happened" {
		t.Fatalf("error overlay = %q", got)
	}
	s.SetError("")
	if got := s.Snapshot().Err; got != "" {
		t.Fatalf("error overlay not cleared: %q", got)
	}
}

// waitFor polls the store until cond holds or the deadline passes. The
// push path resolves roles on a goroutine, so stream-driven tests need a
// small wait.
func waitFor(t *testing.T, s *Store, cond func(Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(s.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached, last snapshot: %+v", s.Snapshot())
}

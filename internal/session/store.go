// Package session holds the process-wide authentication state machine:
// the current principal, their resolved role, and the connectivity flag
// the UI renders. One Store is constructed at startup and injected into
// every consumer; there is no ambient global state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/staffdesk/ops-system/internal/api/metrics"
	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

// State is the lifecycle position of the session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

const (
	roleRetries   = 3
	roleRetryWait = time.Second
)

// Snapshot is a point-in-time copy of the session. The error overlay is
// orthogonal to the state: any state may carry a message.
type Snapshot struct {
	State     State
	Principal *ports.Principal
	Role      domain.Role
	Loading   bool
	Err       string
	Offline   bool
}

// IsAdmin reports whether the resolved role grants admin access. It is
// derived from Role on every call; nothing ever sets it independently.
func (s Snapshot) IsAdmin() bool {
	return s.Role.IsAdmin()
}

// Sleeper pauses between role resolution attempts. Tests inject one that
// records delays instead of sleeping.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Store owns the Session value for the process lifetime. All reads of
// role and offline state go through it.
type Store struct {
	auth  ports.AuthBackend
	roles ports.RoleRepository
	log   zerolog.Logger
	sleep Sleeper

	mu        sync.Mutex
	snap      Snapshot
	subs      map[int]func(Snapshot)
	nextSub   int
	unsubAuth func()
	signingIn int             // explicit SignIn calls in flight
	resolving map[string]bool // principals with a role resolution in flight
	created   map[string]bool // principals whose default role record was written
}

func NewStore(auth ports.AuthBackend, roles ports.RoleRepository, log zerolog.Logger) *Store {
	return &Store{
		auth:      auth,
		roles:     roles,
		log:       log,
		sleep:     defaultSleep,
		snap:      Snapshot{State: StateUninitialized},
		subs:      make(map[int]func(Snapshot)),
		resolving: make(map[string]bool),
		created:   make(map[string]bool),
	}
}

// SetSleeper replaces the retry pacing function. Intended for tests.
func (s *Store) SetSleeper(sleep Sleeper) { s.sleep = sleep }

// Start enters Loading and subscribes to the backend's auth-state stream,
// which remains the source of truth for "is there a signed-in principal"
// for the rest of the process lifetime. Calling Start more than once has
// no effect: at most one backend subscription exists per Store.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.unsubAuth != nil {
		s.mu.Unlock()
		return
	}
	s.snap.State = StateLoading
	s.snap.Loading = true
	// Placeholder so a concurrent Start cannot double-subscribe while we
	// register below.
	s.unsubAuth = func() {}
	s.mu.Unlock()
	s.notify()

	unsub := s.auth.OnStateChanged(func(p *ports.Principal) {
		s.handleAuthChange(ctx, p)
	})

	s.mu.Lock()
	s.unsubAuth = unsub
	s.mu.Unlock()
}

// Close cancels the auth-state subscription.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubAuth
	s.unsubAuth = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to be called with a snapshot after every session
// mutation. The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignIn authenticates against the backend and resolves the principal's
// role before marking the session authenticated. Sign-in itself is never
// retried; only role resolution is. On failure the translated message is
// stored as the error overlay and the error is returned to the caller.
func (s *Store) SignIn(ctx context.Context, email, secret string) error {
	// Claim the resolution for this login event before calling the
	// backend: backends may publish the principal to the auth-state
	// stream synchronously from inside SignIn, and the stream callback
	// must stand down so resolution failures reach this caller.
	s.mu.Lock()
	s.signingIn++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.signingIn--
		s.mu.Unlock()
	}()

	s.update(func(snap *Snapshot) {
		snap.Loading = true
		snap.Err = ""
	})

	principal, err := s.auth.SignIn(ctx, email, secret)
	if err != nil {
		code := fault.CodeOf(err)
		msg := fault.Message(code)
		if code == fault.NetworkUnavailable {
			msg = "Network error. Please check your connection."
		}
		metrics.SignInsTotal.WithLabelValues("error").Inc()
		s.update(func(snap *Snapshot) {
			snap.Loading = false
			snap.Err = msg
		})
		return fault.New(code, err)
	}

	// A concurrent SignIn for the same principal may already hold the
	// resolution; its outcome applies to both callers.
	if !s.beginResolve(principal.ID) {
		return nil
	}
	defer s.endResolve(principal.ID)

	role, offline, rerr := s.resolveRole(ctx, *principal)
	if rerr != nil {
		code := fault.CodeOf(rerr)
		s.update(func(snap *Snapshot) {
			snap.State = StateAuthenticated
			snap.Principal = principal
			snap.Role = ""
			snap.Loading = false
			snap.Err = fault.Message(code)
		})
		return fault.New(code, rerr)
	}

	result := "ok"
	if offline {
		result = "offline"
	}
	metrics.SignInsTotal.WithLabelValues(result).Inc()

	s.update(func(snap *Snapshot) {
		snap.State = StateAuthenticated
		snap.Principal = principal
		snap.Role = role
		snap.Loading = false
		snap.Err = ""
		snap.Offline = offline
	})
	return nil
}

// SignOut invokes backend sign-out. Success clears the session to
// Anonymous; failure leaves the session valid and surfaces the translated
// message as the error overlay.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		code := fault.CodeOf(err)
		s.update(func(snap *Snapshot) {
			snap.Loading = false
			snap.Err = fault.Message(code)
		})
		return fault.New(code, err)
	}

	s.update(func(snap *Snapshot) {
		snap.State = StateAnonymous
		snap.Principal = nil
		snap.Role = ""
		snap.Loading = false
		snap.Err = ""
	})
	return nil
}

// SetOnline clears the offline flag on a connectivity-restored event.
// The flag is informational: it never blocks operations by itself.
func (s *Store) SetOnline() {
	s.update(func(snap *Snapshot) { snap.Offline = false })
}

// SetOffline raises the offline flag on a connectivity-lost event.
func (s *Store) SetOffline() {
	s.update(func(snap *Snapshot) { snap.Offline = true })
}

// SetError sets or clears the error overlay.
func (s *Store) SetError(msg string) {
	s.update(func(snap *Snapshot) { snap.Err = msg })
}

// handleAuthChange reacts to the backend's push-based principal-changed
// stream. A nil principal clears the session to Anonymous; a non-nil one
// triggers role resolution unless an explicit SignIn call is in flight
// (that call owns the resolution for its login event, so its caller
// observes resolution failures) or a resolution for the same principal
// already runs.
func (s *Store) handleAuthChange(ctx context.Context, p *ports.Principal) {
	if p == nil {
		s.update(func(snap *Snapshot) {
			snap.State = StateAnonymous
			snap.Principal = nil
			snap.Role = ""
			snap.Loading = false
			snap.Err = ""
		})
		return
	}

	s.mu.Lock()
	explicit := s.signingIn > 0
	s.mu.Unlock()
	if explicit {
		return
	}

	if !s.beginResolve(p.ID) {
		return
	}
	go func() {
		defer s.endResolve(p.ID)

		role, offline, err := s.resolveRole(ctx, *p)
		if err != nil {
			// Never block the UI from the push path: degrade to the
			// default role the way an unavailable backend would.
			role = domain.RoleEmployee
			offline = false
		}
		s.update(func(snap *Snapshot) {
			snap.State = StateAuthenticated
			snap.Principal = p
			snap.Role = role
			snap.Loading = false
			snap.Offline = offline
			if offline {
				snap.Err = "Working offline"
			} else {
				snap.Err = ""
			}
		})
	}()
}

// resolveRole reads the principal's role record with up to roleRetries
// attempts spaced roleRetryWait apart. An unavailable backend stops the
// retry loop immediately and substitutes the default EMPLOYEE role with
// offline=true: keeping the app usable is prioritised over displaying the
// correct role. Any other error, after exhausting retries, propagates as
// a resolution failure for the caller to handle.
func (s *Store) resolveRole(ctx context.Context, p ports.Principal) (domain.Role, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= roleRetries; attempt++ {
		role, err := s.readOrCreate(ctx, p)
		if err == nil {
			return role, false, nil
		}
		if fault.Is(err, fault.NetworkUnavailable) {
			s.log.Warn().Str("principal", p.ID).Msg("role record unavailable, continuing offline as employee")
			return domain.RoleEmployee, true, nil
		}

		lastErr = err
		if attempt < roleRetries {
			if serr := s.sleep(ctx, roleRetryWait); serr != nil {
				break
			}
		}
	}

	s.log.Error().Err(lastErr).Str("principal", p.ID).Msg("role resolution failed")
	return "", false, lastErr
}

// readOrCreate resolves the principal's role record, creating the default
// EMPLOYEE record when none exists. At most one creation is attempted per
// principal per process, which keeps the creation side effect out of
// subsequent reads.
func (s *Store) readOrCreate(ctx context.Context, p ports.Principal) (domain.Role, error) {
	role, err := s.roles.Find(ctx, p.ID)
	if err == nil {
		if !role.Valid() {
			return domain.RoleEmployee, nil
		}
		return role, nil
	}
	if !errors.Is(err, domain.ErrRoleNotFound) {
		return "", err
	}

	s.mu.Lock()
	alreadyCreated := s.created[p.ID]
	s.created[p.ID] = true
	s.mu.Unlock()

	if !alreadyCreated {
		if cerr := s.roles.CreateDefault(ctx, p); cerr != nil {
			s.log.Warn().Err(cerr).Str("principal", p.ID).Msg("failed to create default role record")
		}
	}
	return domain.RoleEmployee, nil
}

func (s *Store) beginResolve(principalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolving[principalID] {
		return false
	}
	s.resolving[principalID] = true
	return true
}

func (s *Store) endResolve(principalID string) {
	s.mu.Lock()
	delete(s.resolving, principalID)
	s.mu.Unlock()
}

// update applies a mutation under the lock and notifies subscribers with
// the resulting snapshot.
func (s *Store) update(mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snap
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

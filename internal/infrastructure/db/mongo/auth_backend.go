package mongo

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/fault"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

// AuthBackend implements ports.AuthBackend over the users collection. It
// verifies credentials with bcrypt and pushes principal-changed events to
// subscribers, standing in for the hosted auth service the client was
// originally built against.
type AuthBackend struct {
	users *UserRepository

	mu      sync.Mutex
	current *ports.Principal
	subs    map[int]func(*ports.Principal)
	nextSub int
}

func NewAuthBackend(users *UserRepository) *AuthBackend {
	return &AuthBackend{
		users: users,
		subs:  make(map[int]func(*ports.Principal)),
	}
}

// SignIn verifies the credentials and publishes the new principal to all
// state-change subscribers. Transport failures surface as
// fault.NetworkUnavailable; bad credentials as fault.Unauthenticated.
func (b *AuthBackend) SignIn(ctx context.Context, email, secret string) (*ports.Principal, error) {
	user, err := b.users.FindByEmail(ctx, email)
	if err != nil {
		if code := fault.CodeOf(err); code == fault.NetworkUnavailable {
			return nil, err
		}
		return nil, fault.New(fault.Unauthenticated, domain.ErrInvalidCredentials)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)) != nil {
		return nil, fault.New(fault.Unauthenticated, domain.ErrInvalidCredentials)
	}

	p := &ports.Principal{ID: user.ID, Email: user.Email}
	b.setCurrent(p)
	return p, nil
}

// SignOut clears the current principal and notifies subscribers.
func (b *AuthBackend) SignOut(ctx context.Context) error {
	b.setCurrent(nil)
	return nil
}

// OnStateChanged registers fn for principal-changed events. The callback
// fires immediately with the current principal so late subscribers see
// the present state, then on every subsequent change.
func (b *AuthBackend) OnStateChanged(fn func(*ports.Principal)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	current := b.current
	b.mu.Unlock()

	fn(current)

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *AuthBackend) setCurrent(p *ports.Principal) {
	b.mu.Lock()
	b.current = p
	fns := make([]func(*ports.Principal), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

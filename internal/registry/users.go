// Package registry contains the process-wide identity and connection
// registries shared by every connection-handling goroutine.
package registry

import (
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
)

// User binds a claimed display name to the connection id that owns it. The
// binding survives disconnects so the owner can reclaim it on reconnection;
// ConnectionID then holds the last known id.
type User struct {
	Name         string
	ConnectionID int
}

// UserRegistry is the identity registry. Names are compared case-insensitively
// using Unicode case folding. A single lock spans every operation, including
// the whole read-then-write of the suggestion algorithm, so two racing
// connections can never claim or be suggested the same name.
type UserRegistry struct {
	mu sync.Mutex
	// users is keyed by case-folded name. Entries never expire; identities
	// are only removed by explicit eviction.
	users  *gocache.Cache
	folder cases.Caser
	// suggested remembers every alternate name this registry has ever handed
	// out. The set is never pruned, so a suggestion stays reserved even if
	// its base name is later freed.
	suggested map[string]struct{}
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users:     gocache.New(gocache.NoExpiration, 0),
		folder:    cases.Fold(),
		suggested: make(map[string]struct{}),
	}
}

func (r *UserRegistry) fold(name string) string {
	return r.folder.String(name)
}

// Lookup returns the user registered under name, matched case-insensitively.
func (r *UserRegistry) Lookup(name string) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(name)
}

func (r *UserRegistry) lookupLocked(name string) (*User, bool) {
	v, ok := r.users.Get(r.fold(name))
	if !ok {
		return nil, false
	}
	return v.(*User), true
}

// Contains reports whether any user is registered under name, matched
// case-insensitively.
func (r *UserRegistry) Contains(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Register inserts the user, overwriting any existing binding for the same
// folded name.
func (r *UserRegistry) Register(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users.Set(r.fold(u.Name), u, gocache.NoExpiration)
}

// Unregister evicts the binding for name, if any.
func (r *UserRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users.Delete(r.fold(name))
}

// Rebind points an existing identity at a new connection id, returning false
// if the name is unknown.
func (r *UserRegistry) Rebind(name string, connID int) (*User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.lookupLocked(name)
	if !ok {
		return nil, false
	}
	u.ConnectionID = connID
	return u, true
}

// Names returns the display names of every registered user.
func (r *UserRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

func (r *UserRegistry) namesLocked() []string {
	items := r.users.Items()
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Object.(*User).Name)
	}
	return names
}

// SuggestAlternate picks a free variant of the requested name by appending
// .1, .2, ... until the result collides with neither a registered name nor
// any previously handed-out suggestion. The winning suggestion is recorded
// so it can never be offered twice. The returned slice is the snapshot of
// currently registered names taken inside the same critical section.
func (r *UserRegistry) SuggestAlternate(requested string) (string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered := r.namesLocked()

	unavailable := make(map[string]struct{}, len(registered)+len(r.suggested))
	for _, name := range registered {
		unavailable[r.fold(name)] = struct{}{}
	}
	for folded := range r.suggested {
		unavailable[folded] = struct{}{}
	}

	var suggestion string
	for i := 1; ; i++ {
		suggestion = fmt.Sprintf("%s.%d", requested, i)
		if _, taken := unavailable[r.fold(suggestion)]; !taken {
			break
		}
	}
	r.suggested[r.fold(suggestion)] = struct{}{}

	return suggestion, registered
}

package user

import "sync"

// User is the signed-in user. An empty ID means the guest.
type User struct {
	ID       string
	Name     string
	Password string
}

// Guest returns the anonymous user.
func Guest() User { return User{} }

// SignedIn reports whether the user is authenticated.
func (u User) SignedIn() bool { return u.ID != "" }

// Credentials are passed along with every authenticated store call.
type Credentials struct {
	UserID   string
	Password string
}

// Credentials returns the credentials of the user.
func (u User) Credentials() Credentials {
	return Credentials{UserID: u.ID, Password: u.Password}
}

// State holds the current user. It is safe for concurrent use.
type State struct {
	mu   sync.RWMutex
	user User
}

// NewState returns a state holding the guest.
func NewState() *State {
	return &State{}
}

func (s *State) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *State) Set(u User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Reset signs the user out.
func (s *State) Reset() {
	s.Set(Guest())
}

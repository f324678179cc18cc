package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"merot-portal/pkg/api"
	"os"
	"path/filepath"
	"sync"
)

type Namespace string

const (
	Customer Namespace = "customer"
	Employee Namespace = "employee"
)

var ErrUnknownNamespace = errors.New("unknown auth namespace")

func ParseNamespace(s string) (Namespace, error) {
	switch ns := Namespace(s); ns {
	case Customer, Employee:
		return ns, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownNamespace, s)
	}
}

// LoginRoute is where a user of the namespace is sent when their session ends.
func (ns Namespace) LoginRoute() string {
	if ns == Employee {
		return "/employee/login"
	}
	return "/login"
}

type Session struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Store persists the session of one namespace to its own file. It is safe for
// concurrent use since the notification poller reads the token in the background.
type Store struct {
	namespace Namespace
	path      string

	mu      sync.RWMutex
	session *Session
}

func NewStore(stateDir string, namespace Namespace) *Store {
	return &Store{
		namespace: namespace,
		path:      filepath.Join(stateDir, fmt.Sprintf("%s_session.json", namespace)),
	}
}

func (s *Store) Namespace() Namespace {
	return s.namespace
}

func (s *Store) LoginRoute() string {
	return s.namespace.LoginRoute()
}

// Load reads a previously saved session. A missing file means signed out. A
// corrupt file is discarded.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.set(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil || session.Token == "" {
		slog.Warn("discarding unreadable session file", "namespace", s.namespace, "path", s.path, "error", err)
		s.set(nil)
		return s.remove()
	}

	s.set(&session)
	return nil
}

func (s *Store) Login(token string, user api.User) error {
	session := &Session{Token: token, User: user}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("error creating state directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("error writing session file: %w", err)
	}

	s.set(session)
	slog.Info("signed in", "namespace", s.namespace, "user_id", user.Id)
	return nil
}

func (s *Store) Logout() error {
	s.set(nil)
	return s.remove()
}

func (s *Store) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing session file: %w", err)
	}
	return nil
}

func (s *Store) set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

func (s *Store) User() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return api.User{}, false
	}
	return s.session.User, true
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

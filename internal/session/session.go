// Package session owns the device-local identity and enforces that it stays
// a member of the trip roster while cloud-connected. Membership is a flat
// name list with no server-side authorization, so the only enforcement
// available is a hard eviction: when the local name disappears from the
// synchronized roster the whole local session is wiped and the app returns
// to its logged-out state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tripmate-app/tripmate/internal/localstore"
	"github.com/tripmate-app/tripmate/internal/models"
	"github.com/tripmate-app/tripmate/internal/syncer"
)

var (
	// ErrEmptyName marks a login attempt with a blank display name.
	ErrEmptyName = errors.New("display name must not be empty")

	// ErrNotLoggedIn marks an identity operation without a current session.
	ErrNotLoggedIn = errors.New("no active session")
)

// defaultGracePeriod is how long after the membership watch arms that roster
// snapshots are ignored for eviction purposes. It covers the window where the
// remote roster still holds only its initial placeholder state.
const defaultGracePeriod = 5 * time.Second

// Subsystem is the teardown command every stateful subsystem implements.
// Eviction is nothing more than invoking Teardown on all registered
// subsystems, in registration order.
type Subsystem interface {
	Teardown() error
}

// Option configures a Manager.
type Option func(*Manager)

// WithGracePeriod overrides the eviction grace window.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

// Manager owns the local user identity.
type Manager struct {
	log   *slog.Logger
	local localstore.Store
	coord *syncer.Coordinator
	grace time.Duration

	mu         sync.Mutex
	current    *models.UserSession
	armedAt    time.Time
	watching   bool
	evicted    bool
	subsystems []Subsystem
	onEvicted  func()
	stopWatch  func()
	graceTimer *time.Timer
}

// NewManager creates an identity manager bound to the local store and the
// sync coordinator. The coordinator is registered as the first teardown
// subsystem; additional subsystems can be added with Register.
func NewManager(local localstore.Store, coord *syncer.Coordinator, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		log:   log,
		local: local,
		coord: coord,
		grace: defaultGracePeriod,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.subsystems = append(m.subsystems, coord)
	return m
}

// Register adds a subsystem to the teardown set.
func (m *Manager) Register(sub Subsystem) {
	m.mu.Lock()
	m.subsystems = append(m.subsystems, sub)
	m.mu.Unlock()
}

// OnEvicted installs the callback invoked after a forced eviction completes.
// The callback is the UI's cue to warn the user and return to the login
// screen.
func (m *Manager) OnEvicted(fn func()) {
	m.mu.Lock()
	m.onEvicted = fn
	m.mu.Unlock()
}

// Current returns the active identity, if any.
func (m *Manager) Current() (models.UserSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return models.UserSession{}, false
	}
	return *m.current, true
}

// Restore loads a previously persisted identity at startup. It reports
// whether a session was found.
func (m *Manager) Restore() bool {
	var s models.UserSession
	ok, err := localstore.LoadJSON(m.local, localstore.KeySession, &s)
	if err != nil || !ok || s.Name == "" {
		return false
	}

	m.mu.Lock()
	m.current = &s
	m.evicted = false
	m.mu.Unlock()

	m.coord.SetLocalUser(s.Name)
	m.armWatch()
	return true
}

// Login assigns the identity and persists it immediately, so a crash right
// after login cannot lose it. It then reconciles the roster: the shipped
// placeholder entry is retired and the real name inserted.
func (m *Manager) Login(ctx context.Context, name string, avatar []byte) error {
	name = models.NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	s := models.UserSession{Name: name, Avatar: avatar}
	if err := m.persist(s); err != nil {
		return err
	}

	m.mu.Lock()
	m.current = &s
	m.evicted = false
	m.mu.Unlock()

	m.coord.SetLocalUser(name)

	if models.ContainsName(m.coord.Roster(), models.PlaceholderName) {
		if err := m.coord.RemoveRosterMember(ctx, models.PlaceholderName); err != nil {
			m.log.Warn("Failed to retire placeholder roster entry", "error", err)
		}
	}
	if err := m.coord.AddRosterMember(ctx, name); err != nil {
		m.log.Warn("Failed to add identity to roster", "name", name, "error", err)
	}

	m.armWatch()
	m.log.Info("Logged in", "name", name)
	return nil
}

// UpdateAvatar replaces the stored avatar and re-persists the identity. The
// roster holds names only, so nothing propagates to the shared state.
func (m *Manager) UpdateAvatar(avatar []byte) error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return ErrNotLoggedIn
	}
	s := *m.current
	s.Avatar = avatar
	m.current = &s
	m.mu.Unlock()

	return m.persist(s)
}

// persist writes the identity to the local store. If the write fails (the
// avatar can push the record past a storage quota) it retries once with the
// binary field omitted rather than losing the identity altogether.
func (m *Manager) persist(s models.UserSession) error {
	err := localstore.SaveJSON(m.local, localstore.KeySession, s)
	if err == nil {
		return nil
	}
	m.log.Warn("Failed to persist session, retrying without avatar", "error", err)
	return localstore.SaveJSON(m.local, localstore.KeySession, s.WithoutAvatar())
}

// armWatch starts (or re-arms) the membership watch. Roster snapshots within
// the grace window are ignored; after it elapses, any synchronized roster
// that no longer carries the local name triggers eviction.
func (m *Manager) armWatch() {
	m.mu.Lock()
	m.armedAt = time.Now()
	if m.watching {
		m.mu.Unlock()
		return
	}
	m.watching = true
	grace := m.grace
	m.mu.Unlock()

	cancel := m.coord.OnChange(m.checkMembership)
	timer := time.AfterFunc(grace+50*time.Millisecond, m.checkMembership)

	m.mu.Lock()
	m.stopWatch = cancel
	m.graceTimer = timer
	m.mu.Unlock()
}

func (m *Manager) checkMembership() {
	m.mu.Lock()
	if m.current == nil || m.evicted || time.Since(m.armedAt) < m.grace {
		m.mu.Unlock()
		return
	}
	name := m.current.Name
	m.mu.Unlock()

	if m.coord.State() != syncer.CloudConnected {
		return
	}

	roster := m.coord.Roster()
	if len(roster) == 0 || models.ContainsName(roster, name) {
		return
	}

	m.evict(name)
}

// evict performs the hard eviction: warn, tear down every registered
// subsystem, drop the identity and notify the UI. There is no soft-lock and
// no retry; the name list is the only authorization the system has.
func (m *Manager) evict(name string) {
	m.mu.Lock()
	if m.evicted {
		m.mu.Unlock()
		return
	}
	m.evicted = true
	m.current = nil
	m.watching = false
	subsystems := append([]Subsystem(nil), m.subsystems...)
	stop := m.stopWatch
	timer := m.graceTimer
	onEvicted := m.onEvicted
	m.stopWatch = nil
	m.graceTimer = nil
	m.mu.Unlock()

	m.log.Warn("Membership revoked, wiping local session", "name", name)

	if stop != nil {
		stop()
	}
	if timer != nil {
		timer.Stop()
	}
	for _, sub := range subsystems {
		if err := sub.Teardown(); err != nil {
			m.log.Error("Subsystem teardown failed", "error", err)
		}
	}

	if onEvicted != nil {
		onEvicted()
	}
}

// Package syncer implements the sync coordinator: the single authority over
// whether the session is cloud-connected, and the dispatcher that routes
// every itinerary, expense, roster and photo mutation to either the local
// persistent store or the remote trip store, never both.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tripmate-app/tripmate/internal/localstore"
	"github.com/tripmate-app/tripmate/internal/models"
	"github.com/tripmate-app/tripmate/internal/remote"
	"github.com/tripmate-app/tripmate/internal/settle"
)

// ErrEmptyName marks a roster operation carrying a blank display name.
var ErrEmptyName = errors.New("roster name must not be empty")

// defaultAnnounceDelay is how long a freshly connected session waits before
// announcing its identity into the remote roster. The delay lets the initial
// roster snapshot land first so the placeholder removal acts on real data.
const defaultAnnounceDelay = 2 * time.Second

// Dialer opens a remote trip store from a credential bundle.
type Dialer func(ctx context.Context, cfg remote.Config) (remote.TripStore, error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDialer overrides how remote configurations are turned into trip stores.
func WithDialer(d Dialer) Option {
	return func(c *Coordinator) { c.dial = d }
}

// WithAnnounceDelay overrides the identity announce delay.
func WithAnnounceDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.announceDelay = d }
}

// Coordinator owns the in-memory application state and the connectivity
// state machine. All methods are safe for concurrent use; mutations notify
// registered listeners so projections (settlement, views) recompute.
type Coordinator struct {
	log   *slog.Logger
	local localstore.Store
	dial  Dialer

	announceDelay time.Duration

	mu     sync.Mutex
	state  State
	remote remote.TripStore // non-nil iff state == CloudConnected

	users     []string
	expenses  []models.ExpenseItem
	itinerary []models.ItineraryItem
	photos    []models.Photo // remote photo records while connected

	// pendingExpenses holds optimistic local expenses awaiting their remote
	// echo, keyed by id. An entry is cleared the moment a snapshot containing
	// the id arrives; until then the optimistic copy stays visible even if a
	// snapshot races ahead of the write acknowledgement.
	pendingExpenses map[string]models.ExpenseItem

	unsubscribes []remote.UnsubscribeFunc
	announce     *time.Timer

	localName string

	listenerSeq int
	listeners   map[int]func()
}

// New creates a coordinator over the given local store. It starts in the
// Uninitialized state; call Start to bring it up.
func New(local localstore.Store, log *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		log:             log,
		local:           local,
		announceDelay:   defaultAnnounceDelay,
		pendingExpenses: make(map[string]models.ExpenseItem),
		listeners:       make(map[int]func()),
	}
	c.dial = func(ctx context.Context, cfg remote.Config) (remote.TripStore, error) {
		return remote.Dial(ctx, cfg, log)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the locally persisted state and attempts to connect, in
// priority order: the embedded configuration bundle, then a previously saved
// bundle. When neither yields a working store the session settles in
// LocalOnly. Start never fails; connection problems only downgrade.
func (c *Coordinator) Start(ctx context.Context, embedded *remote.Config) {
	if id, err := localstore.DeviceID(c.local); err == nil {
		c.log = c.log.With("device_id", id)
	}
	c.loadLocal()

	if embedded != nil && embedded.Usable() {
		if store, err := c.dial(ctx, *embedded); err == nil {
			c.connect(store)
			return
		} else {
			c.log.Warn("Embedded remote config rejected", "error", err)
		}
	}

	var saved remote.Config
	ok, err := localstore.LoadJSON(c.local, localstore.KeyRemoteConfig, &saved)
	if err != nil {
		c.log.Warn("Failed to read saved remote config", "error", err)
	}
	if ok && saved.Usable() {
		if store, err := c.dial(ctx, saved); err == nil {
			c.connect(store)
			return
		} else {
			c.log.Warn("Saved remote config rejected", "error", err)
		}
	}

	c.mu.Lock()
	c.state = LocalOnly
	c.mu.Unlock()
	c.log.Info("Session running local-only")
	c.notify()
}

// Refresh is the manual escape hatch: it attempts to promote a local-only
// session with the supplied configuration and persists the bundle on
// success. A session that is already connected keeps its store untouched.
func (c *Coordinator) Refresh(ctx context.Context, cfg remote.Config) error {
	c.mu.Lock()
	if c.state == CloudConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	store, err := c.dial(ctx, cfg)
	if err != nil {
		return err
	}

	if err := localstore.SaveJSON(c.local, localstore.KeyRemoteConfig, cfg); err != nil {
		c.log.Warn("Failed to persist remote config", "error", err)
	}
	c.connect(store)
	return nil
}

// State returns the current connectivity state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetLocalUser tells the coordinator which display name acts on this device.
// It is stamped onto saved photos and announced into the remote roster on
// connect.
func (c *Coordinator) SetLocalUser(name string) {
	c.mu.Lock()
	c.localName = name
	c.mu.Unlock()
}

// OnChange registers a listener invoked after every state change. The
// returned func removes the listener.
func (c *Coordinator) OnChange(fn func()) func() {
	c.mu.Lock()
	id := c.listenerSeq
	c.listenerSeq++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// loadLocal hydrates the in-memory state from the local store. Corrupt values
// read as absent and leave the built-in empty defaults in place.
func (c *Coordinator) loadLocal() {
	var (
		users     []string
		expenses  []models.ExpenseItem
		itinerary []models.ItineraryItem
	)
	if _, err := localstore.LoadJSON(c.local, localstore.KeyRoster, &users); err != nil {
		c.log.Warn("Failed to load roster", "error", err)
	}
	if _, err := localstore.LoadJSON(c.local, localstore.KeyExpenses, &expenses); err != nil {
		c.log.Warn("Failed to load expenses", "error", err)
	}
	if _, err := localstore.LoadJSON(c.local, localstore.KeyItinerary, &itinerary); err != nil {
		c.log.Warn("Failed to load itinerary", "error", err)
	}

	c.mu.Lock()
	c.users = users
	c.expenses = expenses
	c.itinerary = itinerary
	c.mu.Unlock()
}

// connect switches the session to the remote store and establishes the four
// collection subscriptions. Local persistence stops from here on; the
// subscriptions become the source of truth and whatever local-only state
// existed is superseded, not merged.
func (c *Coordinator) connect(store remote.TripStore) {
	c.mu.Lock()
	c.state = CloudConnected
	c.remote = store

	c.unsubscribes = append(c.unsubscribes,
		store.Subscribe(remote.CollectionUsers, c.applySnapshot),
		store.Subscribe(remote.CollectionExpenses, c.applySnapshot),
		store.Subscribe(remote.CollectionItinerary, c.applySnapshot),
	)
	if store.HasBlobStorage() {
		c.unsubscribes = append(c.unsubscribes,
			store.Subscribe(remote.CollectionPhotos, c.applySnapshot))
	}

	name := c.localName
	c.announce = time.AfterFunc(c.announceDelay, func() {
		c.announceIdentity(name)
	})
	c.mu.Unlock()

	c.log.Info("Session cloud-connected")
	c.notify()
}

// announceIdentity inserts the local identity into the remote roster and
// retires the shipped placeholder entry. Failures are logged and absorbed;
// the next device to connect repeats the reconciliation anyway.
func (c *Coordinator) announceIdentity(name string) {
	c.mu.Lock()
	store := c.remote
	c.mu.Unlock()
	if store == nil || name == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.ArrayRemove(ctx, string(remote.CollectionUsers), models.PlaceholderName); err != nil {
		c.log.Warn("Failed to retire placeholder identity", "error", err)
	}
	if err := store.ArrayUnion(ctx, string(remote.CollectionUsers), name); err != nil {
		c.log.Warn("Failed to announce identity", "name", name, "error", err)
	}
}

// applySnapshot folds one subscription delivery into the in-memory state.
func (c *Coordinator) applySnapshot(snap remote.Snapshot) {
	c.mu.Lock()
	switch snap.Collection {
	case remote.CollectionUsers:
		c.users = snap.Users

	case remote.CollectionExpenses:
		expenses := make([]models.ExpenseItem, 0, len(snap.Records))
		seen := make(map[string]bool, len(snap.Records))
		for _, raw := range snap.Records {
			var e models.ExpenseItem
			if err := json.Unmarshal(raw, &e); err != nil {
				c.log.Warn("Skipping undecodable expense record", "error", err)
				continue
			}
			expenses = append(expenses, e)
			seen[e.ID] = true
		}
		// Clear pending optimistic entries the snapshot confirmed; re-apply
		// the ones the snapshot has not caught up with yet.
		for id, item := range c.pendingExpenses {
			if seen[id] {
				delete(c.pendingExpenses, id)
			} else {
				expenses = append(expenses, item)
			}
		}
		c.expenses = expenses

	case remote.CollectionItinerary:
		items := make([]models.ItineraryItem, 0, len(snap.Records))
		for _, raw := range snap.Records {
			var it models.ItineraryItem
			if err := json.Unmarshal(raw, &it); err != nil {
				c.log.Warn("Skipping undecodable itinerary record", "error", err)
				continue
			}
			items = append(items, it)
		}
		c.itinerary = items

	case remote.CollectionPhotos:
		photos := make([]models.Photo, 0, len(snap.Records))
		for _, raw := range snap.Records {
			var p models.Photo
			if err := json.Unmarshal(raw, &p); err != nil {
				c.log.Warn("Skipping undecodable photo record", "error", err)
				continue
			}
			photos = append(photos, p)
		}
		c.photos = photos
	}
	c.mu.Unlock()
	c.notify()
}

// Roster returns the current participant roster.
func (c *Coordinator) Roster() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.users...)
}

// Expenses returns the expense list with the legacy-record migration applied.
// The migration is a read-time projection: stored records keep their original
// shape.
func (c *Coordinator) Expenses() []models.ExpenseItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ExpenseItem, len(c.expenses))
	for i, e := range c.expenses {
		out[i] = e.Migrated(c.users)
	}
	return out
}

// Itinerary returns the current itinerary items.
func (c *Coordinator) Itinerary() []models.ItineraryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ItineraryItem(nil), c.itinerary...)
}

// Settlement recomputes the settlement projection from the migrated expenses
// and the current roster.
func (c *Coordinator) Settlement() settle.Settlement {
	return settle.Compute(c.Expenses(), c.Roster())
}

// persistCollection writes a collection to the local store while local-only.
// Connected sessions suppress local persistence entirely, and an empty
// collection is never persisted: during startup races the in-memory state
// briefly holds the empty initial value, and writing that out would destroy
// saved data.
func (c *Coordinator) persistCollection(key string, length int, v any) {
	c.mu.Lock()
	connected := c.state == CloudConnected
	c.mu.Unlock()
	if connected || length == 0 {
		return
	}
	if err := localstore.SaveJSON(c.local, key, v); err != nil {
		c.log.Warn("Failed to persist collection", "key", key, "error", err)
	}
}

// AddExpense applies an optimistic local update unconditionally, so the
// settlement view reflects the expense with zero latency, and additionally
// pushes to the remote store when connected. A failed push is logged and
// absorbed: the optimistic copy remains the visible truth until the next
// remote snapshot.
func (c *Coordinator) AddExpense(ctx context.Context, item models.ExpenseItem) error {
	if item.ID == "" {
		item.ID = models.NewExpenseID(time.Now())
	}

	c.mu.Lock()
	if len(item.Beneficiaries(c.users)) == 0 {
		c.log.Warn("Expense has no valid split selection", "id", item.ID, "name", item.Name)
	}
	duplicate := false
	for _, e := range c.expenses {
		if e.ID == item.ID {
			duplicate = true
			break
		}
	}
	connected := c.state == CloudConnected
	var store remote.TripStore
	if !duplicate {
		c.expenses = append(c.expenses, item)
		if connected {
			c.pendingExpenses[item.ID] = item
			store = c.remote
		}
	}
	length := len(c.expenses)
	snapshot := append([]models.ExpenseItem(nil), c.expenses...)
	c.mu.Unlock()

	if duplicate {
		return nil
	}

	c.persistCollection(localstore.KeyExpenses, length, snapshot)
	c.notify()

	if store != nil {
		if err := store.SetRecord(ctx, remote.CollectionExpenses, item.ID, item); err != nil {
			c.log.Warn("Failed to push expense", "id", item.ID, "error", err)
		}
	}
	return nil
}

// DeleteExpense removes an expense by id from whichever backend is live.
func (c *Coordinator) DeleteExpense(ctx context.Context, id string) error {
	c.mu.Lock()
	filtered := c.expenses[:0:0]
	for _, e := range c.expenses {
		if e.ID != id {
			filtered = append(filtered, e)
		}
	}
	c.expenses = filtered
	delete(c.pendingExpenses, id)
	connected := c.state == CloudConnected
	store := c.remote
	length := len(c.expenses)
	snapshot := append([]models.ExpenseItem(nil), c.expenses...)
	c.mu.Unlock()

	if connected {
		if err := store.DeleteRecord(ctx, remote.CollectionExpenses, id); err != nil {
			c.log.Warn("Failed to delete remote expense", "id", id, "error", err)
		}
	} else {
		c.persistCollection(localstore.KeyExpenses, length, snapshot)
	}
	c.notify()
	return nil
}

// UpsertItinerary creates or updates an itinerary item. When connected the
// write goes straight to the remote store with no optimistic mirror. The
// view updates once the subscription echoes back, trading visible latency
// for the guarantee that local and remote never diverge.
func (c *Coordinator) UpsertItinerary(ctx context.Context, item models.ItineraryItem) error {
	if item.ID == "" {
		item.ID = models.NewItineraryID(time.Now())
	}
	if !item.Category.Valid() {
		item.Category = models.CategoryOther
	}

	c.mu.Lock()
	connected := c.state == CloudConnected
	store := c.remote
	if !connected {
		replaced := false
		for i, it := range c.itinerary {
			if it.ID == item.ID {
				c.itinerary[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			c.itinerary = append(c.itinerary, item)
		}
	}
	length := len(c.itinerary)
	snapshot := append([]models.ItineraryItem(nil), c.itinerary...)
	c.mu.Unlock()

	if connected {
		return store.SetRecord(ctx, remote.CollectionItinerary, item.ID, item)
	}
	c.persistCollection(localstore.KeyItinerary, length, snapshot)
	c.notify()
	return nil
}

// DeleteItinerary removes an itinerary item by id.
func (c *Coordinator) DeleteItinerary(ctx context.Context, id string) error {
	c.mu.Lock()
	connected := c.state == CloudConnected
	store := c.remote
	if !connected {
		filtered := c.itinerary[:0:0]
		for _, it := range c.itinerary {
			if it.ID != id {
				filtered = append(filtered, it)
			}
		}
		c.itinerary = filtered
	}
	length := len(c.itinerary)
	snapshot := append([]models.ItineraryItem(nil), c.itinerary...)
	c.mu.Unlock()

	if connected {
		return store.DeleteRecord(ctx, remote.CollectionItinerary, id)
	}
	c.persistCollection(localstore.KeyItinerary, length, snapshot)
	c.notify()
	return nil
}

// AddRosterMember adds a display name to the roster. Connected sessions use
// the remote set-add operation so concurrent devices cannot overwrite each
// other's whole array.
func (c *Coordinator) AddRosterMember(ctx context.Context, name string) error {
	name = models.NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	c.mu.Lock()
	connected := c.state == CloudConnected
	store := c.remote
	if !connected && !models.ContainsName(c.users, name) {
		c.users = append(c.users, name)
	}
	length := len(c.users)
	snapshot := append([]string(nil), c.users...)
	c.mu.Unlock()

	if connected {
		return store.ArrayUnion(ctx, string(remote.CollectionUsers), name)
	}
	c.persistCollection(localstore.KeyRoster, length, snapshot)
	c.notify()
	return nil
}

// RemoveRosterMember removes a display name from the roster. Historical
// expenses keep the name; settlement treats it as a ghost participant.
func (c *Coordinator) RemoveRosterMember(ctx context.Context, name string) error {
	name = models.NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	c.mu.Lock()
	connected := c.state == CloudConnected
	store := c.remote
	if !connected {
		filtered := c.users[:0:0]
		for _, n := range c.users {
			if n != name {
				filtered = append(filtered, n)
			}
		}
		c.users = filtered
	}
	length := len(c.users)
	snapshot := append([]string(nil), c.users...)
	c.mu.Unlock()

	if connected {
		return store.ArrayRemove(ctx, string(remote.CollectionUsers), name)
	}
	c.persistCollection(localstore.KeyRoster, length, snapshot)
	c.notify()
	return nil
}

// Photos returns the gallery. Ownership is per photo, not per session: a
// connected gallery is the live remote records plus any photos that took the
// local fallback path, so a save that could not reach the remote store stays
// visible.
func (c *Coordinator) Photos() ([]models.Photo, error) {
	c.mu.Lock()
	connected := c.state == CloudConnected
	snapshot := append([]models.Photo(nil), c.photos...)
	c.mu.Unlock()

	local, err := c.local.Photos()
	if err != nil {
		if !connected {
			return nil, err
		}
		c.log.Warn("Failed to read local photo records", "error", err)
		return snapshot, nil
	}
	if !connected {
		return local, nil
	}

	seen := make(map[string]bool, len(snapshot))
	for _, p := range snapshot {
		seen[p.ID] = true
	}
	for _, p := range local {
		if !seen[p.ID] {
			snapshot = append(snapshot, p)
		}
	}
	return snapshot, nil
}

// SavePhoto stores a photo. The acting user's display name is stamped as the
// author, overriding any caller-supplied value. Connected sessions with blob
// storage upload the binary first and record the assigned URL; on any remote
// failure the photo falls back to the local record store so it is never
// lost.
func (c *Coordinator) SavePhoto(ctx context.Context, photo models.Photo, data []byte) error {
	if photo.ID == "" {
		photo.ID = models.NewPhotoID(time.Now())
	}

	c.mu.Lock()
	photo.Author = c.localName
	connected := c.state == CloudConnected
	store := c.remote
	c.mu.Unlock()

	if connected && store.HasBlobStorage() {
		url, err := store.PutBlob(ctx, photo.ID, data)
		if err == nil {
			uploaded := photo
			uploaded.URL = url
			uploaded.Uploaded = true
			if err = store.SetRecord(ctx, remote.CollectionPhotos, uploaded.ID, uploaded); err == nil {
				return nil
			}
		}
		c.log.Warn("Remote photo save failed, keeping it locally", "id", photo.ID, "error", err)
	}

	photo.Uploaded = false
	if err := c.local.AddPhoto(photo); err != nil {
		return err
	}
	c.notify()
	return nil
}

// DeletePhoto removes a photo, mirroring SavePhoto's branch logic. Deleting a
// remote photo removes both the metadata record and the binary blob; a
// missing blob is not an error.
func (c *Coordinator) DeletePhoto(ctx context.Context, id string) error {
	c.mu.Lock()
	connected := c.state == CloudConnected
	store := c.remote
	uploaded := false
	for _, p := range c.photos {
		if p.ID == id {
			uploaded = p.Uploaded
			break
		}
	}
	c.mu.Unlock()

	if connected && uploaded {
		if err := store.DeleteRecord(ctx, remote.CollectionPhotos, id); err != nil {
			return err
		}
		if err := store.DeleteBlob(ctx, id); err != nil && !errors.Is(err, remote.ErrBlobNotFound) {
			c.log.Warn("Failed to delete photo blob", "id", id, "error", err)
		}
		return nil
	}

	if err := c.local.DeletePhoto(id); err != nil {
		return err
	}
	c.notify()
	return nil
}

// ExchangeRate returns the device-local display conversion rate, defaulting
// to 1 when unset or corrupt.
func (c *Coordinator) ExchangeRate() float64 {
	raw, ok, err := c.local.Get(localstore.KeyExchangeRate)
	if err != nil || !ok {
		return 1
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		return 1
	}
	return rate
}

// SetExchangeRate persists the display conversion rate. Rates are a device
// setting, not trip data, so they persist even while connected.
func (c *Coordinator) SetExchangeRate(rate float64) error {
	return c.local.Set(localstore.KeyExchangeRate, strconv.FormatFloat(rate, 'f', -1, 64))
}

// FlightInfo returns the stored flight details payload, if any. The payload
// is opaque to the sync layer; it is a device-local note, never shared.
func (c *Coordinator) FlightInfo() (string, bool) {
	raw, ok, err := c.local.Get(localstore.KeyFlightInfo)
	if err != nil {
		return "", false
	}
	return raw, ok
}

// SetFlightInfo stores the flight details payload verbatim.
func (c *Coordinator) SetFlightInfo(payload string) error {
	return c.local.Set(localstore.KeyFlightInfo, payload)
}

// HotelInfo returns the stored hotel details payload, if any.
func (c *Coordinator) HotelInfo() (string, bool) {
	raw, ok, err := c.local.Get(localstore.KeyHotelInfo)
	if err != nil {
		return "", false
	}
	return raw, ok
}

// SetHotelInfo stores the hotel details payload verbatim.
func (c *Coordinator) SetHotelInfo(payload string) error {
	return c.local.Set(localstore.KeyHotelInfo, payload)
}

// WeatherCache returns the cached forecast payload, if any.
func (c *Coordinator) WeatherCache() (string, bool) {
	raw, ok, err := c.local.Get(localstore.KeyWeatherCache)
	if err != nil {
		return "", false
	}
	return raw, ok
}

// SetWeatherCache stores the forecast payload verbatim.
func (c *Coordinator) SetWeatherCache(payload string) error {
	return c.local.Set(localstore.KeyWeatherCache, payload)
}

// Teardown implements the session teardown command: it cancels every
// subscription, wipes the local store and returns the coordinator to
// Uninitialized. A subscription left running after teardown is a defect, so
// all four cancel together.
func (c *Coordinator) Teardown() error {
	c.mu.Lock()
	if c.announce != nil {
		c.announce.Stop()
		c.announce = nil
	}
	unsubs := c.unsubscribes
	c.unsubscribes = nil
	c.remote = nil
	c.state = Uninitialized
	c.users = nil
	c.expenses = nil
	c.itinerary = nil
	c.photos = nil
	c.pendingExpenses = make(map[string]models.ExpenseItem)
	c.localName = ""
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	err := c.local.Clear()
	c.notify()
	return err
}

// Reset is the explicit user-facing reset action: a full teardown that
// restarts the session from scratch.
func (c *Coordinator) Reset() error {
	c.log.Info("Session reset requested")
	return c.Teardown()
}

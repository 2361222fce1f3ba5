package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tripmate-app/tripmate/internal/localstore"
	"github.com/tripmate-app/tripmate/internal/models"
	"github.com/tripmate-app/tripmate/internal/remote"
)

// fakeTripStore is an in-memory TripStore for driving the coordinator in
// tests. Snapshots are delivered by calling push explicitly.
type fakeTripStore struct {
	mu          sync.Mutex
	subs        map[remote.Collection]func(remote.Snapshot)
	cancelled   map[remote.Collection]bool
	records     map[string]map[string]json.RawMessage // collection -> id -> data
	roster      []string
	blobs       map[string][]byte
	hasBlobs    bool
	failPutBlob bool
}

var _ remote.TripStore = (*fakeTripStore)(nil)

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{
		subs:      make(map[remote.Collection]func(remote.Snapshot)),
		cancelled: make(map[remote.Collection]bool),
		records:   make(map[string]map[string]json.RawMessage),
		blobs:     make(map[string][]byte),
		hasBlobs:  true,
	}
}

func (f *fakeTripStore) Subscribe(collection remote.Collection, fn func(remote.Snapshot)) remote.UnsubscribeFunc {
	f.mu.Lock()
	f.subs[collection] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cancelled[collection] = true
		f.mu.Unlock()
	}
}

func (f *fakeTripStore) push(snap remote.Snapshot) {
	f.mu.Lock()
	fn := f.subs[snap.Collection]
	f.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (f *fakeTripStore) SetRecord(ctx context.Context, collection remote.Collection, id string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[string(collection)] == nil {
		f.records[string(collection)] = make(map[string]json.RawMessage)
	}
	f.records[string(collection)][id] = raw
	return nil
}

func (f *fakeTripStore) DeleteRecord(ctx context.Context, collection remote.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records[string(collection)], id)
	return nil
}

func (f *fakeTripStore) ArrayUnion(ctx context.Context, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.roster {
		if n == value {
			return nil
		}
	}
	f.roster = append(f.roster, value)
	return nil
}

func (f *fakeTripStore) ArrayRemove(ctx context.Context, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	filtered := f.roster[:0:0]
	for _, n := range f.roster {
		if n != value {
			filtered = append(filtered, n)
		}
	}
	f.roster = filtered
	return nil
}

func (f *fakeTripStore) HasBlobStorage() bool { return f.hasBlobs }

func (f *fakeTripStore) PutBlob(ctx context.Context, path string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPutBlob {
		return "", errors.New("blob storage unavailable")
	}
	f.blobs[path] = data
	return "https://blobs.test/" + path, nil
}

func (f *fakeTripStore) DeleteBlob(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[path]; !ok {
		return remote.ErrBlobNotFound
	}
	delete(f.blobs, path)
	return nil
}

func (f *fakeTripStore) record(collection, id string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.records[collection][id]
	return raw, ok
}

func newTestStore(t *testing.T) localstore.Store {
	t.Helper()
	s, err := localstore.New(filepath.Join(t.TempDir(), "tripmate.db"))
	if err != nil {
		t.Fatalf("localstore.New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newLocalOnly(t *testing.T, local localstore.Store) *Coordinator {
	t.Helper()
	c := New(local, slog.Default(), WithDialer(func(ctx context.Context, cfg remote.Config) (remote.TripStore, error) {
		return nil, errors.New("no network in tests")
	}))
	c.Start(context.Background(), nil)
	if c.State() != LocalOnly {
		t.Fatalf("state = %v, want LocalOnly", c.State())
	}
	return c
}

func newConnected(t *testing.T) (*Coordinator, *fakeTripStore) {
	t.Helper()
	store := newFakeTripStore()
	c := New(newTestStore(t), slog.Default(),
		WithDialer(func(ctx context.Context, cfg remote.Config) (remote.TripStore, error) {
			return store, nil
		}),
		WithAnnounceDelay(time.Hour), // keep the announce timer out of the way
	)
	c.Start(context.Background(), &remote.Config{
		ServerURL: "https://trip.test",
		TripID:    "osaka-2025",
		TripKey:   "open sesame now",
	})
	if c.State() != CloudConnected {
		t.Fatalf("state = %v, want CloudConnected", c.State())
	}
	return c, store
}

func TestStartLocalOnly(t *testing.T) {
	c := newLocalOnly(t, newTestStore(t))
	if got := c.Roster(); len(got) != 0 {
		t.Errorf("fresh roster = %v, want empty", got)
	}
}

func TestLocalOnlyPersistsAcrossRestart(t *testing.T) {
	local := newTestStore(t)
	ctx := context.Background()

	c := newLocalOnly(t, local)
	if err := c.AddRosterMember(ctx, "Alice"); err != nil {
		t.Fatalf("AddRosterMember failed: %v", err)
	}
	if err := c.AddExpense(ctx, models.ExpenseItem{
		Name: "Ramen", Cost: 24, Payer: "Alice", IsShared: true,
	}); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if err := c.UpsertItinerary(ctx, models.ItineraryItem{
		Title: "Castle", Date: "2025-11-02", Category: models.CategorySightseeing,
	}); err != nil {
		t.Fatalf("UpsertItinerary failed: %v", err)
	}

	// A second coordinator over the same store sees everything.
	c2 := newLocalOnly(t, local)
	if got := c2.Roster(); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("restored roster = %v, want [Alice]", got)
	}
	if got := c2.Expenses(); len(got) != 1 || got[0].Name != "Ramen" {
		t.Errorf("restored expenses = %+v, want the ramen expense", got)
	}
	if got := c2.Itinerary(); len(got) != 1 || got[0].Title != "Castle" {
		t.Errorf("restored itinerary = %+v, want the castle entry", got)
	}
}

func TestStartPrefersEmbeddedConfig(t *testing.T) {
	c, store := newConnected(t)
	defer c.Teardown()

	store.mu.Lock()
	n := len(store.subs)
	store.mu.Unlock()
	if n != 4 {
		t.Errorf("got %d subscriptions, want 4", n)
	}
}

func TestConnectedSupersedesLocalState(t *testing.T) {
	local := newTestStore(t)
	ctx := context.Background()

	c := newLocalOnly(t, local)
	if err := c.AddExpense(ctx, models.ExpenseItem{Name: "Old", Cost: 5, Payer: "Alice", IsShared: true}); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	c.Teardown()

	c2, store := newConnected(t)
	defer c2.Teardown()

	raw, _ := json.Marshal(models.ExpenseItem{ID: "1", Name: "Remote", Cost: 10, Payer: "Bob", IsShared: true})
	store.push(remote.Snapshot{
		Collection: remote.CollectionExpenses,
		Revision:   1,
		Records:    []json.RawMessage{raw},
	})

	got := c2.Expenses()
	if len(got) != 1 || got[0].Name != "Remote" {
		t.Errorf("expenses = %+v, want only the remote record, no merge", got)
	}
}

func TestRefreshPromotes(t *testing.T) {
	local := newTestStore(t)
	store := newFakeTripStore()
	dialed := 0
	c := New(local, slog.Default(),
		WithDialer(func(ctx context.Context, cfg remote.Config) (remote.TripStore, error) {
			dialed++
			if dialed == 1 {
				return nil, errors.New("offline")
			}
			return store, nil
		}),
		WithAnnounceDelay(time.Hour),
	)
	c.Start(context.Background(), nil)
	if c.State() != LocalOnly {
		t.Fatalf("state = %v, want LocalOnly", c.State())
	}

	cfg := remote.Config{ServerURL: "https://trip.test", TripID: "t", TripKey: "k"}
	if err := c.Refresh(context.Background(), cfg); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if c.State() != CloudConnected {
		t.Errorf("state = %v after Refresh, want CloudConnected", c.State())
	}

	// The bundle is persisted for the next cold start.
	var saved remote.Config
	ok, err := localstore.LoadJSON(local, localstore.KeyRemoteConfig, &saved)
	if err != nil || !ok {
		t.Fatalf("saved config missing: ok=%v err=%v", ok, err)
	}
	if saved != cfg {
		t.Errorf("saved config = %+v, want %+v", saved, cfg)
	}

	// Refresh on a connected session is a no-op.
	if err := c.Refresh(context.Background(), cfg); err != nil {
		t.Errorf("second Refresh failed: %v", err)
	}
	if dialed != 2 {
		t.Errorf("dialed %d times, want 2", dialed)
	}
}

func TestAddExpenseOptimistic(t *testing.T) {
	c, store := newConnected(t)
	defer c.Teardown()
	ctx := context.Background()

	item := models.ExpenseItem{ID: "e1", Name: "Sushi", Cost: 40, Payer: "Alice", IsShared: true}
	if err := c.AddExpense(ctx, item); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	// Visible immediately, before any snapshot arrives.
	if got := c.Expenses(); len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expenses = %+v, want the optimistic copy", got)
	}
	if _, ok := store.record("expenses", "e1"); !ok {
		t.Error("expense was not pushed to the remote store")
	}

	// A stale snapshot that has not caught up keeps the optimistic copy.
	store.push(remote.Snapshot{Collection: remote.CollectionExpenses, Revision: 1})
	if got := c.Expenses(); len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("expenses = %+v after stale snapshot, optimistic copy lost", got)
	}

	// The echo confirms the write and clears the pending entry.
	raw, _ := json.Marshal(item)
	store.push(remote.Snapshot{
		Collection: remote.CollectionExpenses,
		Revision:   2,
		Records:    []json.RawMessage{raw},
	})
	if got := c.Expenses(); len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("expenses = %+v after echo, want exactly one copy", got)
	}

	// Re-adding the same id is ignored.
	if err := c.AddExpense(ctx, item); err != nil {
		t.Fatalf("duplicate AddExpense failed: %v", err)
	}
	if got := c.Expenses(); len(got) != 1 {
		t.Errorf("got %d expenses after duplicate add, want 1", len(got))
	}
}

func TestItineraryRemoteOnlyWhenConnected(t *testing.T) {
	c, store := newConnected(t)
	defer c.Teardown()
	ctx := context.Background()

	item := models.ItineraryItem{ID: "i1", Title: "Museum", Date: "2025-11-03", Category: models.CategoryOther}
	if err := c.UpsertItinerary(ctx, item); err != nil {
		t.Fatalf("UpsertItinerary failed: %v", err)
	}

	// No optimistic mirror: the view stays empty until the echo.
	if got := c.Itinerary(); len(got) != 0 {
		t.Errorf("itinerary = %+v before echo, want empty", got)
	}
	if _, ok := store.record("itinerary", "i1"); !ok {
		t.Error("itinerary item was not pushed to the remote store")
	}

	raw, _ := json.Marshal(item)
	store.push(remote.Snapshot{
		Collection: remote.CollectionItinerary,
		Revision:   1,
		Records:    []json.RawMessage{raw},
	})
	if got := c.Itinerary(); len(got) != 1 || got[0].ID != "i1" {
		t.Errorf("itinerary = %+v after echo, want the museum entry", got)
	}
}

func TestEmptyCollectionNeverPersisted(t *testing.T) {
	local := newTestStore(t)
	ctx := context.Background()

	c := newLocalOnly(t, local)
	if err := c.AddRosterMember(ctx, "Alice"); err != nil {
		t.Fatalf("AddRosterMember failed: %v", err)
	}
	if err := c.RemoveRosterMember(ctx, "Alice"); err != nil {
		t.Fatalf("RemoveRosterMember failed: %v", err)
	}

	// The roster went back to empty in memory, but the stored value keeps
	// the last non-empty copy.
	var users []string
	ok, err := localstore.LoadJSON(local, localstore.KeyRoster, &users)
	if err != nil || !ok {
		t.Fatalf("stored roster missing: ok=%v err=%v", ok, err)
	}
	if len(users) != 1 || users[0] != "Alice" {
		t.Errorf("stored roster = %v, want the last non-empty value [Alice]", users)
	}
	if got := c.Roster(); len(got) != 0 {
		t.Errorf("in-memory roster = %v, want empty", got)
	}
}

func TestNoPersistenceWhileConnected(t *testing.T) {
	c, _ := newConnected(t)
	defer c.Teardown()
	ctx := context.Background()

	if err := c.AddExpense(ctx, models.ExpenseItem{ID: "e1", Name: "Sushi", Cost: 40, Payer: "Alice", IsShared: true}); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	var stored []models.ExpenseItem
	ok, err := localstore.LoadJSON(c.local, localstore.KeyExpenses, &stored)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if ok {
		t.Errorf("expenses were persisted locally while connected: %+v", stored)
	}
}

func TestSavePhotoRemoteAndFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads when connected", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()
		c.SetLocalUser("Alice")

		if err := c.SavePhoto(ctx, models.Photo{ID: "p1", Author: "Mallory"}, []byte{1, 2}); err != nil {
			t.Fatalf("SavePhoto failed: %v", err)
		}

		raw, ok := store.record("photos", "p1")
		if !ok {
			t.Fatal("photo record missing from remote store")
		}
		var p models.Photo
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("bad photo record: %v", err)
		}
		if p.Author != "Alice" {
			t.Errorf("author = %q, want the acting user Alice", p.Author)
		}
		if !p.Uploaded || p.URL == "" {
			t.Errorf("photo = %+v, want uploaded with assigned URL", p)
		}
	})

	t.Run("falls back to local on blob failure", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()
		c.SetLocalUser("Alice")
		store.failPutBlob = true

		if err := c.SavePhoto(ctx, models.Photo{ID: "p2"}, []byte{3, 4}); err != nil {
			t.Fatalf("SavePhoto fallback failed: %v", err)
		}

		// The fallback photo stays visible in the connected gallery.
		photos, err := c.Photos()
		if err != nil {
			t.Fatalf("Photos failed: %v", err)
		}
		if len(photos) != 1 || photos[0].ID != "p2" || photos[0].Uploaded {
			t.Errorf("gallery = %+v, want p2 marked not uploaded", photos)
		}
	})

	t.Run("merges remote records with local fallbacks", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()
		c.SetLocalUser("Alice")

		raw, _ := json.Marshal(models.Photo{ID: "r1", URL: "https://blobs.test/r1", Uploaded: true, Author: "Bob"})
		store.push(remote.Snapshot{
			Collection: remote.CollectionPhotos,
			Revision:   1,
			Records:    []json.RawMessage{raw},
		})

		store.failPutBlob = true
		if err := c.SavePhoto(ctx, models.Photo{ID: "p3"}, []byte{5}); err != nil {
			t.Fatalf("SavePhoto fallback failed: %v", err)
		}

		photos, err := c.Photos()
		if err != nil {
			t.Fatalf("Photos failed: %v", err)
		}
		if len(photos) != 2 {
			t.Fatalf("gallery = %+v, want the remote record plus the fallback", photos)
		}
		if photos[0].ID != "r1" || photos[1].ID != "p3" {
			t.Errorf("gallery order = [%s %s], want remote records first", photos[0].ID, photos[1].ID)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("connected delete clears the pending entry", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()

		item := models.ExpenseItem{ID: "e1", Name: "Sushi", Cost: 40, Payer: "Alice", IsShared: true}
		if err := c.AddExpense(ctx, item); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if err := c.DeleteExpense(ctx, "e1"); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}

		if _, ok := store.record("expenses", "e1"); ok {
			t.Error("remote record survived the delete")
		}
		if got := c.Expenses(); len(got) != 0 {
			t.Errorf("expenses = %+v after delete, want empty", got)
		}

		// An empty snapshot must not resurrect the deleted expense through
		// the optimistic pending map.
		store.push(remote.Snapshot{Collection: remote.CollectionExpenses, Revision: 5})
		if got := c.Expenses(); len(got) != 0 {
			t.Errorf("expenses = %+v after empty snapshot, deleted expense resurrected", got)
		}
	})

	t.Run("local-only delete", func(t *testing.T) {
		c := newLocalOnly(t, newTestStore(t))

		if err := c.AddExpense(ctx, models.ExpenseItem{ID: "e1", Name: "Ramen", Cost: 12, Payer: "Alice", IsShared: true}); err != nil {
			t.Fatalf("AddExpense failed: %v", err)
		}
		if err := c.DeleteExpense(ctx, "e1"); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if got := c.Expenses(); len(got) != 0 {
			t.Errorf("expenses = %+v after delete, want empty", got)
		}
	})
}

func TestDeleteItinerary(t *testing.T) {
	ctx := context.Background()

	t.Run("connected delete goes remote and waits for the echo", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()

		item := models.ItineraryItem{ID: "i1", Title: "Museum", Date: "2025-11-03", Category: models.CategoryOther}
		if err := c.UpsertItinerary(ctx, item); err != nil {
			t.Fatalf("UpsertItinerary failed: %v", err)
		}
		raw, _ := json.Marshal(item)
		store.push(remote.Snapshot{
			Collection: remote.CollectionItinerary,
			Revision:   1,
			Records:    []json.RawMessage{raw},
		})

		if err := c.DeleteItinerary(ctx, "i1"); err != nil {
			t.Fatalf("DeleteItinerary failed: %v", err)
		}
		if _, ok := store.record("itinerary", "i1"); ok {
			t.Error("remote record survived the delete")
		}

		// No local mirror: the item stays visible until the echo lands.
		if got := c.Itinerary(); len(got) != 1 {
			t.Errorf("itinerary = %+v before echo, want the stale entry", got)
		}
		store.push(remote.Snapshot{Collection: remote.CollectionItinerary, Revision: 2})
		if got := c.Itinerary(); len(got) != 0 {
			t.Errorf("itinerary = %+v after echo, want empty", got)
		}
	})

	t.Run("local-only delete", func(t *testing.T) {
		c := newLocalOnly(t, newTestStore(t))

		if err := c.UpsertItinerary(ctx, models.ItineraryItem{ID: "i1", Title: "Castle", Date: "2025-11-02", Category: models.CategorySightseeing}); err != nil {
			t.Fatalf("UpsertItinerary failed: %v", err)
		}
		if err := c.DeleteItinerary(ctx, "i1"); err != nil {
			t.Fatalf("DeleteItinerary failed: %v", err)
		}
		if got := c.Itinerary(); len(got) != 0 {
			t.Errorf("itinerary = %+v after delete, want empty", got)
		}
	})
}

func TestDeletePhoto(t *testing.T) {
	ctx := context.Background()

	t.Run("remote delete removes record and blob", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()
		c.SetLocalUser("Alice")

		if err := c.SavePhoto(ctx, models.Photo{ID: "p1"}, []byte{1, 2}); err != nil {
			t.Fatalf("SavePhoto failed: %v", err)
		}
		raw, _ := store.record("photos", "p1")
		store.push(remote.Snapshot{
			Collection: remote.CollectionPhotos,
			Revision:   1,
			Records:    []json.RawMessage{raw},
		})

		if err := c.DeletePhoto(ctx, "p1"); err != nil {
			t.Fatalf("DeletePhoto failed: %v", err)
		}
		if _, ok := store.record("photos", "p1"); ok {
			t.Error("photo record survived the delete")
		}
		store.mu.Lock()
		_, blobLeft := store.blobs["p1"]
		store.mu.Unlock()
		if blobLeft {
			t.Error("photo blob survived the delete")
		}
	})

	t.Run("missing blob is not fatal", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()

		photo := models.Photo{ID: "p2", URL: "https://blobs.test/p2", Uploaded: true, Author: "Bob"}
		raw, _ := json.Marshal(photo)
		store.push(remote.Snapshot{
			Collection: remote.CollectionPhotos,
			Revision:   1,
			Records:    []json.RawMessage{raw},
		})

		// The record exists but the blob was never stored on this fake.
		if err := store.SetRecord(ctx, remote.CollectionPhotos, "p2", photo); err != nil {
			t.Fatalf("SetRecord failed: %v", err)
		}
		if err := c.DeletePhoto(ctx, "p2"); err != nil {
			t.Fatalf("DeletePhoto with missing blob failed: %v", err)
		}
		if _, ok := store.record("photos", "p2"); ok {
			t.Error("photo record survived the delete")
		}
	})

	t.Run("local fallback photo deletes locally", func(t *testing.T) {
		c, store := newConnected(t)
		defer c.Teardown()
		c.SetLocalUser("Alice")
		store.failPutBlob = true

		if err := c.SavePhoto(ctx, models.Photo{ID: "p3"}, []byte{3}); err != nil {
			t.Fatalf("SavePhoto fallback failed: %v", err)
		}
		if err := c.DeletePhoto(ctx, "p3"); err != nil {
			t.Fatalf("DeletePhoto failed: %v", err)
		}
		photos, err := c.Photos()
		if err != nil {
			t.Fatalf("Photos failed: %v", err)
		}
		if len(photos) != 0 {
			t.Errorf("gallery = %+v after delete, want empty", photos)
		}
	})
}

func TestExchangeRate(t *testing.T) {
	c := newLocalOnly(t, newTestStore(t))

	if got := c.ExchangeRate(); got != 1 {
		t.Errorf("default rate = %v, want 1", got)
	}
	if err := c.SetExchangeRate(151.4); err != nil {
		t.Fatalf("SetExchangeRate failed: %v", err)
	}
	if got := c.ExchangeRate(); got != 151.4 {
		t.Errorf("rate = %v, want 151.4", got)
	}
}

func TestTeardown(t *testing.T) {
	c, store := newConnected(t)
	ctx := context.Background()

	if err := c.AddExpense(ctx, models.ExpenseItem{ID: "e1", Name: "Sushi", Cost: 40, Payer: "Alice", IsShared: true}); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	if err := c.Teardown(); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}

	if c.State() != Uninitialized {
		t.Errorf("state = %v after teardown, want Uninitialized", c.State())
	}
	if got := c.Expenses(); len(got) != 0 {
		t.Errorf("expenses = %+v after teardown, want empty", got)
	}

	store.mu.Lock()
	cancelled := len(store.cancelled)
	store.mu.Unlock()
	if cancelled != 4 {
		t.Errorf("%d subscriptions cancelled, want all 4", cancelled)
	}
}

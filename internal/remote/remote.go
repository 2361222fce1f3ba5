// Package remote defines the Remote Trip Store contract: a single logical
// trip document holding the shared roster plus the expenses, itinerary and
// photos collections, with live per-collection subscriptions and a binary
// blob store for photo uploads.
package remote

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names the four synchronized collections of a trip document.
type Collection string

const (
	CollectionUsers     Collection = "users"
	CollectionExpenses  Collection = "expenses"
	CollectionItinerary Collection = "itinerary"
	CollectionPhotos    Collection = "photos"
)

var (
	// ErrInvalidConfig marks a credential bundle that failed initialization.
	ErrInvalidConfig = errors.New("invalid remote trip store configuration")

	// ErrBlobNotFound marks a blob delete for a path the store does not hold.
	// Callers treat it as non-fatal when removing a photo.
	ErrBlobNotFound = errors.New("blob not found")
)

// Config is the opaque credential bundle for a remote trip store. Validity is
// established by attempting to dial, not by inspecting fields; the only
// structural requirement is a non-empty trip id and server address.
type Config struct {
	ServerURL string `json:"server_url"`
	TripID    string `json:"trip_id"`
	TripKey   string `json:"trip_key"`
}

// Usable reports whether the bundle carries the required fields. It says
// nothing about whether the server will accept the key.
func (c Config) Usable() bool {
	return c.ServerURL != "" && c.TripID != ""
}

// Snapshot is one delivery from a collection subscription. It always reflects
// the latest committed state of the collection; no ordering is guaranteed
// between a local write's acknowledgement and the corresponding echo.
type Snapshot struct {
	Collection Collection

	// Revision increases with every committed mutation of the collection.
	Revision int64

	// Users carries the roster for CollectionUsers.
	Users []string

	// Records carries the raw items of the other collections.
	Records []json.RawMessage
}

// UnsubscribeFunc stops the subscription that returned it. Idempotent.
type UnsubscribeFunc func()

// TripStore is the remote collaborator interface. All operations are
// asynchronous from the application's point of view; implementations must
// honor context cancellation.
type TripStore interface {
	// Subscribe delivers the collection's current snapshot and every later
	// change to fn until the returned UnsubscribeFunc is called. fn is invoked
	// from a single goroutine per subscription.
	Subscribe(collection Collection, fn func(Snapshot)) UnsubscribeFunc

	// SetRecord creates or replaces one record. Last write wins per record.
	SetRecord(ctx context.Context, collection Collection, id string, record any) error

	// DeleteRecord removes one record by id.
	DeleteRecord(ctx context.Context, collection Collection, id string) error

	// ArrayUnion adds value to the named array field of the trip document
	// without overwriting concurrent additions from other devices.
	ArrayUnion(ctx context.Context, field, value string) error

	// ArrayRemove removes value from the named array field.
	ArrayRemove(ctx context.Context, field, value string) error

	// HasBlobStorage reports whether binary uploads are available.
	HasBlobStorage() bool

	// PutBlob stores binary data under path and returns its public URL.
	PutBlob(ctx context.Context, path string, data []byte) (string, error)

	// DeleteBlob removes the blob at path. Returns ErrBlobNotFound when the
	// path does not exist.
	DeleteBlob(ctx context.Context, path string) error
}

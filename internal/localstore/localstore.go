// Package localstore provides the device-local persistence layer: a string
// key-value store for the trip's collections and settings, plus a record
// store for photo entries.
package localstore

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/tripmate-app/tripmate/internal/models"
)

// Logical keys for the KV store. These mirror the persisted layout of the
// original local storage, including legacy per-feature fields that are
// preserved (and wiped) alongside the live collections.
const (
	KeySession      = "user_session"
	KeyRoster       = "trip_users"
	KeyItinerary    = "itinerary"
	KeyExpenses     = "expenses"
	KeyExchangeRate = "exchange_rate"
	KeyWeatherCache = "weather_cache"
	KeyRemoteConfig = "remote_config"
	KeyFlightInfo   = "flight_info"
	KeyHotelInfo    = "hotel_info"
	KeyDeviceID     = "device_id"
)

// Store defines the local persistence operations. The abstraction keeps the
// sync layer independent of the backing engine and lets tests substitute an
// in-memory implementation.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Clear wipes every KV entry and every photo record.
	Clear() error

	// AddPhoto inserts or replaces a photo record.
	AddPhoto(photo models.Photo) error

	// Photos returns all photo records sorted by id descending, newest first.
	Photos() ([]models.Photo, error)

	// DeletePhoto removes a photo record by id.
	DeletePhoto(id string) error

	// Close releases any resources held by the store.
	Close() error
}

// LoadJSON reads key and unmarshals it into v. It returns false when the key
// is absent or the stored value does not parse; a corrupt value is treated
// the same as a missing one so callers fall back to their built-in default
// instead of failing.
func LoadJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

// SaveJSON marshals v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, string(raw))
}

// DeviceID returns the stable per-install identifier, generating and
// persisting one on first use. Wiping the store resets it, which is fine:
// a wiped install is a new device as far as the trip is concerned.
func DeviceID(s Store) (string, error) {
	id, ok, err := s.Get(KeyDeviceID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.Set(KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

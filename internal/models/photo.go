package models

import (
	"strconv"
	"time"
)

// Photo represents one gallery entry. A photo lives either in the local record
// store or in the remote trip store (metadata record plus binary blob), never
// both at once.
type Photo struct {
	// ID is the timestamp-derived identifier, used as the descending sort key.
	ID string `json:"id"`

	// URL is either a data URI (local photos) or the blob URL assigned by the
	// remote store (uploaded photos).
	URL string `json:"url"`

	// Date is the capture day in ISO form.
	Date string `json:"date"`

	// Uploaded is true when the binary lives in the remote blob store.
	Uploaded bool `json:"uploaded,omitempty"`

	// Author is the display name of the participant who saved the photo. Set
	// by the sync layer from the acting session identity; caller-supplied
	// values are overridden.
	Author string `json:"author,omitempty"`
}

// NewPhotoID returns a time-derived photo id.
func NewPhotoID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

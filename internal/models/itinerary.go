package models

import (
	"sort"
	"strconv"
	"time"
)

// Category classifies an itinerary item for display grouping.
type Category string

const (
	CategoryShopping    Category = "shopping"
	CategoryDining      Category = "dining"
	CategoryTransport   Category = "transport"
	CategorySightseeing Category = "sightseeing"
	CategoryOther       Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryShopping, CategoryDining, CategoryTransport, CategorySightseeing, CategoryOther:
		return true
	}
	return false
}

// ItineraryItem represents one scheduled activity on the trip plan.
type ItineraryItem struct {
	// ID is the unique identifier, derived from the creation time.
	ID string `json:"id"`

	// Date is the calendar day in ISO form (YYYY-MM-DD).
	Date string `json:"date"`

	// Time is the start time within the day (hh:mm).
	Time string `json:"time"`

	Title    string   `json:"title"`
	Location string   `json:"location"`
	Category Category `json:"category"`
	Notes    string   `json:"notes,omitempty"`

	// Completed marks the item as done. Toggled by the user, no other effect.
	Completed bool `json:"completed"`
}

// NewItineraryID returns a time-derived itinerary id.
func NewItineraryID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// GroupItineraryByDate buckets items by calendar day and orders each bucket by
// start time. The input is not modified.
func GroupItineraryByDate(items []ItineraryItem) map[string][]ItineraryItem {
	byDate := make(map[string][]ItineraryItem)
	for _, item := range items {
		byDate[item.Date] = append(byDate[item.Date], item)
	}
	for date := range byDate {
		day := byDate[date]
		sort.SliceStable(day, func(i, j int) bool {
			return day[i].Time < day[j].Time
		})
		byDate[date] = day
	}
	return byDate
}

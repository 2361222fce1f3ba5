package tripserver

import "encoding/json"

type tokenInput struct {
	Body tokenRequest
}

type tokenRequest struct {
	TripID  string `json:"trip_id" doc:"Trip identifier" minLength:"1"`
	TripKey string `json:"trip_key" doc:"Shared trip key" minLength:"1"`
}

type tokenOutput struct {
	Body tokenResponse
}

type tokenResponse struct {
	Token string `json:"token"`
}

type collectionInput struct {
	Collection string `path:"collection" enum:"users,expenses,itinerary,photos" doc:"Collection name"`
}

type collectionOutput struct {
	Body snapshotResponse
}

// snapshotResponse is the poll payload: the roster for the users
// collection, raw records for everything else, plus the revision cursor.
type snapshotResponse struct {
	Revision int64             `json:"revision"`
	Users    []string          `json:"users,omitempty"`
	Records  []json.RawMessage `json:"records,omitempty"`
}

type setRecordInput struct {
	Collection string `path:"collection" enum:"expenses,itinerary,photos" doc:"Collection name"`
	ID         string `path:"id" doc:"Record identifier"`
	RawBody    []byte `contentType:"application/json"`
}

type deleteRecordInput struct {
	Collection string `path:"collection" enum:"expenses,itinerary,photos" doc:"Collection name"`
	ID         string `path:"id" doc:"Record identifier"`
}

type memberInput struct {
	Body memberRequest
}

type memberRequest struct {
	Value string `json:"value" doc:"Roster member name" minLength:"1"`
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}

type healthOutput struct {
	Body healthResponse
}

type healthResponse struct {
	Status string `json:"status" example:"ok"`
}

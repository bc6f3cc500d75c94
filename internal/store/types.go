package store

import "encoding/json"

// RawShift represents a single shift record from the upstream API. Only
// the fields the core needs are named; the full record travels alongside
// in Raw and is stored opaquely for notification rendering.
type RawShift struct {
	ShiftUUID     string `json:"shift_uuid"`
	ActualClockIn *int64 `json:"actual_clock_in"` // unix seconds, absent until clocked in
	TimeFrom      string `json:"time_from"`
	TimeTo        string `json:"time_to"`
	UserName      string `json:"user_name"`
	VenueName     string `json:"venue_name"`

	Raw json.RawMessage `json:"-"`
}

// TokenLookup is the result of resolving a forward token. Valid is
// computed at lookup time against the token expiry; the caller must not
// act on an invalid token.
type TokenLookup struct {
	ShiftUUID     string
	RawData       json.RawMessage
	Valid         bool
	Forwarded     bool
	ForwardEmail  string
}

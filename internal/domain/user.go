// Package domain contains entity without logic, just meta-data
package domain

type UserID string

// Position is the opaque position/orientation payload a client streams on
// each tick. The server relays it without interpreting its shape.
type Position map[string]any

// User is the presence record for one live connection. Its ID mirrors the
// session id assigned by the transport on connect.
type User struct {
	ID   UserID   `json:"id"`
	Data Position `json:"data"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID) *User {
	return &User{ID: id, Data: Position{}}
}

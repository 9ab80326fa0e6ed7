// internal/domain/models/actor.go
package models

// Actor is the calling user as supplied by the identity gateway.
// The zero value is an anonymous caller.
type Actor struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

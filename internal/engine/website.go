package engine

import "net/url"

// Website is everything the engine needs to know about one target: where its
// endpoints are and how to read its answers.
type Website interface {
	Name() string
	Descriptor() Descriptor
	// LoginForm builds the login form body for the account.
	LoginForm(account Account) url.Values
	// IsMember reports whether a verification page belongs to a logged in user.
	IsMember(body []byte) bool
	// ActionQuery is the fixed query identifying the action.
	ActionQuery() url.Values
	// AlreadyActed reports whether a rejected action response says the action
	// was already performed. Sites without such a marker return false.
	AlreadyActed(body []byte) bool
	// Notice extracts the human readable message of a rejected action, or "".
	Notice(body []byte) string
}

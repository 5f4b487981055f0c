package engine

import (
	"fmt"
	"log/slog"
)

// Account is the pair of credentials a session logs in with. It is immutable
// and never renders its secret through fmt or slog.
type Account struct {
	identifier string
	secret     string
}

func NewAccount(identifier, secret string) Account {
	return Account{identifier: identifier, secret: secret}
}

func (a Account) Identifier() string {
	return a.identifier
}

func (a Account) Secret() string {
	return a.secret
}

func (a Account) String() string {
	return a.identifier
}

func (a Account) GoString() string {
	return fmt.Sprintf("engine.Account{identifier: %q}", a.identifier)
}

func (a Account) LogValue() slog.Value {
	return slog.StringValue(a.identifier)
}

// Package errs defines the error values inspection passes produce.
//
// Helpers return *InvariantError when the tree breaks an assumption the
// algorithms rely on. A pass boundary defers Recover, which turns any
// returned or panicked failure into a *CommonError with localized text, so
// a caller never sees a panic and can still reach the underlying invariant
// with errors.As.
package errs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jward/mlens/internal/settings"
)

// InvariantError reports a tree or table shape the algorithms cannot
// handle. It is a programming or parser error, never an absence of
// information.
type InvariantError struct {
	Message string
	Details map[string]any
}

// Invariant returns an *InvariantError. details may be nil.
func Invariant(msg string, details map[string]any) *InvariantError {
	return &InvariantError{Message: msg, Details: details}
}

func (e *InvariantError) Error() string {
	if len(e.Details) == 0 {
		return "invariant violation: " + e.Message
	}
	var b strings.Builder
	b.WriteString("invariant violation: ")
	b.WriteString(e.Message)
	b.WriteString(" (")
	for i, k := range slices.Sorted(maps.Keys(e.Details)) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
	}
	b.WriteString(")")
	return b.String()
}

// Unreachable panics with an *InvariantError. It is reserved for switches
// over closed enums that fell through; Recover turns the panic back into an
// error at the pass boundary.
func Unreachable(msg string, details map[string]any) {
	panic(Invariant(msg, details))
}

// Kind classifies a CommonError.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// CommonError is the only error type a pass boundary returns.
type CommonError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CommonError) Error() string { return e.Message }
func (e *CommonError) Unwrap() error { return e.Cause }

const (
	msgInvariant = "invariant violation: %s"
	msgUnknown   = "unknown error: %s"
)

func init() {
	_ = message.SetString(language.English, msgInvariant, "invariant violation: %s")
	_ = message.SetString(language.English, msgUnknown, "unknown error: %s")
	_ = message.SetString(language.German, msgInvariant, "Invariantenverletzung: %s")
	_ = message.SetString(language.German, msgUnknown, "unbekannter Fehler: %s")
	_ = message.SetString(language.Spanish, msgInvariant, "violación de invariante: %s")
	_ = message.SetString(language.Spanish, msgUnknown, "error desconocido: %s")
}

// Ensure converts err to a *CommonError whose message is rendered for the
// settings' locale. A *CommonError passes through unchanged; nil stays nil.
func Ensure(s settings.Settings, err error) error {
	if err == nil {
		return nil
	}
	var common *CommonError
	if errors.As(err, &common) {
		return err
	}

	p := message.NewPrinter(s.Language())
	var inv *InvariantError
	if errors.As(err, &inv) {
		s.Log().Debug("invariant violation", "message", inv.Message, "details", inv.Details)
		detail := inv.Message
		if msg := err.Error(); msg != inv.Error() {
			// Keep the wrapping context ("scope for node 4: ...").
			detail = strings.TrimSuffix(msg, inv.Error()) + inv.Message
		}
		return &CommonError{Kind: KindInvariant, Message: p.Sprintf(msgInvariant, detail), Cause: err}
	}
	return &CommonError{Kind: KindUnknown, Message: p.Sprintf(msgUnknown, err.Error()), Cause: err}
}

// Recover is deferred by pass boundaries with a pointer to the named error
// result. It converts a panic or a returned error into a *CommonError.
func Recover(s settings.Settings, errp *error) {
	if r := recover(); r != nil {
		var err error
		switch v := r.(type) {
		case error:
			err = v
		default:
			err = fmt.Errorf("%v", v)
		}
		s.Log().Debug("recovered panic at pass boundary", "panic", r)
		*errp = Ensure(s, err)
		return
	}
	*errp = Ensure(s, *errp)
}

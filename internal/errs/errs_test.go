package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/settings"
)

func TestInvariantErrorMessage(t *testing.T) {
	t.Parallel()
	err := Invariant("unknown childIndex", map[string]any{"parentKind": "LetExpression", "childIndex": 7})
	assert.Equal(t, "invariant violation: unknown childIndex (childIndex=7, parentKind=LetExpression)", err.Error())
	assert.Equal(t, "invariant violation: bare", Invariant("bare", nil).Error())
}

func TestEnsure(t *testing.T) {
	t.Parallel()
	s := settings.Default()

	assert.NoError(t, Ensure(s, nil))

	wrapped := fmt.Errorf("scope for node 4: %w", Invariant("missing parent", nil))
	err := Ensure(s, wrapped)
	var common *CommonError
	require.ErrorAs(t, err, &common)
	assert.Equal(t, KindInvariant, common.Kind)
	assert.Equal(t, "invariant violation: scope for node 4: missing parent", common.Message)

	var inv *InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "missing parent", inv.Message)

	// Already converted errors pass through.
	assert.Same(t, err, Ensure(s, err))

	other := Ensure(s, errors.New("boom"))
	require.ErrorAs(t, other, &common)
	assert.Equal(t, KindUnknown, common.Kind)
	assert.Equal(t, "unknown error: boom", common.Message)
}

func TestEnsureLocalized(t *testing.T) {
	t.Parallel()
	err := Ensure(settings.Settings{Locale: "de"}, Invariant("kaputt", nil))
	assert.Equal(t, "Invariantenverletzung: kaputt", err.Error())

	// Unparseable locales fall back to English.
	err = Ensure(settings.Settings{Locale: "!!"}, errors.New("x"))
	assert.Equal(t, "unknown error: x", err.Error())
}

func TestRecover(t *testing.T) {
	t.Parallel()
	s := settings.Default()

	run := func(f func() error) (err error) {
		defer Recover(s, &err)
		return f()
	}

	err := run(func() error {
		Unreachable("unhandled kind", map[string]any{"kind": 99})
		return nil
	})
	var common *CommonError
	require.ErrorAs(t, err, &common)
	assert.Equal(t, KindInvariant, common.Kind)

	err = run(func() error { panic("plain string") })
	require.ErrorAs(t, err, &common)
	assert.Equal(t, KindUnknown, common.Kind)

	assert.NoError(t, run(func() error { return nil }))

	err = run(func() error { return Invariant("returned", nil) })
	require.ErrorAs(t, err, &common)
	assert.Equal(t, KindInvariant, common.Kind)
}

// Package assert re-exports the testify-style helpers used by this
// project's heavier, multi-case tests (section splitter, preheater,
// context builder), matching the shape of the teacher's own internal
// test helper package so call sites read the same way.
package assert

import "github.com/stretchr/testify/require"

// TestingT is satisfied by *testing.T.
type TestingT = require.TestingT

func Equal(t TestingT, expected, actual any, msgAndArgs ...any) {
	require.Equal(t, expected, actual, msgAndArgs...)
}

func NoError(t TestingT, err error, msgAndArgs ...any) {
	require.NoError(t, err, msgAndArgs...)
}

func True(t TestingT, value bool, msgAndArgs ...any) {
	require.True(t, value, msgAndArgs...)
}

func False(t TestingT, value bool, msgAndArgs ...any) {
	require.False(t, value, msgAndArgs...)
}

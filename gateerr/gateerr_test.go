package gateerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(InvalidTimeFormat, "invalid time expression %q", "-5y")
	require.EqualError(t, err, `invalid time expression "-5y"`)
	require.Equal(t, InvalidTimeFormat, KindOf(err))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ConnectionFailure, cause, "probe failed")
	require.EqualError(t, err, "probe failed: connection refused")
	require.ErrorIs(t, err, cause)
	require.Equal(t, ConnectionFailure, KindOf(err))
}

func TestWithOp_PreservesKind(t *testing.T) {
	err := WithOp(New(NoDataFound, "no data found"), "last_point")
	require.EqualError(t, err, "last_point: no data found")
	require.Equal(t, NoDataFound, KindOf(err))
	require.True(t, IsKind(err, NoDataFound))
}

func TestWithOp_WrapsUntyped(t *testing.T) {
	cause := errors.New("boom")
	err := WithOp(cause, "query_timeseries")
	require.Equal(t, UnexpectedBackend, KindOf(err))
	require.Contains(t, err.Error(), "query_timeseries")
	require.ErrorIs(t, err, cause)
}

func TestWithOp_Nil(t *testing.T) {
	require.NoError(t, WithOp(nil, "any"))
}

func TestKindOf_Untyped(t *testing.T) {
	require.Equal(t, UnexpectedBackend, KindOf(errors.New("plain")))
}

func TestWithOp_SeesThroughWrapping(t *testing.T) {
	inner := New(InvalidTimeFormat, "bad start")
	wrapped := errors.Wrap(inner, "parsing request")
	err := WithOp(wrapped, "query_timeseries")
	require.Equal(t, InvalidTimeFormat, KindOf(err))
}

func TestIsKind_Nil(t *testing.T) {
	require.False(t, IsKind(nil, NoDataFound))
}

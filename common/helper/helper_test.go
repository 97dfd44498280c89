package helper

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenCompletionIDIsPerCall(t *testing.T) {
	a, b := GenCompletionID(), GenCompletionID()
	require.True(t, strings.HasPrefix(a, "chatcmpl-"))
	require.NotEqual(t, a, b)
}

func TestMessageWithRequestId(t *testing.T) {
	require.Equal(t, "boom", MessageWithRequestId("boom", ""))
	require.Equal(t, "boom (request id: 42)", MessageWithRequestId("boom", "42"))
}

func TestCalcElapsedTimeNeverZero(t *testing.T) {
	require.GreaterOrEqual(t, CalcElapsedTime(time.Now().Add(-time.Microsecond)), int64(1))
}

package goroutine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverableGoDeliversPanic(t *testing.T) {
	var trace []string

	ev := <-RecoverableGo(
		func() {
			trace = append(trace, "task")
			panic("sweep blew up")
		},
		WithBeforeStart(func() { trace = append(trace, "start") }),
		WithAfterEnded(func() { trace = append(trace, "end") }),
		WithAfterRecovered(func(p interface{}, stack []byte) {
			trace = append(trace, "recovered")
			require.NotEmpty(t, stack)
		}),
	)

	require.NotNil(t, ev)
	require.Equal(t, "sweep blew up", ev.Panic)
	require.Equal(t, []string{"start", "task", "end", "recovered"}, trace)
}

func TestRecoverableGoClosesOnNormalReturn(t *testing.T) {
	ran := false
	ev, ok := <-RecoverableGo(func() { ran = true })
	require.True(t, ran)
	require.Nil(t, ev)
	require.False(t, ok)
}

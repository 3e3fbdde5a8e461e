package hostlog

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Log_WritesTaggedLine(t *testing.T) {
	l := New()
	var buf strings.Builder
	l.out.SetOutput(&buf)
	l.out.SetFlags(0)

	l.Log(Info, "my-plugin", "hello")

	assert.Contains(t, buf.String(), "my-plugin")
	assert.Contains(t, buf.String(), "hello")
}

func TestLogger_Log_InvokesOnErrorForErrorAndCritical(t *testing.T) {
	l := New()
	l.out.SetOutput(io.Discard)

	var got []string
	l.OnError(func(plugin, message string) {
		got = append(got, plugin+": "+message)
	})

	l.Log(Info, "p", "not an error")
	l.Log(Error, "p", "boom")
	l.Log(Critical, "p", "kaboom")

	require.Len(t, got, 2)
	assert.Equal(t, "p: boom", got[0])
	assert.Equal(t, "p: kaboom", got[1])
}

func TestLogger_Log_EnforcesPerPluginPerSecondBudget(t *testing.T) {
	l := New()
	l.out.SetOutput(io.Discard)
	l.budget = 3

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.allow("noisy") {
			allowed++
		}
	}

	assert.Equal(t, 3, allowed)
}

func TestLogger_Log_BudgetIsPerPlugin(t *testing.T) {
	l := New()
	l.out.SetOutput(io.Discard)
	l.budget = 1

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
}

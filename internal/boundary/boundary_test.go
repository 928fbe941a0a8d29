package boundary

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
)

// flaky renders a list whose item panics while broken is set.
type flaky struct {
	broken atomic.Bool
	calls  atomic.Int32
}

func (f *flaky) component() Component {
	return Component{
		Name: "UserList",
		Render: func(s *Scope, w io.Writer) error {
			f.calls.Add(1)
			_, _ = io.WriteString(w, "<ul>")
			err := s.Child("UserRow", w, func(_ *Scope, w io.Writer) error {
				if f.broken.Load() {
					panic("row exploded")
				}
				_, err := io.WriteString(w, "<li>John Doe</li>")
				return err
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, "</ul>")
			return err
		},
	}
}

func TestBoundary_Healthy(t *testing.T) {
	b := New(Config{Name: "test"})
	f := &flaky{}

	var out bytes.Buffer
	require.NoError(t, b.Render(&out, f.component()))
	assert.Equal(t, "<ul><li>John Doe</li></ul>", out.String())
	assert.Equal(t, StateHealthy, b.State())
	assert.Nil(t, b.Fault())
}

func TestBoundary_FaultAndRetry(t *testing.T) {
	var faults []*Fault
	b := New(Config{
		Name: "test",
		Fallback: func(w io.Writer, f *Fault) error {
			_, err := fmt.Fprintf(w, "fallback: %s", f.Message())
			return err
		},
		OnError: func(f *Fault) { faults = append(faults, f) },
	})
	f := &flaky{}
	f.broken.Store(true)

	var out bytes.Buffer
	require.NoError(t, b.Render(&out, f.component()))

	assert.Equal(t, "fallback: row exploded", out.String(), "partial child output must not leak")
	assert.Equal(t, StateFaulted, b.State())
	require.Len(t, faults, 1)

	fault := b.Fault()
	assert.Same(t, faults[0], fault)
	assert.Equal(t, "test", fault.Boundary)
	assert.Equal(t, []string{"UserList", "UserRow"}, fault.Path)
	assert.Equal(t, "UserList > UserRow", fault.PathString())
	assert.True(t, fault.Panic)
	assert.Contains(t, fault.Stack, "goroutine")
	assert.NotEmpty(t, fault.ID)
	assert.False(t, fault.At.IsZero())

	t.Run("children are not rendered while faulted", func(t *testing.T) {
		f.broken.Store(false)
		calls := f.calls.Load()

		out.Reset()
		require.NoError(t, b.Render(&out, f.component()))
		assert.Equal(t, "fallback: row exploded", out.String())
		assert.Equal(t, calls, f.calls.Load())
		assert.Len(t, faults, 1, "callback fires once per fault")
	})

	t.Run("retry renders the fixed children", func(t *testing.T) {
		b.Retry()
		assert.Equal(t, StateHealthy, b.State())

		out.Reset()
		require.NoError(t, b.Render(&out, f.component()))
		assert.Equal(t, "<ul><li>John Doe</li></ul>", out.String())
		assert.Len(t, faults, 1)
	})

	t.Run("a new failure after retry is a new fault", func(t *testing.T) {
		f.broken.Store(true)
		out.Reset()
		require.NoError(t, b.Render(&out, f.component()))
		require.Len(t, faults, 2)
		assert.NotEqual(t, faults[0].ID, faults[1].ID)
	})
}

func TestBoundary_ReturnedError(t *testing.T) {
	errTemplate := errors.New("template: missing field")
	b := New(Config{})

	var out bytes.Buffer
	err := b.Render(&out, Component{
		Name: "Page",
		Render: func(s *Scope, w io.Writer) error {
			return s.Child("Header", w, func(s *Scope, w io.Writer) error {
				return s.Child("Title", w, func(*Scope, io.Writer) error {
					return errTemplate
				})
			})
		},
	})
	require.NoError(t, err)

	fault := b.Fault()
	require.NotNil(t, fault)
	assert.ErrorIs(t, fault.Err, errTemplate)
	assert.Equal(t, []string{"Page", "Header", "Title"}, fault.Path)
	assert.False(t, fault.Panic)
	assert.Empty(t, fault.Stack)
	assert.Equal(t, "Something went wrong: template: missing field\n", out.String())
}

func TestBoundary_PanicWithError(t *testing.T) {
	sentinel := errors.New("nil user")
	b := New(Config{})

	require.NoError(t, b.Render(io.Discard, Component{
		Name:   "Card",
		Render: func(*Scope, io.Writer) error { panic(sentinel) },
	}))
	assert.ErrorIs(t, b.Fault().Err, sentinel)
	assert.Equal(t, []string{"Card"}, b.Fault().Path)
}

func TestBoundary_CallbackPanicIsContained(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := New(Config{
		OnError: func(*Fault) { panic("reporter down") },
		Logger:  zap.New(core),
	})

	var out bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, b.Render(&out, Component{
			Name:   "X",
			Render: func(*Scope, io.Writer) error { return errors.New("bad") },
		}))
	})
	assert.Contains(t, out.String(), "bad")
	assert.Equal(t, StateFaulted, b.State())
	assert.Equal(t, 1, logs.FilterMessage("boundary error callback panicked").Len())
	assert.Equal(t, 1, logs.FilterMessage("boundary caught an error").Len())
}

func TestBoundary_ConcurrentFaultsReportOnce(t *testing.T) {
	var calls atomic.Int32
	b := New(Config{OnError: func(*Fault) { calls.Add(1) }})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Render(io.Discard, Component{
				Name:   "X",
				Render: func(*Scope, io.Writer) error { return errors.New("bad") },
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestBoundary_WriteErrorIsNotAFault(t *testing.T) {
	b := New(Config{})
	err := b.Render(failingWriter{}, Component{
		Name:   "X",
		Render: func(_ *Scope, w io.Writer) error { _, err := io.WriteString(w, "ok"); return err },
	})
	assert.Error(t, err)
	assert.Equal(t, StateHealthy, b.State())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestDefaultVariant(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	broken := Component{
		Name:   "Directory",
		Render: func(*Scope, io.Writer) error { return errors.New("<b>boom</b>") },
	}

	t.Run("production hides details", func(t *testing.T) {
		b := NewDefault(Options{Metrics: m, RetryURL: "/v1/views/abc/retry", ReloadURL: "/users"})
		var out bytes.Buffer
		require.NoError(t, b.Render(&out, broken))

		html := out.String()
		assert.Contains(t, html, "Something went wrong")
		assert.Contains(t, html, "An unexpected error occurred while rendering this component.")
		assert.Contains(t, html, "&lt;b&gt;boom&lt;/b&gt;")
		assert.Contains(t, html, `action="/v1/views/abc/retry"`)
		assert.Contains(t, html, "Try Again")
		assert.Contains(t, html, "Reload Page")
		assert.NotContains(t, html, "Error Details")
	})

	t.Run("dev mode shows path", func(t *testing.T) {
		b := NewDefault(Options{Metrics: m, DevMode: true})
		var out bytes.Buffer
		require.NoError(t, b.Render(&out, broken))
		assert.Contains(t, out.String(), "Error Details (Development Mode)")
		assert.Contains(t, out.String(), "in Directory")
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.BoundaryFaults.WithLabelValues(DefaultName)))
}

func TestUsersDataVariant(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := metrics.New(prometheus.NewRegistry())
	b := NewUsersData(Options{Logger: zap.New(core), Metrics: m, ReloadURL: "/users?page=2", HomeURL: "/"})

	var out bytes.Buffer
	require.NoError(t, b.Render(&out, Component{
		Name:   "UsersTable",
		Render: func(*Scope, io.Writer) error { panic("bad row") },
	}))

	html := out.String()
	for _, want := range []string{
		"Users Data Error",
		"We encountered an error while loading the users data.",
		"Network connectivity issues",
		"Server temporarily unavailable",
		"Data format changes",
		"Component rendering error",
		"Refresh Page",
		"Go Home",
		`href="/users?page=2"`,
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "bad row")

	entries := logs.FilterMessage("users data error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "bad row", fields["error"])
	assert.Equal(t, "UsersTable", fields["component_stack"])
	assert.True(t, strings.Contains(fields["stack"].(string), "goroutine"))
	assert.NotEmpty(t, fields["timestamp"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BoundaryFaults.WithLabelValues(UsersDataName)))
}

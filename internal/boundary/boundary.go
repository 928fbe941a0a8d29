package boundary

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State of a Boundary.
type State int

const (
	StateHealthy State = iota
	StateFaulted
)

func (s State) String() string {
	if s == StateFaulted {
		return "faulted"
	}
	return "healthy"
}

// Fault describes a captured render failure.
type Fault struct {
	ID       string
	Boundary string
	Err      error
	// Path names the components from the boundary root to the one that failed.
	Path []string
	// Stack is only set when the failure was a panic.
	Stack string
	Panic bool
	At    time.Time
}

// Message is the text shown to users.
func (f *Fault) Message() string {
	if f.Err == nil || f.Err.Error() == "" {
		return "Unknown error"
	}
	return f.Err.Error()
}

// PathString joins Path for display and logging.
func (f *Fault) PathString() string {
	return strings.Join(f.Path, " > ")
}

// FallbackFunc writes the view shown in place of faulted children.
type FallbackFunc func(w io.Writer, f *Fault) error

// Config holds the settings for a Boundary.
type Config struct {
	Name string
	// Fallback defaults to a plain message when nil.
	Fallback FallbackFunc
	// OnError is called once per fault. It is for observability only.
	OnError func(f *Fault)
	Logger  *zap.Logger
}

// Boundary isolates render failures of its children. It is safe for concurrent use.
type Boundary struct {
	name     string
	fallback FallbackFunc
	onError  func(*Fault)
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	fault *Fault
}

// New creates a healthy Boundary.
func New(cfg Config) *Boundary {
	name := cfg.Name
	if name == "" {
		name = "boundary"
	}
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = plainFallback
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Boundary{
		name:     name,
		fallback: fallback,
		onError:  cfg.OnError,
		logger:   logger,
		now:      time.Now,
	}
}

// Name returns the boundary name.
func (b *Boundary) Name() string {
	return b.name
}

// State returns the current state.
func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault != nil {
		return StateFaulted
	}
	return StateHealthy
}

// Fault returns the captured fault, or nil when healthy.
func (b *Boundary) Fault() *Fault {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fault
}

// Retry clears the captured fault so the next Render attempts the children again.
func (b *Boundary) Retry() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault != nil {
		b.logger.Info("boundary retry", zap.String("boundary", b.name), zap.String("fault_id", b.fault.ID))
	}
	b.fault = nil
}

// Render writes c to w, or the fallback when c fails or the boundary is already faulted.
// Output of a failed render is discarded. The returned error only reports a failure to
// write the fallback or the buffered output.
func (b *Boundary) Render(w io.Writer, c Component) error {
	if f := b.Fault(); f != nil {
		return b.fallback(w, f)
	}

	var buf bytes.Buffer
	root := &Scope{}
	err := root.Child(c.Name, &buf, c.Render)
	if err == nil {
		_, err = buf.WriteTo(w)
		return err
	}

	f, first := b.capture(err)
	if first {
		b.report(f)
	}
	return b.fallback(w, f)
}

// capture records err as the fault unless another render already faulted the boundary.
func (b *Boundary) capture(err error) (*Fault, bool) {
	f := &Fault{
		ID:       uuid.NewString(),
		Boundary: b.name,
		Err:      err,
		At:       b.now(),
	}
	var re *renderError
	if errors.As(err, &re) {
		f.Err = re.err
		f.Path = slices.Clone(re.path)
		f.Stack = string(re.stack)
		f.Panic = re.panicked
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fault != nil {
		return b.fault, false
	}
	b.fault = f
	return f, true
}

func (b *Boundary) report(f *Fault) {
	b.logger.Error("boundary caught an error",
		zap.String("boundary", f.Boundary),
		zap.String("fault_id", f.ID),
		zap.String("path", f.PathString()),
		zap.Bool("panic", f.Panic),
		zap.Error(f.Err),
	)

	if b.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("boundary error callback panicked",
				zap.String("boundary", f.Boundary),
				zap.String("fault_id", f.ID),
				zap.Any("panic", r),
			)
		}
	}()
	b.onError(f)
}

func plainFallback(w io.Writer, f *Fault) error {
	_, err := io.WriteString(w, "Something went wrong: "+f.Message()+"\n")
	return err
}

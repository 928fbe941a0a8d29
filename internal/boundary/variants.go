package boundary

import (
	"html/template"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/user-directory/internal/pkg/metrics"
)

const (
	DefaultName   = "default"
	UsersDataName = "users-data"
)

// Options configure the stock boundary variants.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// DevMode adds the stack and component path to the default fallback.
	DevMode bool
	// RetryURL receives a POST from "Try Again" and should clear the fault. When empty,
	// "Try Again" links to ReloadURL, which re-mounts the boundary.
	RetryURL string
	// ReloadURL is the target of "Reload Page" and "Refresh Page".
	ReloadURL string
	HomeURL   string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ReloadURL == "" {
		o.ReloadURL = "."
	}
	if o.HomeURL == "" {
		o.HomeURL = "/"
	}
	return o
}

var defaultFallbackTmpl = template.Must(template.New("default-fallback").Parse(`<div class="boundary boundary-default" role="alert">
  <h2 class="boundary-title">Something went wrong</h2>
  <p class="boundary-description">An unexpected error occurred while rendering this component.</p>
  <p class="boundary-error"><strong>Error:</strong> {{.Fault.Message}}</p>
  {{- if .Dev}}
  <details class="boundary-details">
    <summary>Error Details (Development Mode)</summary>
    <pre>{{if .Fault.Path}}in {{.Fault.PathString}}
{{end}}{{.Fault.Stack}}</pre>
  </details>
  {{- end}}
  <div class="boundary-actions">
    {{- if .RetryURL}}
    <form method="post" action="{{.RetryURL}}"><button type="submit">Try Again</button></form>
    {{- else}}
    <a class="button" href="{{.ReloadURL}}">Try Again</a>
    {{- end}}
    <a class="button button-outline" href="{{.ReloadURL}}">Reload Page</a>
  </div>
</div>
`))

var usersDataFallbackTmpl = template.Must(template.New("users-data-fallback").Parse(`<div class="boundary boundary-users" role="alert">
  <h2 class="boundary-title">Users Data Error</h2>
  <p class="boundary-description">We encountered an error while loading the users data. This might be due to a network issue or server problem.</p>
  <div class="boundary-causes">
    <p>Possible causes:</p>
    <ul>
      <li>Network connectivity issues</li>
      <li>Server temporarily unavailable</li>
      <li>Data format changes</li>
      <li>Component rendering error</li>
    </ul>
  </div>
  <div class="boundary-actions">
    <a class="button" href="{{.ReloadURL}}">Refresh Page</a>
    <a class="button button-outline" href="{{.HomeURL}}">Go Home</a>
  </div>
</div>
`))

type fallbackData struct {
	Fault     *Fault
	Dev       bool
	RetryURL  string
	ReloadURL string
	HomeURL   string
}

func templateFallback(tmpl *template.Template, o Options) FallbackFunc {
	return func(w io.Writer, f *Fault) error {
		return tmpl.Execute(w, fallbackData{
			Fault:     f,
			Dev:       o.DevMode,
			RetryURL:  o.RetryURL,
			ReloadURL: o.ReloadURL,
			HomeURL:   o.HomeURL,
		})
	}
}

// NewDefault returns the generic boundary: error message, optional development details,
// "Try Again" and "Reload Page".
func NewDefault(opts Options) *Boundary {
	o := opts.withDefaults()
	return New(Config{
		Name:     DefaultName,
		Fallback: templateFallback(defaultFallbackTmpl, o),
		OnError: func(f *Fault) {
			o.Metrics.IncBoundaryFault(f.Boundary)
		},
		Logger: o.Logger,
	})
}

// NewUsersData returns the boundary for the users directory. Its fallback lists likely
// causes instead of the raw error, which is logged with the component path and stack.
func NewUsersData(opts Options) *Boundary {
	o := opts.withDefaults()
	return New(Config{
		Name:     UsersDataName,
		Fallback: templateFallback(usersDataFallbackTmpl, o),
		OnError: func(f *Fault) {
			o.Metrics.IncBoundaryFault(f.Boundary)
			o.Logger.Error("users data error",
				zap.String("fault_id", f.ID),
				zap.String("error", f.Message()),
				zap.String("stack", f.Stack),
				zap.String("component_stack", f.PathString()),
				zap.String("timestamp", f.At.UTC().Format(time.RFC3339Nano)),
			)
		},
		Logger: o.Logger,
	})
}

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nekogravitycat/user-directory/internal/boundary"
)

// Renderer executes the embedded HTML templates.
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	fs        fs.FS
	logger    *zap.Logger
	devMode   bool
}

// RendererConfig holds configuration for the renderer.
type RendererConfig struct {
	// FS must contain a templates directory.
	FS     fs.FS
	Logger *zap.Logger
	// DevMode reparses templates on every render.
	DevMode bool
}

// NewRenderer parses all templates up front so a broken template fails at startup.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		fs:      cfg.FS,
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) load() error {
	tmpl := template.New("").Funcs(Funcs())

	err := fs.WalkDir(r.fs, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}

		content, err := fs.ReadFile(r.fs, p)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(p, "templates/")
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			r.logger.Error("failed to parse template", zap.String("path", p), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}

// Render executes the named template into w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if r.devMode {
		if err := r.load(); err != nil {
			return err
		}
	}

	r.mu.RLock()
	tmpl := r.templates
	r.mu.RUnlock()

	return tmpl.ExecuteTemplate(w, name, data)
}

// Page is the data of the outer layout.
type Page struct {
	Title       string
	Description string
	Keywords    string
	Body        template.HTML
}

// Document renders body through b, then wraps the result in the layout described by meta.
func (r *Renderer) Document(w io.Writer, b *boundary.Boundary, meta Page, body boundary.Component) error {
	var buf bytes.Buffer
	if err := Fragment(&buf, b, body); err != nil {
		return err
	}

	// Body was produced by html/template or by a boundary fallback template.
	meta.Body = template.HTML(buf.String()) //nolint:gosec
	return r.Render(w, "layout.html", meta)
}

// Fragment renders body through b. Without a boundary the body is rendered directly.
func Fragment(w io.Writer, b *boundary.Boundary, body boundary.Component) error {
	if b != nil {
		return b.Render(w, body)
	}
	return body.Render(&boundary.Scope{}, w)
}

// Template returns a component that executes one named template with data.
func (r *Renderer) Template(name, tmpl string, data any) boundary.Component {
	return boundary.Component{
		Name: name,
		Render: func(_ *boundary.Scope, w io.Writer) error {
			return r.Render(w, tmpl, data)
		},
	}
}

// Group returns a component that renders its parts in order as children.
func Group(name string, parts ...boundary.Component) boundary.Component {
	return boundary.Component{
		Name: name,
		Render: func(s *boundary.Scope, w io.Writer) error {
			for _, p := range parts {
				if err := s.Child(p.Name, w, p.Render); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

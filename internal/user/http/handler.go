package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/user-directory/internal/boundary"
	"github.com/nekogravitycat/user-directory/internal/pkg/request"
	"github.com/nekogravitycat/user-directory/internal/pkg/response"
	"github.com/nekogravitycat/user-directory/internal/render"
	"github.com/nekogravitycat/user-directory/internal/user"
	"github.com/nekogravitycat/user-directory/internal/view"
)

const (
	usersPath = "/users"
	htmlType  = "text/html; charset=utf-8"
)

// Config holds the dependencies of Handler.
type Config struct {
	Service  user.Service
	Sessions *view.Sessions
	Renderer *render.Renderer
	// PerPage is the default page size.
	PerPage int
	// Boundary is the base configuration of the page boundaries; URLs are filled per request.
	Boundary boundary.Options
	Logger   *zap.Logger
}

type Handler struct {
	service  user.Service
	sessions *view.Sessions
	renderer *render.Renderer
	perPage  int
	boundary boundary.Options
	logger   *zap.Logger
}

func NewHandler(cfg Config) *Handler {
	perPage := cfg.PerPage
	if perPage < 1 {
		perPage = view.DefaultPerPage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		service:  cfg.Service,
		sessions: cfg.Sessions,
		renderer: cfg.Renderer,
		perPage:  perPage,
		boundary: cfg.Boundary,
		logger:   logger,
	}
}

// engineFor builds a short-lived engine showing the view described by p.
func (h *Handler) engineFor(p view.Params) (*view.Engine, error) {
	q, err := view.QueryFromParams(p, h.perPage)
	if err != nil {
		return nil, err
	}
	e := view.NewEngine(h.perPage)
	if err := e.Restore(q); err != nil {
		return nil, err
	}
	return e, nil
}

// derive runs one fetch through e and returns the resulting snapshot.
func (h *Handler) derive(ctx context.Context, e *view.Engine) view.Result {
	ticket := e.BeginFetch()
	users, err := h.service.List(ctx)
	e.Resolve(ticket, users, err)

	res := e.Snapshot()
	if res.Err != nil {
		h.logger.Warn("failed to load users", zap.Error(res.Err))
	}
	return res
}

// === JSON API ===

// List returns one derived page of the directory.
// An upstream failure keeps the response shape and sets the status to 502 or 504.
func (h *Handler) List(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.engineFor(req.Params())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.derive(c.Request.Context(), e)
	status := http.StatusOK
	if res.Err != nil {
		status = toAppError(res.Err).Code
	}
	c.JSON(status, NewDirectoryResponse(res))
}

// Get returns one user profile.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, toAppError(err))
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(u))
}

// === Server-rendered pages ===

// boundaryOptions points the fallback actions of a page boundary at the current request.
func (h *Handler) boundaryOptions(c *gin.Context) boundary.Options {
	opts := h.boundary
	opts.ReloadURL = c.Request.URL.RequestURI()
	opts.HomeURL = "/"
	return opts
}

func (h *Handler) html(c *gin.Context, status int, b *boundary.Boundary, meta render.Page, body boundary.Component) {
	var buf bytes.Buffer
	if err := h.renderer.Document(&buf, b, meta, body); err != nil {
		h.logger.Error("failed to render page", zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	if b != nil && b.State() == boundary.StateFaulted {
		status = http.StatusInternalServerError
	}
	c.Data(status, htmlType, buf.Bytes())
}

func (h *Handler) errorPage(c *gin.Context, status int, message string) {
	h.html(c, status, nil, render.Page{Title: "Error"}, h.renderer.Error(&render.ErrorView{
		Message:   message,
		BackURL:   usersPath,
		BackLabel: "Back to Users",
	}))
}

// HomePage renders the landing page.
func (h *Handler) HomePage(c *gin.Context) {
	b := boundary.NewDefault(h.boundaryOptions(c))
	h.html(c, http.StatusOK, b, render.Page{}, h.renderer.Home(&render.HomeView{UsersURL: usersPath}))
}

// UsersPage renders the directory for the view state in the query string.
func (h *Handler) UsersPage(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.errorPage(c, http.StatusBadRequest, "Invalid query parameters.")
		return
	}
	if err := req.Validate(); err != nil {
		h.errorPage(c, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.engineFor(req.Params())
	if err != nil {
		h.errorPage(c, http.StatusBadRequest, err.Error())
		return
	}
	layout, err := render.ParseLayout(req.Layout)
	if err != nil {
		h.errorPage(c, http.StatusBadRequest, err.Error())
		return
	}

	res := h.derive(c.Request.Context(), e)
	status := http.StatusOK
	if res.Err != nil {
		status = toAppError(res.Err).Code
	}

	v := render.NewDirectoryView(usersPath, h.perPage, res, layout)
	meta := render.Page{
		Title:       "Users",
		Description: "Browse, search, and filter through our user database",
	}
	h.html(c, status, boundary.NewUsersData(h.boundaryOptions(c)), meta, h.renderer.Directory(v))
}

// DetailPage renders one profile, or the not-found panel.
func (h *Handler) DetailPage(c *gin.Context) {
	notFound := func() {
		v := &render.DetailView{BackURL: usersPath}
		h.html(c, http.StatusNotFound, nil, v.Meta(), h.renderer.Detail(v))
	}

	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		notFound()
		return
	}

	u, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrInvalidID):
			notFound()
		default:
			h.logger.Warn("failed to load user", zap.Int("user_id", req.ID), zap.Error(err))
			appErr := toAppError(err)
			h.errorPage(c, appErr.Code, appErr.Message)
		}
		return
	}

	v := &render.DetailView{User: u, BackURL: usersPath}
	h.html(c, http.StatusOK, boundary.NewDefault(h.boundaryOptions(c)), v.Meta(), h.renderer.Detail(v))
}

// === View sessions ===

type viewURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type waitQuery struct {
	Wait bool `form:"wait"`
}

// session resolves the :id parameter. It writes the error response itself.
func (h *Handler) session(c *gin.Context) (*view.Session, bool) {
	var uri viewURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return nil, false
	}

	s, err := h.sessions.Get(uri.ID)
	if err != nil {
		response.Error(c, toAppError(err))
		return nil, false
	}
	return s, true
}

// waitIfAsked blocks until the initial fetch settles when the request has wait=true.
func (h *Handler) waitIfAsked(c *gin.Context, s *view.Session) {
	var q waitQuery
	if err := c.ShouldBindQuery(&q); err != nil || !q.Wait {
		return
	}
	select {
	case <-s.Loaded():
	case <-c.Request.Context().Done():
	}
}

func viewResponse(s *view.Session) ViewResponse {
	return ViewResponse{ID: s.ID(), DirectoryResponse: NewDirectoryResponse(s.Snapshot())}
}

// MountView starts a view session. The fetch runs in the background; poll GetView or pass wait=true.
func (h *Handler) MountView(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := view.QueryFromParams(req.Params(), h.perPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := h.sessions.Mount(h.service.List)
	if err := s.Do(func(e *view.Engine) error { return e.Restore(q) }); err != nil {
		response.Error(c, err)
		return
	}
	h.waitIfAsked(c, s)

	c.Header("Location", "/v1/views/"+s.ID())
	c.JSON(http.StatusCreated, viewResponse(s))
}

// GetView returns the current snapshot of a view.
func (h *Handler) GetView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.waitIfAsked(c, s)
	c.JSON(http.StatusOK, viewResponse(s))
}

// UnmountView ends a view and abandons its in-flight fetch.
func (h *Handler) UnmountView(c *gin.Context) {
	var uri viewURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.sessions.Unmount(uri.ID); err != nil {
		response.Error(c, toAppError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// apply runs one event against the view and answers with the new snapshot.
func (h *Handler) apply(c *gin.Context, event func(e *view.Engine) error) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Do(event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewResponse(s))
}

func (h *Handler) SetSearch(c *gin.Context) {
	var body SearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}
	h.apply(c, func(e *view.Engine) error {
		e.SetSearchTerm(body.Term)
		return nil
	})
}

func (h *Handler) SetSort(c *gin.Context) {
	var body SortRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}
	h.apply(c, func(e *view.Engine) error {
		return e.SetSort(view.SortKey(body.Key))
	})
}

func (h *Handler) SetPage(c *gin.Context) {
	var body PageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}
	h.apply(c, func(e *view.Engine) error {
		return e.SetPage(body.Page)
	})
}

func (h *Handler) SetPerPage(c *gin.Context) {
	var body PerPageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}
	h.apply(c, func(e *view.Engine) error {
		return e.SetItemsPerPage(body.PerPage)
	})
}

// ViewFragment renders the directory of a view as an HTML fragment, guarded by the view's boundary.
func (h *Handler) ViewFragment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	layout, err := render.ParseLayout(c.Query("layout"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v := render.NewDirectoryView(usersPath, h.perPage, s.Snapshot(), layout)
	var buf bytes.Buffer
	if err := render.Fragment(&buf, s.Boundary(), h.renderer.Directory(v)); err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if b := s.Boundary(); b != nil && b.State() == boundary.StateFaulted {
		status = http.StatusInternalServerError
	}
	c.Data(status, htmlType, buf.Bytes())
}

// RetryView clears the fault of the view's boundary and sends the client back to the fragment.
func (h *Handler) RetryView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if b := s.Boundary(); b != nil {
		b.Retry()
	}
	c.Redirect(http.StatusSeeOther, "/v1/views/"+s.ID()+"/fragment")
}

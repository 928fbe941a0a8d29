package view

import (
	"github.com/nekogravitycat/user-directory/internal/user"
)

// Status is the lifecycle of the dataset held by an Engine.
type Status int

const (
	StatusPending Status = iota
	StatusPopulated
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusPopulated:
		return "populated"
	case StatusErrored:
		return "errored"
	default:
		return "pending"
	}
}

// Ticket identifies one fetch. Only the latest ticket may commit a result.
type Ticket uint64

// Result is what the presentation layer renders. Its fields are always consistent:
// Loading implies no Visible rows and no Err; Err implies no Visible rows.
type Result struct {
	Status        Status
	Query         Query
	Visible       []user.User
	FilteredCount int
	RawCount      int
	TotalPages    int
	Loading       bool
	Err           error
}

// NoResults reports whether a loaded dataset produced nothing to show.
func (r Result) NoResults() bool {
	return r.Status == StatusPopulated && r.FilteredCount == 0
}

// Engine owns the view state of one mounted directory page.
// It is not safe for concurrent use; Session serializes access when sharing is needed.
type Engine struct {
	query   Query
	status  Status
	dataset []user.User
	err     error

	latest  Ticket
	mounted bool
}

// NewEngine creates an Engine in the pending state with the given default page size.
func NewEngine(perPage int) *Engine {
	return &Engine{
		query:   DefaultQuery(perPage),
		status:  StatusPending,
		mounted: true,
	}
}

// Query returns a copy of the current view state.
func (e *Engine) Query() Query {
	return e.query.clone()
}

// Status returns the dataset lifecycle state.
func (e *Engine) Status() Status {
	return e.status
}

// SetSearchTerm replaces the search term and returns to the first page.
func (e *Engine) SetSearchTerm(term string) {
	e.query.SearchTerm = term
	e.query.Page = 1
}

// SetSort cycles the sort for key and returns to the first page.
func (e *Engine) SetSort(key SortKey) error {
	if _, err := ParseSortKey(string(key)); err != nil {
		return err
	}
	e.query.Sort = NextSort(e.query.Sort, key)
	e.query.Page = 1
	return nil
}

// SetPage moves to page n. Pages past the end are allowed and show nothing.
func (e *Engine) SetPage(n int) error {
	if n < 1 {
		return ErrInvalidPage
	}
	e.query.Page = n
	return nil
}

// SetItemsPerPage changes the page size and returns to the first page.
func (e *Engine) SetItemsPerPage(n int) error {
	if n < 1 {
		return ErrInvalidPerPage
	}
	e.query.PerPage = n
	e.query.Page = 1
	return nil
}

// Restore replaces the whole view state at once, e.g. from URL parameters.
// Unlike the individual setters it keeps q.Page as given.
func (e *Engine) Restore(q Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	e.query = q.clone()
	return nil
}

// BeginFetch issues a ticket for a new fetch and invalidates all earlier tickets.
func (e *Engine) BeginFetch() Ticket {
	e.latest++
	return e.latest
}

// Resolve commits the outcome of the fetch identified by t.
// It returns false when the outcome was discarded: the ticket is stale, the engine
// was unmounted, the dataset already errored, or a refresh failed while data was shown.
// Errored is terminal; recovering from a failed fetch takes a new mount.
func (e *Engine) Resolve(t Ticket, users []user.User, err error) bool {
	if !e.mounted || t != e.latest || e.status == StatusErrored {
		return false
	}

	if err != nil {
		if e.status == StatusPopulated {
			return false
		}
		e.status = StatusErrored
		e.err = err
		e.dataset = nil
		return true
	}

	if users == nil {
		users = make([]user.User, 0)
	}
	e.status = StatusPopulated
	e.dataset = users
	e.err = nil
	return true
}

// Unmount invalidates any in-flight fetch. The engine keeps answering Snapshot.
func (e *Engine) Unmount() {
	e.mounted = false
	e.latest++
}

// Snapshot derives the current Result.
func (e *Engine) Snapshot() Result {
	res := Result{
		Status:  e.status,
		Query:   e.query.clone(),
		Visible: make([]user.User, 0),
	}

	switch e.status {
	case StatusPending:
		res.Loading = true
	case StatusErrored:
		res.Err = e.err
	case StatusPopulated:
		d := Derive(e.dataset, e.query)
		res.Visible = d.Visible
		res.FilteredCount = d.FilteredCount
		res.RawCount = d.RawCount
		res.TotalPages = TotalPages(d.FilteredCount, e.query.PerPage)
	}

	return res
}

package render

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/nekogravitycat/user-directory/internal/boundary"
	"github.com/nekogravitycat/user-directory/internal/user"
	"github.com/nekogravitycat/user-directory/internal/view"
)

// Layout selects how the directory presents users.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCards Layout = "cards"
)

var ErrInvalidLayout = errors.New("layout must be 'table' or 'cards'")

// ParseLayout validates s. An empty string selects the table.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case "":
		return LayoutTable, nil
	case LayoutTable, LayoutCards:
		return l, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidLayout, s)
}

// PerPageChoices are offered in the page size selector.
var PerPageChoices = []int{5, 10, 20}

var columnLabels = map[view.SortKey]string{
	view.SortByName:    "Name",
	view.SortByEmail:   "Email",
	view.SortByWebsite: "Website",
}

type Column struct {
	Key    view.SortKey
	Label  string
	Icon   string
	URL    string
	Active bool
	// AriaSort is "ascending", "descending" or "none".
	AriaSort string
}

type PageLink struct {
	Number  int
	URL     string
	Current bool
}

type PerPageOption struct {
	Value    int
	URL      string
	Selected bool
}

type LayoutLink struct {
	Label    string
	URL      string
	Selected bool
}

// DirectoryView is the template data of the users directory.
type DirectoryView struct {
	BasePath       string
	DefaultPerPage int
	Query          view.Query
	Layout         Layout

	Users         []user.User
	FilteredCount int
	RawCount      int
	TotalPages    int
	Loading       bool
	FetchFailed   bool
	Empty         bool

	Columns        []Column
	Pages          []PageLink
	PrevURL        string
	NextURL        string
	PerPageOptions []PerPageOption
	LayoutLinks    []LayoutLink
	ClearSearchURL string
}

// NewDirectoryView builds the template data for res. Every link keeps the rest of the view state.
func NewDirectoryView(basePath string, defaultPerPage int, res view.Result, layout Layout) *DirectoryView {
	if layout == "" {
		layout = LayoutTable
	}
	v := &DirectoryView{
		BasePath:       basePath,
		DefaultPerPage: defaultPerPage,
		Query:          res.Query,
		Layout:         layout,
		Users:          res.Visible,
		FilteredCount:  res.FilteredCount,
		RawCount:       res.RawCount,
		TotalPages:     res.TotalPages,
		Loading:        res.Loading,
		FetchFailed:    res.Err != nil,
		Empty:          res.NoResults(),
	}
	q := res.Query

	for _, key := range view.SortKeys {
		next := q
		next.Sort = view.NextSort(q.Sort, key)
		next.Page = 1
		dir := q.SortedBy(key)
		v.Columns = append(v.Columns, Column{
			Key:      key,
			Label:    columnLabels[key],
			Icon:     SortIcon(dir),
			URL:      v.url(next, layout),
			Active:   dir != "",
			AriaSort: ariaSort(dir),
		})
	}

	for n := 1; n <= res.TotalPages; n++ {
		v.Pages = append(v.Pages, PageLink{Number: n, URL: v.pageURL(n), Current: n == q.Page})
	}
	if q.Page > 1 && q.Page <= res.TotalPages {
		v.PrevURL = v.pageURL(q.Page - 1)
	}
	if q.Page < res.TotalPages {
		v.NextURL = v.pageURL(q.Page + 1)
	}

	choices := PerPageChoices
	if !slices.Contains(choices, q.PerPage) {
		choices = append(slices.Clone(choices), q.PerPage)
		slices.Sort(choices)
	}
	for _, n := range choices {
		next := q
		next.PerPage = n
		next.Page = 1
		v.PerPageOptions = append(v.PerPageOptions, PerPageOption{Value: n, URL: v.url(next, layout), Selected: n == q.PerPage})
	}

	for _, l := range []Layout{LayoutTable, LayoutCards} {
		label := "Table"
		if l == LayoutCards {
			label = "Cards"
		}
		v.LayoutLinks = append(v.LayoutLinks, LayoutLink{Label: label, URL: v.url(q, l), Selected: l == layout})
	}

	cleared := q
	cleared.SearchTerm = ""
	cleared.Page = 1
	v.ClearSearchURL = v.url(cleared, layout)

	return v
}

func (v *DirectoryView) pageURL(n int) string {
	q := v.Query
	q.Page = n
	return v.url(q, v.Layout)
}

// url encodes q, leaving out values that equal their defaults.
func (v *DirectoryView) url(q view.Query, layout Layout) string {
	p := q.Params()
	vals := url.Values{}
	if p.Search != "" {
		vals.Set("search", p.Search)
	}
	if p.Sort != "" {
		vals.Set("sort", p.Sort)
		vals.Set("dir", p.Dir)
	}
	if p.Page > 1 {
		vals.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage != v.DefaultPerPage {
		vals.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if layout != LayoutTable {
		vals.Set("layout", string(layout))
	}

	if len(vals) == 0 {
		return v.BasePath
	}
	return v.BasePath + "?" + vals.Encode()
}

func ariaSort(d view.Direction) string {
	switch d {
	case view.Ascending:
		return "ascending"
	case view.Descending:
		return "descending"
	default:
		return "none"
	}
}

// Directory returns the component tree of the users directory.
func (r *Renderer) Directory(v *DirectoryView) boundary.Component {
	parts := []boundary.Component{
		r.Template("Header", "users/header", v),
		r.Template("SearchBar", "users/search", v),
	}

	switch {
	case v.Loading:
		parts = append(parts, r.Template("LoadingSkeleton", "users/loading", v))
	case v.FetchFailed:
		parts = append(parts, r.Template("FetchError", "users/fetch-error", v))
	case v.Empty:
		parts = append(parts, r.Template("EmptyState", "users/empty", v))
	default:
		list := r.Template("UsersTable", "users/table", v)
		if v.Layout == LayoutCards {
			list = r.Template("UsersCards", "users/cards", v)
		}
		parts = append(parts,
			list,
			r.Template("Pagination", "users/pagination", v),
			r.Template("ResultCount", "users/count", v),
		)
	}

	return Group("UsersDirectory", parts...)
}

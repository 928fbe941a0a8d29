package view

import (
	"slices"
	"strings"

	"github.com/nekogravitycat/user-directory/internal/user"
)

// Derived is the outcome of running the view pipeline over a dataset.
type Derived struct {
	// Ordered is the full filtered and sorted sequence.
	Ordered []user.User
	// Visible is the current page of Ordered.
	Visible []user.User
	// FilteredCount is len(Ordered).
	FilteredCount int
	// RawCount is the size of the dataset before filtering.
	RawCount int
}

// Derive runs filter, sort and paginate. It never mutates dataset.
func Derive(dataset []user.User, q Query) Derived {
	ordered := Sort(Filter(dataset, q.SearchTerm), q.Sort)
	return Derived{
		Ordered:       ordered,
		Visible:       Paginate(ordered, q.Page, q.PerPage),
		FilteredCount: len(ordered),
		RawCount:      len(dataset),
	}
}

// Filter keeps the users whose name, email or website contains term, ignoring case.
// An empty term keeps everything. The result is a new slice in dataset order.
func Filter(dataset []user.User, term string) []user.User {
	needle := strings.ToLower(term)
	out := make([]user.User, 0, len(dataset))
	for i := range dataset {
		u := &dataset[i]
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Name), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.Website), needle) {
			out = append(out, *u)
		}
	}
	return out
}

// Sort returns a stably sorted copy of users. Values are compared case-sensitively.
// Equal values keep their input order in both directions. A nil cfg returns the input order.
func Sort(users []user.User, cfg *SortConfig) []user.User {
	out := slices.Clone(users)
	if out == nil {
		out = make([]user.User, 0)
	}
	if cfg == nil {
		return out
	}

	key := cfg.Key
	desc := cfg.Direction == Descending
	slices.SortStableFunc(out, func(a, b user.User) int {
		c := strings.Compare(key.value(&a), key.value(&b))
		if desc {
			return -c
		}
		return c
	})
	return out
}

// Paginate returns the window [(page-1)*perPage, page*perPage) of users.
// Out-of-range pages give an empty slice, never an error.
func Paginate(users []user.User, page, perPage int) []user.User {
	if page < 1 || perPage < 1 {
		return make([]user.User, 0)
	}
	start := (page - 1) * perPage
	if start >= len(users) {
		return make([]user.User, 0)
	}
	end := min(start+perPage, len(users))
	return slices.Clone(users[start:end])
}

// TotalPages returns how many pages total items fill.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage < 1 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// NextSort returns the sort that follows cur when the column key is activated:
// unsorted or another column -> ascending, ascending -> descending, descending -> unsorted.
func NextSort(cur *SortConfig, key SortKey) *SortConfig {
	if cur == nil || cur.Key != key {
		return &SortConfig{Key: key, Direction: Ascending}
	}
	if cur.Direction == Ascending {
		return &SortConfig{Key: key, Direction: Descending}
	}
	return nil
}

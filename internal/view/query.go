package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nekogravitycat/user-directory/internal/user"
)

// DefaultPerPage is the page size used when none is chosen.
const DefaultPerPage = 5

var (
	ErrInvalidPage       = errors.New("page must be >= 1")
	ErrInvalidPerPage    = errors.New("items per page must be >= 1")
	ErrInvalidSortKey    = errors.New("sort key must be one of name, email, website")
	ErrInvalidSortDir    = errors.New("sort direction must be 'asc' or 'desc'")
	ErrSortDirWithoutKey = errors.New("sort direction requires a sort key")
)

// SortKey names a sortable column.
type SortKey string

const (
	SortByName    SortKey = "name"
	SortByEmail   SortKey = "email"
	SortByWebsite SortKey = "website"
)

// SortKeys lists the sortable columns in display order.
var SortKeys = []SortKey{SortByName, SortByEmail, SortByWebsite}

// ParseSortKey validates s as a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByName, SortByEmail, SortByWebsite:
		return k, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidSortKey, s)
}

func (k SortKey) value(u *user.User) string {
	switch k {
	case SortByEmail:
		return u.Email
	case SortByWebsite:
		return u.Website
	default:
		return u.Name
	}
}

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection validates s as a Direction. Case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case Ascending, Descending:
		return d, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidSortDir, s)
}

// SortConfig is an active sort. A nil *SortConfig means original fetch order.
type SortConfig struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// Query holds the user-controlled view state.
type Query struct {
	SearchTerm string      `json:"search"`
	Sort       *SortConfig `json:"sort"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
}

// DefaultQuery returns the initial view state for the given page size.
func DefaultQuery(perPage int) Query {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return Query{Page: 1, PerPage: perPage}
}

// Validate checks the invariants of a Query.
func (q Query) Validate() error {
	if q.Page < 1 {
		return ErrInvalidPage
	}
	if q.PerPage < 1 {
		return ErrInvalidPerPage
	}
	if q.Sort != nil {
		if _, err := ParseSortKey(string(q.Sort.Key)); err != nil {
			return err
		}
		if _, err := ParseDirection(string(q.Sort.Direction)); err != nil {
			return err
		}
	}
	return nil
}

// SortedBy returns the direction of key in the active sort, or "" when key is not sorted.
func (q Query) SortedBy(key SortKey) Direction {
	if q.Sort == nil || q.Sort.Key != key {
		return ""
	}
	return q.Sort.Direction
}

// clone returns a copy that shares no pointers with q.
func (q Query) clone() Query {
	if q.Sort != nil {
		s := *q.Sort
		q.Sort = &s
	}
	return q
}

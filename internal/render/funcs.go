package render

import (
	"html/template"

	"github.com/nekogravitycat/user-directory/internal/view"
)

// Funcs returns the template function map.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"seq": seq,
	}
}

// seq returns 1..n.
func seq(n int) []int {
	if n < 1 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// SortIcon is the column indicator: unsorted, ascending or descending.
func SortIcon(d view.Direction) string {
	switch d {
	case view.Ascending:
		return "↑"
	case view.Descending:
		return "↓"
	default:
		return "↕"
	}
}

package view

// Params are the raw view controls as they arrive in a URL.
// Zero values mean "not given".
type Params struct {
	Search  string
	Sort    string
	Dir     string
	Page    int
	PerPage int
}

// QueryFromParams validates p and builds a Query, falling back to defaultPerPage.
// A sort key without a direction sorts ascending.
func QueryFromParams(p Params, defaultPerPage int) (Query, error) {
	q := DefaultQuery(defaultPerPage)
	q.SearchTerm = p.Search

	if p.Sort != "" {
		key, err := ParseSortKey(p.Sort)
		if err != nil {
			return Query{}, err
		}
		dir := Ascending
		if p.Dir != "" {
			if dir, err = ParseDirection(p.Dir); err != nil {
				return Query{}, err
			}
		}
		q.Sort = &SortConfig{Key: key, Direction: dir}
	} else if p.Dir != "" {
		return Query{}, ErrSortDirWithoutKey
	}

	if p.PerPage != 0 {
		q.PerPage = p.PerPage
	}
	if p.Page != 0 {
		q.Page = p.Page
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Params converts q back to URL controls.
func (q Query) Params() Params {
	p := Params{
		Search:  q.SearchTerm,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	if q.Sort != nil {
		p.Sort = string(q.Sort.Key)
		p.Dir = string(q.Sort.Direction)
	}
	return p
}

package user

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nekogravitycat/user-directory/internal/fetch"
)

// Repository defines methods for reading user profiles from the upstream API.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int) (*User, error)
}

// Fetcher is the subset of fetch.Client the repository needs.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, out any) error
}

type httpRepository struct {
	fetcher Fetcher
	baseURL string
}

// NewHTTPRepository creates a Repository backed by the REST endpoints under baseURL.
func NewHTTPRepository(fetcher Fetcher, baseURL string) Repository {
	return &httpRepository{
		fetcher: fetcher,
		baseURL: baseURL,
	}
}

// ListURL returns the list endpoint for baseURL.
func ListURL(baseURL string) string {
	return baseURL + "/users"
}

// DetailURL returns the detail endpoint for one user.
func DetailURL(baseURL string, id int) string {
	return baseURL + "/users/" + strconv.Itoa(id)
}

func (r *httpRepository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.fetcher.GetJSON(ctx, ListURL(r.baseURL), &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = make([]User, 0)
	}
	return users, nil
}

func (r *httpRepository) GetByID(ctx context.Context, id int) (*User, error) {
	var u User
	if err := r.fetcher.GetJSON(ctx, DetailURL(r.baseURL, id), &u); err != nil {
		if fetch.StatusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}

	// An empty object has no identity.
	if u.ID == 0 {
		return nil, ErrNotFound
	}
	return &u, nil
}

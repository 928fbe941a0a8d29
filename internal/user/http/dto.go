package http

import (
	"strings"

	"github.com/nekogravitycat/user-directory/internal/fetch"
	"github.com/nekogravitycat/user-directory/internal/pkg/request"
	"github.com/nekogravitycat/user-directory/internal/pkg/response"
	"github.com/nekogravitycat/user-directory/internal/user"
	"github.com/nekogravitycat/user-directory/internal/view"
)

// ListUsersRequest defines the view controls accepted as query parameters.
type ListUsersRequest struct {
	request.ListParams
	Search string `form:"search"`
	Sort   string `form:"sort" binding:"omitempty,oneof=name email website"`
	Dir    string `form:"dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Layout string `form:"layout" binding:"omitempty,oneof=table cards"`
}

// Validate performs cross-field validation for ListUsersRequest.
func (r *ListUsersRequest) Validate() error {
	if r.Dir != "" && r.Sort == "" {
		return view.ErrSortDirWithoutKey
	}
	return nil
}

// Params converts the request to view controls.
func (r *ListUsersRequest) Params() view.Params {
	return view.Params{
		Search:  r.Search,
		Sort:    r.Sort,
		Dir:     strings.ToLower(r.Dir),
		Page:    r.Page,
		PerPage: r.PerPage,
	}
}

// SearchRequest replaces the search term of a view.
type SearchRequest struct {
	Term string `json:"term"`
}

// SortRequest activates a sortable column of a view.
type SortRequest struct {
	Key string `json:"key" binding:"required,oneof=name email website"`
}

// PageRequest moves a view to another page.
type PageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// PerPageRequest changes the page size of a view.
type PerPageRequest struct {
	PerPage int `json:"per_page" binding:"required,min=1,max=100"`
}

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone"`
	Website  string          `json:"website"`
	Address  AddressResponse `json:"address"`
	Company  CompanyResponse `json:"company"`
}

type AddressResponse struct {
	Street  string      `json:"street"`
	Suite   string      `json:"suite"`
	City    string      `json:"city"`
	Zipcode string      `json:"zipcode"`
	Geo     GeoResponse `json:"geo"`
}

type GeoResponse struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

type CompanyResponse struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catch_phrase"`
	BS          string `json:"bs"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Website:  u.Website,
		Address: AddressResponse{
			Street:  u.Address.Street,
			Suite:   u.Address.Suite,
			City:    u.Address.City,
			Zipcode: u.Address.Zipcode,
			Geo:     GeoResponse{Lat: u.Address.Geo.Lat, Lng: u.Address.Geo.Lng},
		},
		Company: CompanyResponse{
			Name:        u.Company.Name,
			CatchPhrase: u.Company.CatchPhrase,
			BS:          u.Company.BS,
		},
	}
}

// FetchErrorResponse describes a failed upstream fetch inside a directory response.
type FetchErrorResponse struct {
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// DirectoryResponse is one derived view of the directory.
// Loading implies no items and no error; an error implies no items.
type DirectoryResponse struct {
	response.PageResponse[UserResponse]
	TotalRaw int                 `json:"total_raw"`
	Search   string              `json:"search"`
	Status   string              `json:"status"`
	Loading  bool                `json:"loading"`
	Error    *FetchErrorResponse `json:"error"`
	Sort     *view.SortConfig    `json:"sort"`
	// NextSort maps each column to the sort its activation would produce; null clears the sort.
	NextSort map[view.SortKey]*view.SortConfig `json:"next_sort"`
}

// NewDirectoryResponse converts an engine snapshot.
func NewDirectoryResponse(res view.Result) DirectoryResponse {
	items := make([]UserResponse, len(res.Visible))
	for i := range res.Visible {
		items[i] = NewUserResponse(&res.Visible[i])
	}

	resp := DirectoryResponse{
		PageResponse: response.NewPageResponse(items, res.Query.Page, res.Query.PerPage, res.FilteredCount),
		TotalRaw:     res.RawCount,
		Search:       res.Query.SearchTerm,
		Status:       res.Status.String(),
		Loading:      res.Loading,
		Sort:         res.Query.Sort,
		NextSort:     make(map[view.SortKey]*view.SortConfig, len(view.SortKeys)),
	}
	for _, key := range view.SortKeys {
		resp.NextSort[key] = view.NextSort(res.Query.Sort, key)
	}
	if res.Err != nil {
		resp.Error = &FetchErrorResponse{
			Kind:    fetch.KindOf(res.Err).String(),
			Status:  fetch.StatusOf(res.Err),
			Message: res.Err.Error(),
		}
	}
	return resp
}

// ViewResponse is a DirectoryResponse of a mounted view session.
type ViewResponse struct {
	ID string `json:"id"`
	DirectoryResponse
}

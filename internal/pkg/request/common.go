package request

// ByIDRequest is a common struct for endpoints that require a numeric ID path parameter.
type ByIDRequest struct {
	ID int `uri:"id" binding:"required,min=1"`
}

// ListParams are the pagination query parameters shared by list endpoints.
// Zero values mean "use the default".
type ListParams struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

package render

import (
	"fmt"

	"github.com/nekogravitycat/user-directory/internal/boundary"
	"github.com/nekogravitycat/user-directory/internal/user"
)

// DetailView is the template data of a user profile page.
type DetailView struct {
	User    *user.User
	BackURL string
}

// Meta returns the document metadata for the profile, or for the not-found panel when User is nil.
func (v *DetailView) Meta() Page {
	if v.User == nil {
		return Page{
			Title:       "User Not Found",
			Description: "The requested user could not be found.",
		}
	}
	u := v.User
	return Page{
		Title:       u.Name + " - User Profile",
		Description: fmt.Sprintf("Profile details for %s (@%s), including contact, company, and address info.", u.Name, u.Username),
		Keywords:    fmt.Sprintf("%s, %s, %s, %s", u.Name, u.Username, u.Email, u.Company.Name),
	}
}

// Detail returns the component tree of a profile page.
func (r *Renderer) Detail(v *DetailView) boundary.Component {
	if v.User == nil {
		return Group("UserDetails", r.Template("UserNotFound", "detail/not-found", v))
	}
	return Group("UserDetails",
		r.Template("BackLink", "detail/back", v),
		r.Template("ProfileHeader", "detail/header", v),
		r.Template("PersonalInfo", "detail/personal", v),
		r.Template("CompanyInfo", "detail/company", v),
		r.Template("AddressInfo", "detail/address", v),
		r.Template("Actions", "detail/actions", v),
	)
}

// HomeView is the template data of the landing page.
type HomeView struct {
	UsersURL string
}

// Home returns the landing page component.
func (r *Renderer) Home(v *HomeView) boundary.Component {
	return r.Template("Home", "home", v)
}

// ErrorView is the template data of a full-page error.
type ErrorView struct {
	Message   string
	BackURL   string
	BackLabel string
}

// Error returns a full-page error component.
func (r *Renderer) Error(v *ErrorView) boundary.Component {
	return r.Template("ErrorPage", "error", v)
}

package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the JSON API: stateless directory reads and view sessions.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	usersGroup := g.Group("/users")
	{
		usersGroup.GET("", h.List)
		usersGroup.GET("/:id", h.Get)
	}

	viewsGroup := g.Group("/views")
	{
		viewsGroup.POST("", h.MountView)
		viewsGroup.GET("/:id", h.GetView)
		viewsGroup.DELETE("/:id", h.UnmountView)
		viewsGroup.POST("/:id/search", h.SetSearch)
		viewsGroup.POST("/:id/sort", h.SetSort)
		viewsGroup.POST("/:id/page", h.SetPage)
		viewsGroup.POST("/:id/per-page", h.SetPerPage)
		viewsGroup.GET("/:id/fragment", h.ViewFragment)
		viewsGroup.POST("/:id/retry", h.RetryView)
	}
}

// RegisterPages registers the server-rendered pages.
func RegisterPages(r gin.IRoutes, h *Handler) {
	r.GET("/", h.HomePage)
	r.GET("/users", h.UsersPage)
	r.GET("/users/:id", h.DetailPage)
}

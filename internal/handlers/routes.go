package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/middleware"
)

// Set groups the HTTP handlers mounted under /api/v1
type Set struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Assignments *WorkAssignmentHandler
	Checkins    *WorkCheckinHandler
}

// RegisterRoutes mounts the API. authMiddleware must set the user context.
func RegisterRoutes(router gin.IRouter, h Set, authMiddleware gin.HandlerFunc) {
	v1 := router.Group("/api/v1")

	v1.POST("/auth/login", h.Auth.Login)

	protected := v1.Group("")
	protected.Use(authMiddleware)
	adminOnly := middleware.RequireRole("admin")

	users := protected.Group("/users")
	{
		users.GET("", h.Users.List)
		users.GET("/:id", h.Users.Get)
		users.POST("", adminOnly, h.Users.Create)
		users.DELETE("/:id", adminOnly, h.Users.Delete)
		users.PATCH("/:id/active", adminOnly, h.Users.SetActive)
	}

	assignments := protected.Group("/work-assignments")
	{
		assignments.POST("", adminOnly, h.Assignments.Create)
		assignments.GET("", h.Assignments.List)
		assignments.GET("/user/:userId", h.Assignments.ListForUser)
		assignments.GET("/assignee/:userId", h.Assignments.ListForPrimaryAssignee)
		assignments.GET("/:id", h.Assignments.Get)
		assignments.GET("/:id/team", h.Assignments.Team)
		assignments.GET("/:id/activity", h.Assignments.Activity)
		assignments.PATCH("/:id", h.Assignments.Update)
		assignments.DELETE("/:id", adminOnly, h.Assignments.Delete)
	}

	checkins := protected.Group("/work-checkins")
	{
		checkins.POST("", h.Checkins.CheckIn)
		checkins.GET("/status", h.Checkins.Status)
		checkins.GET("/assignment/:assignmentId", h.Checkins.ListByAssignment)
		checkins.GET("/user/:userId", h.Checkins.ListByUser)
		checkins.PATCH("/:id", h.Checkins.CheckOut)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/idgate/internal/middleware"
)

type RouterDeps struct {
	Auth     *AuthHandler
	Sessions middleware.SessionValidator
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register/code", deps.Auth.SendRegisterCode)
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)
	api.GET("/auth/verification", deps.Auth.InspectVerification)
	api.POST("/auth/password/reset/request", deps.Auth.RequestReset)
	api.POST("/auth/password/reset/confirm", deps.Auth.ConfirmReset)
	api.POST("/auth/password/reset/complete", deps.Auth.CompleteReset)

	authGroup := api.Group("")
	authGroup.Use(middleware.SessionAuth(deps.Sessions))
	authGroup.GET("/auth/me", deps.Auth.Me)
	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.POST("/auth/password/verify", deps.Auth.VerifyPassword)
	authGroup.POST("/auth/password", deps.Auth.UpdatePassword)
}

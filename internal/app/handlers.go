package app

import (
	"github.com/gin-gonic/gin"

	"github.com/studypath/studypath-backend/internal/handlers"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/middleware"
	"github.com/studypath/studypath-backend/internal/server"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

type Handlers struct {
	Auth       *handlers.AuthHandler
	Counsellor *handlers.CounsellorHandler
	Profile    *handlers.ProfileHandler
	University *handlers.UniversityHandler
}

func wireHandlers(log *logger.Logger, cfg Config, svcs Services, r Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:       handlers.NewAuthHandler(svcs.Auth),
		Counsellor: handlers.NewCounsellorHandler(svcs.Counsellor, svcs.Chat, r.User, cfg.ChatPromptMode),
		Profile:    handlers.NewProfileHandler(svcs.Profile),
		University: handlers.NewUniversityHandler(r.University),
	}
}

func wireMiddleware(log *logger.Logger, svcs Services) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, svcs.Auth),
	}
}

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		AuthHandler:       h.Auth,
		AuthMiddleware:    mw.Auth,
		CounsellorHandler: h.Counsellor,
		ProfileHandler:    h.Profile,
		UniversityHandler: h.University,
	})
}

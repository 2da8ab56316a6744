package app

import (
	"fmt"

	"gorm.io/gorm"

	redisclient "github.com/studypath/studypath-backend/internal/clients/redis"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Profile    services.ProfileService
	Counsellor services.CounsellorService
	Chat       services.ChatService

	AI           services.AIClient
	CountryCache redisclient.CountryCache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	ai, err := services.NewGeminiClient(log, r.AICallLog)
	if err != nil {
		return Services{}, fmt.Errorf("init gemini client: %w", err)
	}

	countryCache, err := redisclient.NewCountryCache(log)
	if err != nil {
		// Redis is a cache, not a dependency the process dies over.
		log.Warn("Country cache unavailable, running without it", "error", err)
		countryCache = nil
	}

	authSvc := services.NewAuthService(log, r.User, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	profileSvc := services.NewProfileService(log, r.User, r.StudentProfile)
	counsellorSvc := services.NewCounsellorService(db, log, ai, r.Progress, r.StudentProfile, r.University, r.UserUniversity, countryCache)
	chatSvc := services.NewChatService(log, ai, counsellorSvc, r.User, r.StudentProfile, r.Progress, r.University)

	return Services{
		Auth:         authSvc,
		Profile:      profileSvc,
		Counsellor:   counsellorSvc,
		Chat:         chatSvc,
		AI:           ai,
		CountryCache: countryCache,
	}, nil
}

package app

import (
	"strings"
	"time"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/services"
	"github.com/studypath/studypath-backend/internal/utils"
)

type Config struct {
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	AllowedOrigins []string
	ChatPromptMode services.PromptMode
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 7*24*3600, log)

	origins := strings.Split(utils.GetEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	mode := services.PromptModeStrict
	if utils.GetEnv("CHAT_PROMPT_MODE", "strict", log) == "open" {
		mode = services.PromptModeOpen
	}

	return Config{
		JWTSecretKey:   jwtSecretKey,
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,
		AllowedOrigins: origins,
		ChatPromptMode: mode,
	}
}

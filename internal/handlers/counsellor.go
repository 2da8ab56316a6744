package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/requestdata"
	"github.com/studypath/studypath-backend/internal/services"
)

type CounsellorHandler struct {
	counsellorService services.CounsellorService
	chatService       services.ChatService
	userRepo          repos.UserRepo
	chatMode          services.PromptMode
}

func NewCounsellorHandler(counsellorService services.CounsellorService, chatService services.ChatService, userRepo repos.UserRepo, chatMode services.PromptMode) *CounsellorHandler {
	return &CounsellorHandler{
		counsellorService: counsellorService,
		chatService:       chatService,
		userRepo:          userRepo,
		chatMode:          chatMode,
	}
}

// requireOnboardedUser gates every counsellor route behind a completed
// onboarding form. Returns uuid.Nil after writing the response on failure.
func (ch *CounsellorHandler) requireOnboardedUser(c *gin.Context) uuid.UUID {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing identity"))
		return uuid.Nil
	}
	user, err := ch.userRepo.GetByID(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return uuid.Nil
	}
	if !user.OnboardingCompleted {
		RespondError(c, http.StatusForbidden, "onboarding_required", fmt.Errorf("complete onboarding first"))
		return uuid.Nil
	}
	return rd.UserID
}

func (ch *CounsellorHandler) GetProgress(c *gin.Context) {
	userID := ch.requireOnboardedUser(c)
	if userID == uuid.Nil {
		return
	}
	progress, err := ch.counsellorService.GetProgress(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, progress)
}

func (ch *CounsellorHandler) ApplyAction(c *gin.Context) {
	userID := ch.requireOnboardedUser(c)
	if userID == uuid.Nil {
		return
	}
	var req services.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := ch.counsellorService.ApplyAction(c.Request.Context(), userID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ch *CounsellorHandler) RecommendCountries(c *gin.Context) {
	userID := ch.requireOnboardedUser(c)
	if userID == uuid.Nil {
		return
	}
	progress, err := ch.counsellorService.EnsureCountryPlan(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"recommended": progress.Task0.ProposedCountries,
		"progress":    progress,
	})
}

func (ch *CounsellorHandler) RecommendUniversities(c *gin.Context) {
	userID := ch.requireOnboardedUser(c)
	if userID == uuid.Nil {
		return
	}
	progress, err := ch.counsellorService.EnsureUniversityPlan(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	available, err := ch.counsellorService.AvailableForDropdown(c.Request.Context(), progress)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"recommended":          progress.Task1.ProposedList,
		"availableForDropdown": available,
		"progress":             progress,
	})
}

func (ch *CounsellorHandler) Stats(c *gin.Context) {
	userID := ch.requireOnboardedUser(c)
	if userID == uuid.Nil {
		return
	}
	stats, err := ch.counsellorService.Stats(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (ch *CounsellorHandler) Chat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing identity"))
		return
	}
	var req struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	mode := ch.chatMode
	if req.Mode == "open" {
		mode = services.PromptModeOpen
	}
	result, err := ch.chatService.Chat(c.Request.Context(), rd.UserID, req.Message, mode)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ch *CounsellorHandler) ProfileAnalysis(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing identity"))
		return
	}
	analysis, err := ch.chatService.ProfileAnalysis(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"analysis": analysis})
}

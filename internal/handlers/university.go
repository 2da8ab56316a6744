package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/repos"
)

type UniversityHandler struct {
	uniRepo repos.UniversityRepo
}

func NewUniversityHandler(uniRepo repos.UniversityRepo) *UniversityHandler {
	return &UniversityHandler{uniRepo: uniRepo}
}

// List supports optional country and category filters.
func (uh *UniversityHandler) List(c *gin.Context) {
	universities, err := uh.uniRepo.List(c.Request.Context(), nil, c.Query("country"), c.Query("category"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"universities": universities, "count": len(universities)})
}

func (uh *UniversityHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	uni, err := uh.uniRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, uni)
}

func (uh *UniversityHandler) Countries(c *gin.Context) {
	countries, err := uh.uniRepo.DistinctCountries(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"countries": countries})
}

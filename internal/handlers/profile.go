package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studypath/studypath-backend/internal/requestdata"
	"github.com/studypath/studypath-backend/internal/services"
	"github.com/studypath/studypath-backend/internal/types"
)

type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// profileForm mirrors the onboarding questionnaire.
type profileForm struct {
	CurrentEducationLevel string   `json:"currentEducationLevel"`
	Major                 string   `json:"major"`
	GraduationYear        int      `json:"graduationYear"`
	GPA                   string   `json:"gpa"`
	IntendedDegree        string   `json:"intendedDegree"`
	FieldOfStudy          string   `json:"fieldOfStudy"`
	TargetIntakeYear      int      `json:"targetIntakeYear"`
	PreferredCountries    []string `json:"preferredCountries"`
	BudgetRange           string   `json:"budgetRange"`
	FundingPlan           string   `json:"fundingPlan"`
	IELTSStatus           string   `json:"ieltsStatus"`
	IELTSScore            float64  `json:"ieltsScore"`
	TOEFLStatus           string   `json:"toeflStatus"`
	TOEFLScore            float64  `json:"toeflScore"`
	GREStatus             string   `json:"greStatus"`
	GREScore              float64  `json:"greScore"`
	GMATStatus            string   `json:"gmatStatus"`
	GMATScore             float64  `json:"gmatScore"`
	SOPStatus             string   `json:"sopStatus"`
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing identity"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func (ph *ProfileHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	profile, err := ph.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, profile)
}

func (ph *ProfileHandler) Save(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var form profileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile := formToProfile(&form)
	saved, err := ph.profileService.SaveProfile(c.Request.Context(), userID, profile)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":             "Profile saved successfully!",
		"profile":             saved,
		"onboardingCompleted": true,
	})
}

func (ph *ProfileHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var form profileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	updated, err := ph.profileService.UpdateProfile(c.Request.Context(), userID, func(p *types.StudentProfile) {
		applyForm(p, &form)
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Profile updated.", "profile": updated})
}

func formToProfile(form *profileForm) *types.StudentProfile {
	p := &types.StudentProfile{}
	applyForm(p, form)
	if p.IELTSStatus == "" {
		p.IELTSStatus = "Not started"
	}
	if p.TOEFLStatus == "" {
		p.TOEFLStatus = "Not started"
	}
	if p.GREStatus == "" {
		p.GREStatus = "Not started"
	}
	if p.GMATStatus == "" {
		p.GMATStatus = "Not started"
	}
	if p.SOPStatus == "" {
		p.SOPStatus = "Not started"
	}
	return p
}

// applyForm copies only the fields the form actually carries; zero values on
// a PATCH leave the stored value alone for the scalar fields that have
// meaningful zeroes.
func applyForm(p *types.StudentProfile, form *profileForm) {
	if form.CurrentEducationLevel != "" {
		p.CurrentEducationLevel = form.CurrentEducationLevel
	}
	if form.Major != "" {
		p.Major = form.Major
	}
	if form.GraduationYear != 0 {
		p.GraduationYear = form.GraduationYear
	}
	if form.GPA != "" {
		p.GPA = form.GPA
	}
	if form.IntendedDegree != "" {
		p.IntendedDegree = form.IntendedDegree
	}
	if form.FieldOfStudy != "" {
		p.FieldOfStudy = form.FieldOfStudy
	}
	if form.TargetIntakeYear != 0 {
		p.TargetIntakeYear = form.TargetIntakeYear
	}
	if form.PreferredCountries != nil {
		p.PreferredCountries = datatypes.JSONSlice[string](form.PreferredCountries)
	}
	if form.BudgetRange != "" {
		p.BudgetRange = form.BudgetRange
	}
	if form.FundingPlan != "" {
		p.FundingPlan = form.FundingPlan
	}
	if form.IELTSStatus != "" {
		p.IELTSStatus = form.IELTSStatus
	}
	if form.IELTSScore != 0 {
		p.IELTSScore = form.IELTSScore
	}
	if form.TOEFLStatus != "" {
		p.TOEFLStatus = form.TOEFLStatus
	}
	if form.TOEFLScore != 0 {
		p.TOEFLScore = form.TOEFLScore
	}
	if form.GREStatus != "" {
		p.GREStatus = form.GREStatus
	}
	if form.GREScore != 0 {
		p.GREScore = form.GREScore
	}
	if form.GMATStatus != "" {
		p.GMATStatus = form.GMATStatus
	}
	if form.GMATScore != 0 {
		p.GMATScore = form.GMATScore
	}
	if form.SOPStatus != "" {
		p.SOPStatus = form.SOPStatus
	}
}

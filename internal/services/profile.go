package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/apierr"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/types"
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.StudentProfile, error)
	// SaveProfile upserts the onboarding form and marks the user onboarded.
	SaveProfile(ctx context.Context, userID uuid.UUID, profile *types.StudentProfile) (*types.StudentProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, apply func(*types.StudentProfile)) (*types.StudentProfile, error)
}

type profileService struct {
	log         *logger.Logger
	userRepo    repos.UserRepo
	profileRepo repos.StudentProfileRepo
}

func NewProfileService(log *logger.Logger, userRepo repos.UserRepo, profileRepo repos.StudentProfileRepo) ProfileService {
	return &profileService{
		log:         log.With("service", "ProfileService"),
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

func (ps *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	profile, err := ps.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "profile_not_found", fmt.Errorf("profile not found, please complete onboarding"))
		}
		return nil, err
	}
	return profile, nil
}

func (ps *profileService) SaveProfile(ctx context.Context, userID uuid.UUID, profile *types.StudentProfile) (*types.StudentProfile, error) {
	profile.UserID = userID
	if existing, err := ps.profileRepo.GetByUserID(ctx, nil, userID); err == nil {
		profile.ID = existing.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := ps.profileRepo.Upsert(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if err := ps.userRepo.SetOnboardingCompleted(ctx, nil, userID, true); err != nil {
		ps.log.Warn("Failed to mark onboarding completed", "error", err)
	}
	return profile, nil
}

func (ps *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, apply func(*types.StudentProfile)) (*types.StudentProfile, error) {
	profile, err := ps.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "profile_not_found", fmt.Errorf("profile not found, please complete onboarding first"))
		}
		return nil, err
	}
	apply(profile)
	if err := ps.profileRepo.Save(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

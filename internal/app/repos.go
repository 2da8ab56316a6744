package app

import (
	"gorm.io/gorm"

	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
)

type Repos struct {
	User           repos.UserRepo
	StudentProfile repos.StudentProfileRepo
	University     repos.UniversityRepo
	UserUniversity repos.UserUniversityRepo
	Progress       repos.CounsellorProgressRepo
	AICallLog      repos.AICallLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		StudentProfile: repos.NewStudentProfileRepo(db, log),
		University:     repos.NewUniversityRepo(db, log),
		UserUniversity: repos.NewUserUniversityRepo(db, log),
		Progress:       repos.NewCounsellorProgressRepo(db, log),
		AICallLog:      repos.NewAICallLogRepo(db, log),
	}
}

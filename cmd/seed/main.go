package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/studypath/studypath-backend/internal/db"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/repos"
	"github.com/studypath/studypath-backend/internal/types"
)

//go:embed universities.json
var embeddedCatalog []byte

// Loads the university catalog into postgres. With -file a JSON catalog is
// read from disk; otherwise the embedded sample is used.
func main() {
	file := flag.String("file", "", "path to a JSON catalog file (defaults to the embedded sample)")
	reset := flag.Bool("reset", false, "delete the existing catalog before seeding")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw := embeddedCatalog
	if *file != "" {
		raw, err = os.ReadFile(*file)
		if err != nil {
			log.Fatal("Failed to read catalog file", "path", *file, "error", err)
		}
	}

	var universities []*types.University
	if err := json.Unmarshal(raw, &universities); err != nil {
		log.Fatal("Failed to parse catalog", "error", err)
	}
	if len(universities) == 0 {
		log.Fatal("Catalog is empty")
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	theDB := pg.DB()

	ctx := context.Background()
	if *reset {
		if err := theDB.WithContext(ctx).Where("1 = 1").Delete(&types.University{}).Error; err != nil {
			log.Fatal("Failed to clear catalog", "error", err)
		}
		log.Info("Existing catalog cleared")
	}

	uniRepo := repos.NewUniversityRepo(theDB, log)
	if err := uniRepo.Create(ctx, nil, universities); err != nil {
		log.Fatal("Failed to insert catalog", "error", err)
	}
	log.Info("Catalog seeded", "count", len(universities))
}

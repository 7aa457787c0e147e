package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"trainvoc/config"
	"trainvoc/database"
	"trainvoc/logger"
	"trainvoc/services"
)

func main() {
	dir := flag.String("dir", "./words", "directory holding word bank files")
	dbURL := flag.String("db", "", "database url (default: DATABASE_URL)")
	dryRun := flag.Bool("dry-run", false, "parse and validate without writing")
	flag.Parse()

	_ = godotenv.Load()
	logger.Setup("info", "console")

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" && !*dryRun {
		log.Fatal().Msg("no database: pass -db or set DATABASE_URL")
	}

	files, err := services.FindWordFiles(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list word files")
	}
	if len(files) == 0 {
		log.Warn().Str("dir", *dir).Msg("no word files found")
		return
	}

	var parsed []*services.WordFile
	for _, f := range files {
		wf, err := services.ParseWordFile(f)
		if err != nil {
			log.Error().Err(err).Msg("skipping unreadable file")
			continue
		}
		if problems := wf.Problems(); len(problems) > 0 {
			log.Error().Str("file", f).Strs("problems", problems).Msg("skipping invalid file")
			continue
		}
		parsed = append(parsed, wf)
	}

	if *dryRun {
		for _, wf := range parsed {
			fmt.Printf("%s: %s, %d words\n", wf.Path, wf.Level, len(wf.Words))
		}
		return
	}

	db, err := database.Connect(config.DatabaseConfig{URL: url, AutoMigrate: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	ctx := context.Background()
	var total int64
	for _, wf := range parsed {
		n, err := services.ImportWords(ctx, db, wf, filepath.Base(wf.Path))
		if err != nil {
			log.Error().Err(err).Str("file", wf.Path).Msg("import failed")
			continue
		}
		total += n
		log.Info().Str("file", wf.Path).Str("level", wf.Level).Int64("rows", n).Msg("✓ imported")
	}

	levels, err := services.NewDBWordProvider(db).Levels(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count words")
	}
	log.Info().Int64("rows", total).Interface("levels", levels).Msg("✓ import completed")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/pkg/config"
	"github.com/taakra/engine/pkg/database"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
)

func main() {
	seedAdmin := flag.Bool("seed-admin", false, "create an admin from ADMIN_EMAIL and ADMIN_PASSWORD if absent")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{LogQueries: true, MaxOpenConns: 2})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := repository.AutoMigrate(ctx, db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	fmt.Fprintln(os.Stdout, "migrations completed")

	if *seedAdmin {
		created, err := ensureAdmin(ctx, db, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"), cfg.BcryptCost)
		if err != nil {
			log.Fatal("seed admin failed", zap.Error(err))
		}
		if created {
			fmt.Fprintln(os.Stdout, "admin user created")
		} else {
			fmt.Fprintln(os.Stdout, "admin user already exists")
		}
	}
}

func ensureAdmin(ctx context.Context, db *gorm.DB, email, password string, cost int) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	users := repository.NewUserRepository(db)
	var existing models.User
	err := users.GetByEmail(ctx, email, &existing)
	if err == nil {
		return false, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: &hash,
		Role:         models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

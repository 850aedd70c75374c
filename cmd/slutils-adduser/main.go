// Command slutils-adduser provisions a web-login account in the service
// database. Confirmation and server management require a login, and there
// is no self-service signup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nooperation/slutils/internal/auth"
	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/internal/storage/sqlite"
	"github.com/nooperation/slutils/pkg/logger"
)

func main() {
	username := flag.String("username", "", "login name for the new user")
	password := flag.String("password", "", "password for the new user")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: slutils-adduser -username NAME -password PASSWORD")
		os.Exit(2)
	}

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", logger.F("error", err.Error()))
		os.Exit(1)
	}

	db, err := sqlite.OpenDB(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", logger.F("path", cfg.DBPath), logger.F("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	store := sqlite.NewStore(db)
	authService := auth.NewService(store, auth.NewMemorySessionStore(), 0, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := authService.CreateUser(ctx, *username, *password)
	if err != nil {
		log.Error("Failed to create user", logger.F("error", err.Error()))
		os.Exit(1)
	}

	log.Info("User created", logger.F("user", user.Name), logger.F("id", fmt.Sprintf("%d", user.ID)))
}

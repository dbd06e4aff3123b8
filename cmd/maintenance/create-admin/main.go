package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/servicedesk/repair-crm/internal/config"
	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/servicedesk/repair-crm/pkg/validator"
	"github.com/sirupsen/logrus"
)

// Creates the first admin account. User creation over HTTP is admin only,
// so a fresh installation needs one bootstrapped here.
func main() {
	var (
		username string
		name     string
		mobile   string
	)
	flag.StringVar(&username, "username", "admin", "login name of the admin")
	flag.StringVar(&name, "name", "Administrator", "display name of the admin")
	flag.StringVar(&mobile, "mobile", "", "optional mobile number for notifications")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		logger.Fatal("ADMIN_PASSWORD must be set")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB.DB, logger); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	users := services.NewUserService(
		database.NewUserRepository(db),
		nil,
		validator.NewMobileValidator(cfg.Notification.DefaultCountryCode),
		cfg.Security.BcryptCost,
		logger,
	)

	req := &models.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
		Name:     name,
	}
	if mobile != "" {
		req.Mobile = &mobile
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := users.Create(ctx, req)
	if err != nil {
		logger.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Printf("Admin %q created with id %d\n", user.Username, user.ID)
}

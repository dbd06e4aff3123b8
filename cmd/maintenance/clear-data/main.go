package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/servicedesk/repair-crm/internal/config"
	"github.com/servicedesk/repair-crm/internal/database"
)

// Clears assignment data from a development or staging database. Users are
// kept unless -include-users is given.
func main() {
	var (
		dbURLFlag    string
		includeUsers bool
		confirm      bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&includeUsers, "include-users", false, "also remove every user")
	flag.BoolVar(&confirm, "yes", false, "confirm that data should be deleted")
	flag.Parse()

	// Optional, avoids passing secrets on the command line
	_ = godotenv.Load()

	if os.Getenv("ENVIRONMENT") == "production" {
		log.Fatal("refusing to clear data when ENVIRONMENT=production")
	}
	if !confirm {
		log.Fatal("pass -yes to confirm")
	}

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := []string{"work_checkins", "work_assignments"}
	if includeUsers {
		tables = append(tables, "users")
	}

	fmt.Println("Connected to database. Truncating tables...")

	for _, t := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", t)); err != nil {
			log.Fatalf("failed to truncate %s: %v", t, err)
		}
	}

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}

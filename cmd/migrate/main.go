package main

import (
	"flag"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/strv-go/newsletter-publisher/internal/config"
	"github.com/strv-go/newsletter-publisher/internal/setup"
)

func main() {
	var dir = flag.String("dir", "migrations", "directory with migration files")
	var configDir = flag.String("config", "config", "directory with config.yaml")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		log.Fatal("Usage: migrate [-dir=migrations] [-config=config] [up|down|status|version]")
	}

	settings, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := setup.ConnectMigrationDB(settings.DB.ConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}

	command := args[0]
	switch command {
	case "up":
		if err := goose.Up(db, *dir); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		fmt.Println("migrations applied successfully")
	case "down":
		if err := goose.Down(db, *dir); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		fmt.Println("migration rolled back successfully")
	case "status":
		if err := goose.Status(db, *dir); err != nil {
			log.Fatalf("migration status failed: %v", err)
		}
	case "version":
		version, err := goose.GetDBVersion(db)
		if err != nil {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("current version: %d\n", version)
	default:
		log.Fatalf("unknown command: %s", command)
	}
}

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"stockroom/internal/config"
	"stockroom/internal/infrastructure/migration"
	"stockroom/internal/infrastructure/mysql"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	switch *direction {
	case "up":
		if err := migration.Up(db, cfg.Database.Name); err != nil {
			log.Fatalf("migrating up: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := migration.Down(db, cfg.Database.Name); err != nil {
			log.Fatalf("migrating down: %v", err)
		}
		fmt.Println("migrations rolled back")
	case "version":
		version, dirty, err := migration.Version(db, cfg.Database.Name)
		if err != nil {
			log.Fatalf("reading version: %v", err)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
	default:
		log.Fatalf("unknown direction %q", *direction)
	}
}

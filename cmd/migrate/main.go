package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/clearchange/moc-tracker/pkg/configuration"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	conf := configuration.Use()
	db, err := sql.Open("pgx", conf.Database.Opts)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}

	switch command {
	case "up":
		err = goose.Up(db, conf.MigrationsDir)
	case "down":
		err = goose.Down(db, conf.MigrationsDir)
	case "status":
		err = goose.Status(db, conf.MigrationsDir)
	default:
		log.Fatalf("unknown command %q (want up, down or status)", command)
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

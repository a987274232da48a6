package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/investly/investly-backend/config"
	"github.com/investly/investly-backend/internal/app/repository"
	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/db"
	"github.com/investly/investly-backend/internal/spreadsheet"
	"github.com/investly/investly-backend/pkg/util"
)

const usage = `Usage:
  go run cmd/seed/main.go promo-codes <xlsx_file_path> [created_by]
  go run cmd/seed/main.go token <actor_id> [user|admin] [ttl]`

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	switch os.Args[1] {
	case "promo-codes":
		createdBy := "seed"
		if len(os.Args) > 3 {
			createdBy = os.Args[3]
		}
		importPromoCodes(cfg, os.Args[2], createdBy)
	case "token":
		role := util.RoleUser
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		ttl := 24 * time.Hour
		if len(os.Args) > 4 {
			if ttl, err = time.ParseDuration(os.Args[4]); err != nil {
				log.Fatal("Invalid ttl:", err)
			}
		}
		issueToken(cfg, os.Args[2], role, ttl)
	default:
		log.Fatal(usage)
	}
}

func importPromoCodes(cfg *config.Config, filePath, createdBy string) {
	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	inputs, skipped, err := spreadsheet.ReadPromoCodes(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, s := range skipped {
		fmt.Printf("Skipping %s\n", s.Error())
	}
	fmt.Printf("Total promo codes to import: %d\n", len(inputs))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	database := db.GetDB()
	redeemer := service.NewPromoCodeRedeemer(
		database,
		repository.NewPromoCodeRepository(database),
		repository.NewBusinessRepository(database),
		nil,
		cfg.Ledger.OperationTimeout,
	)

	created, err := redeemer.ImportPromoCodes(context.Background(), inputs, createdBy)
	if err != nil {
		log.Fatalf("Import stopped after %d codes: %v", created, err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Created: %d, already present: %d\n", created, len(inputs)-created)
}

func issueToken(cfg *config.Config, actorID, role string, ttl time.Duration) {
	if role != util.RoleUser && role != util.RoleAdmin {
		log.Fatalf("Unknown role %q", role)
	}
	token, err := util.GenerateToken(actorID, "", role, cfg.JWT.Secret, ttl)
	if err != nil {
		log.Fatal("Failed to generate token:", err)
	}
	fmt.Println(token)
}

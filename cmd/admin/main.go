package main

import (
	"fmt"
	"log"
	"os"

	"nativeteacher/backend/internal/config"
	"nativeteacher/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: stats | user <psid> | waiting <known> <desired>")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "stats":
		if err := printStats(storageSvc); err != nil {
			log.Fatalf("Error reading stats: %v", err)
		}
	case "user":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin user <psid>")
			os.Exit(1)
		}
		if err := printUser(storageSvc, os.Args[2]); err != nil {
			log.Fatalf("Error reading user: %v", err)
		}
	case "waiting":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin waiting <known_language> <desired_language>")
			os.Exit(1)
		}
		if err := printWaiting(storageSvc, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("Error reading waiting pool: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func printStats(s storage.ProfileStore) error {
	waiting, err := s.CountWaitingByPair()
	if err != nil {
		return err
	}
	matches, err := s.CountMatches()
	if err != nil {
		return err
	}

	fmt.Printf("Committed matches: %d\n", matches)
	fmt.Println("Waiting pool:")
	if len(waiting) == 0 {
		fmt.Println("  (empty)")
	}
	for pair, count := range waiting {
		fmt.Printf("  %-30s %d\n", pair, count)
	}
	return nil
}

func printUser(s storage.ProfileStore, psid string) error {
	profile, err := s.GetProfile(psid)
	if err != nil {
		return err
	}

	fmt.Printf("ID:           %s\n", profile.ID)
	fmt.Printf("Name:         %s\n", profile.DisplayName)
	fmt.Printf("State:        %s\n", profile.ConversationState)
	fmt.Printf("Knows:        %s\n", profile.KnownLanguage)
	fmt.Printf("Wants:        %s\n", profile.DesiredLanguage)
	fmt.Printf("Matched with: %s\n", profile.MatchedWith)
	fmt.Printf("Version:      %d\n", profile.Version)
	return nil
}

func printWaiting(s storage.ProfileStore, known, desired string) error {
	profile, err := s.FindOneWaiting(known, desired)
	if err != nil {
		return err
	}
	if profile == nil {
		fmt.Printf("Nobody waiting who knows %s and wants %s.\n", known, desired)
		return nil
	}
	return printUser(s, profile.ID)
}

package main

import (
	"fmt"
	"log"
	"os"

	"artmarket/backend/internal/config"
	"artmarket/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Moderation CLI. Runs against the database directly; these paths are
// privileged and bypass the sender checks the chat protocol enforces.
func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: flag, unflag, delete, verify")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "flag":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin flag <message_id> <reason>")
			os.Exit(1)
		}
		messageID, reason := os.Args[2], os.Args[3]
		if err := storageSvc.FlagMessage(messageID, "admin", reason); err != nil {
			log.Fatalf("Error flagging message: %v", err)
		}
		fmt.Printf("Message %s has been flagged.\n", messageID)
	case "unflag":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unflag <message_id>")
			os.Exit(1)
		}
		messageID := os.Args[2]
		if err := storageSvc.UnflagMessage(messageID); err != nil {
			log.Fatalf("Error unflagging message: %v", err)
		}
		fmt.Printf("Message %s has been unflagged.\n", messageID)
	case "delete":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin delete <message_id>")
			os.Exit(1)
		}
		messageID := os.Args[2]
		if err := storageSvc.AdminDeleteMessage(messageID); err != nil {
			log.Fatalf("Error deleting message: %v", err)
		}
		fmt.Printf("Message %s has been deleted.\n", messageID)
	case "verify":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin verify <user_id>")
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := storageSvc.VerifyUser(userID); err != nil {
			log.Fatalf("Error verifying user: %v", err)
		}
		fmt.Printf("User %s has been verified.\n", userID)
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

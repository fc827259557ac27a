package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vidinfra/docvault/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "seed-notes",
		Description: "Seed notes into the configured document store",
		Run:         internal.SeedNotes,
	},
	{
		Name:        "purge-deleted",
		Description: "Permanently remove notes deleted before a cutoff",
		Run:         internal.PurgeDeletedNotes,
	},
	{
		Name:        "kafka-test-connection",
		Description: "Check the kafka connection and audit consumer lag",
		Run:         internal.TestKafkaConnection,
	},
	{
		Name:        "reprocess-dlq",
		Description: "Move audit events from the dead letter topic back to the events topic",
		Run:         internal.ReprocessDLQ,
	},
}

func main() {
	// Define command line flags
	var (
		listCommands bool
		cmdName      string
		userID       string
		count        string
		tags         string
		olderThan    string
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&userID, "user-id", "", "User recorded as the actor of writes")
	flag.StringVar(&count, "count", "", "Number of notes to seed")
	flag.StringVar(&tags, "tags", "", "Comma separated tags for seeded notes")
	flag.StringVar(&olderThan, "older-than", "", "Minimum time in the trash before purging, e.g. 720h")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-24s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	// Set command-specific environment variables
	if userID != "" {
		os.Setenv("USER_ID", userID)
	}
	if count != "" {
		os.Setenv("SEED_COUNT", count)
	}
	if tags != "" {
		os.Setenv("SEED_TAGS", tags)
	}
	if olderThan != "" {
		os.Setenv("OLDER_THAN", olderThan)
	}

	// Find and run the command
	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}

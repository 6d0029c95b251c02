package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pgassist — PostgreSQL analytics MCP server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pgassist serve      Start the MCP server")
	fmt.Println("  pgassist doctor     Check configuration and database connectivity")
	fmt.Println("  pgassist --help     Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from the environment (or a .env file):")
	fmt.Println("  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE")
	fmt.Println("  POOL_MIN_SIZE, POOL_MAX_SIZE, POOL_ACQUIRE_TIMEOUT")
	fmt.Println("  SERVER_PORT, HEALTH_CHECK_PATH, LOG_LEVEL, LOG_FORMAT")
}

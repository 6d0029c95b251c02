package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	pgassist "github.com/datavolt/pgassist"
)

// runDoctor validates environment configuration and database connectivity,
// printing one check line per item.
func runDoctor() error {
	_ = godotenv.Load()
	useColor := term.IsTerminal(int(os.Stderr.Fd()))
	return doctor(os.Stderr, useColor)
}

func doctor(w io.Writer, useColor bool) error {
	fmt.Fprintf(w, "pgassist %s\n\n", version)

	config, err := loadServerConfig()
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Configuration loads from environment: %v", err))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'pgassist doctor' again.")
		return nil
	}
	printCheck(w, useColor, true, "Configuration loads from environment")
	printCheck(w, useColor, config.Connection.DBName != "", fmt.Sprintf("DB_NAME is set (%s)", config.Connection.DBName))
	printCheck(w, useColor, config.Server.Port > 0, fmt.Sprintf("SERVER_PORT is > 0 (%d)", config.Server.Port))
	printCheck(w, useColor, config.Pool.MaxConns > 0, fmt.Sprintf("POOL_MAX_SIZE is > 0 (%d)", config.Pool.MaxConns))

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		printCheck(w, useColor, false, "DB_PASSWORD is set — skipping connectivity check")
		return nil
	}
	printCheck(w, useColor, true, "DB_PASSWORD is set")

	// Connectivity probe with a short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	connString := buildConnString(config.Connection, config.Connection.User, password)
	logger := zerolog.New(io.Discard)
	engine, err := pgassist.New(ctx, connString, config.Config, logger)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable: %v", err))
		return nil
	}
	defer engine.Close(ctx)
	printCheck(w, useColor, true, "Database reachable")

	tables, err := engine.ListTables(ctx)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Catalog readable: %v", err))
		return nil
	}
	printCheck(w, useColor, true, fmt.Sprintf("Catalog readable (%d tables in public schema)", len(tables)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "All checks passed. Run 'pgassist serve' to start the server.")
	return nil
}

func printCheck(w io.Writer, useColor, ok bool, msg string) {
	mark := "✗"
	color := "\033[31m"
	if ok {
		mark = "✓"
		color = "\033[32m"
	}
	if useColor {
		fmt.Fprintf(w, "%s%s\033[0m %s\n", color, mark, msg)
	} else {
		fmt.Fprintf(w, "%s %s\n", mark, msg)
	}
}

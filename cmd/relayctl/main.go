// Command relayctl is the operator tool for the relay: schema migrations and API tokens.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/kirillfoster544-cpu/telegram/internal/auth"
	"github.com/kirillfoster544-cpu/telegram/internal/db"
)

const usage = `usage: relayctl <command> [flags]

commands:
  migrate [up|status]                 apply or show schema migrations (needs DATABASE_URL)
  token --operator <id> [--ttl 24h]   mint an operator API token (needs OPERATOR_JWT_SECRET)
`

func main() {
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(logger, os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "relayctl: %v\n", err)
		os.Exit(1)
	}
}

func runMigrate(logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.Open(ctx, *databaseURL, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action {
	case "up":
		if err := db.Migrate(database); err != nil {
			return err
		}
		v, err := db.Version(database)
		if err != nil {
			return err
		}
		fmt.Printf("schema at version %d\n", v)
		return nil
	case "status":
		return db.MigrationStatus(database)
	default:
		return fmt.Errorf("unknown migrate action %q (want up or status)", action)
	}
}

func runToken(args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	operatorID := fs.Int64("operator", 0, "operator id the token is issued to (must match ADMIN_ID when set)")
	ttl := fs.Duration("ttl", auth.DefaultOperatorTokenTTL, "token lifetime")
	secret := fs.String("secret", os.Getenv("OPERATOR_JWT_SECRET"), "signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *operatorID == 0 {
		return fmt.Errorf("--operator is required")
	}
	if len(strings.TrimSpace(*secret)) < 32 {
		return fmt.Errorf("OPERATOR_JWT_SECRET must be at least 32 characters")
	}
	if *ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	token, err := auth.NewJWTService(*secret).SignOperatorToken(*operatorID, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

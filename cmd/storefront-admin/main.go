// Command storefront-admin runs maintenance tasks against the storefront database.
//
//	storefront-admin reset             rewrite the demo collections from seed data
//	storefront-admin promote -email e  persist the admin role on a profile (development only)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go-storefront/config"
	"go-storefront/logging"
	"go-storefront/models"
	"go-storefront/seed"
	"go-storefront/store"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
)

const usage = "expected 'reset' or 'promote' subcommand"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.Configure(cfg.LogLevel, cfg.Development())

	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)
	promoteCmd := flag.NewFlagSet("promote", flag.ExitOnError)
	email := promoteCmd.String("email", "", "Email of the profile to promote")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, _, release, err := store.Open(ctx, cfg.StoreDriver, cfg.MongoURI, cfg.MongoDatabase, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer release()

	switch os.Args[1] {
	case "reset":
		resetCmd.Parse(os.Args[2:])
		sum, err := seed.Reset(ctx, db, time.Now().UTC())
		if err != nil {
			logger.Fatal().Err(err).Msg("reset failed")
		}
		for coll, n := range sum {
			fmt.Printf("%s: %d documents\n", coll, n)
		}
	case "promote":
		promoteCmd.Parse(os.Args[2:])
		if *email == "" {
			fmt.Println("email is required")
			promoteCmd.PrintDefaults()
			os.Exit(1)
		}
		if !cfg.Development() {
			logger.Fatal().Msg("promote is only available outside production")
		}
		if err := promote(ctx, db, *email); err != nil {
			logger.Fatal().Err(err).Str("email", *email).Msg("promote failed")
		}
		fmt.Printf("Profile '%s' promoted to admin.\n", *email)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func promote(ctx context.Context, db *store.Database, email string) error {
	users, err := db.Users.Where(ctx, "email", strings.TrimSpace(email))
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return errors.New("no profile with that email; sign in once first")
	}
	for _, u := range users {
		if err := db.Users.Merge(ctx, u.ID, bson.M{"role": models.RoleAdmin}); err != nil {
			return err
		}
	}
	return nil
}

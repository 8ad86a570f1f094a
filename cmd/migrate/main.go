package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/UthayakumarDevon/livechatapp/config"
	"github.com/UthayakumarDevon/livechatapp/internal/repository"
	"github.com/UthayakumarDevon/livechatapp/pkg/database"
	"github.com/UthayakumarDevon/livechatapp/pkg/logger"

	"gorm.io/gorm"
)

const usage = `
Live Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create the chat tables (postgres)
  down        Drop the chat tables (postgres)
  status      Show connection status and row counts (postgres)
  reset       Drop and recreate the chat tables (DANGEROUS)
  truncate    Truncate all chat tables (DANGEROUS)
  seed        Seed a demo room into the configured store (any driver)

Flags:
  -room string         Room to seed (default "lobby")
  -users string        Comma separated senders to seed (default "alice,bob,carol")
  -messages int        Messages per user (default 3)
  -background string   Background URL to set on the seeded room
  -force               Seed even when the room already has history

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed -room general -users ann,ben
  STORE_DRIVER=pebble go run cmd/migrate/main.go seed
`

func main() {
	room := flag.String("room", "lobby", "Room to seed")
	users := flag.String("users", "alice,bob,carol", "Comma separated senders to seed")
	perUser := flag.Int("messages", 3, "Messages per user")
	background := flag.String("background", "", "Background URL for the seeded room")
	force := flag.Bool("force", false, "Seed even when the room has history")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	l := logger.New(cfg.Server.Environment)
	defer l.Sync()

	ctx := context.Background()

	if command == "seed" {
		seedCfg := &database.SeedConfig{
			Room:            *room,
			Users:           splitList(*users),
			MessagesPerUser: *perUser,
			Background:      *background,
		}
		runSeed(ctx, cfg, l, seedCfg, *force)
		return
	}

	db, err := database.Connect(ctx, cfg.Database, l.Logger)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	switch command {
	case "up":
		runMigrationsUp(ctx, db)
	case "down":
		runMigrationsDown(ctx, db)
	case "status":
		showStatus(ctx, db)
	case "reset":
		runReset(ctx, db)
	case "truncate":
		runTruncate(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(ctx context.Context, db *gorm.DB) {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(ctx, db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown(ctx context.Context, db *gorm.DB) {
	log.Println("⬇️  Dropping chat tables...")

	if err := repository.DropSchema(ctx, db); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Rollback completed successfully!")
}

func showStatus(ctx context.Context, db *gorm.DB) {
	log.Println("🔍 Checking database status...")

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	for _, table := range repository.Tables {
		exists, err := database.TableExists(ctx, db, table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(ctx, db, table)
			log.Printf("✅ Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("❌ Table %-20s does not exist", table)
		}
	}
}

func runReset(ctx context.Context, db *gorm.DB) {
	log.Println("⚠️  WARNING: This will DROP all chat tables and recreate them!")

	log.Println("🗑️  Dropping all tables...")
	if err := repository.DropSchema(ctx, db); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}

	log.Println("🚀 Running migrations...")
	if err := repository.InitSchema(ctx, db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Database reset completed!")
}

func runTruncate(ctx context.Context, db *gorm.DB) {
	log.Println("⚠️  WARNING: This will TRUNCATE all chat tables!")

	if err := repository.TruncateAll(ctx, db); err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}

	log.Println("✅ All tables truncated!")
}

func runSeed(ctx context.Context, cfg *config.Config, l *logger.Logger, seedCfg *database.SeedConfig, force bool) {
	log.Printf("🌱 Seeding room %q (store=%s)...", seedCfg.Room, cfg.Store.Driver)

	store, err := database.OpenStore(ctx, cfg, l.Logger)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()

	if !force {
		has, err := database.HasHistory(ctx, store, seedCfg.Room)
		if err != nil {
			log.Fatalf("❌ Failed to read history: %v", err)
		}
		if has {
			log.Printf("⏭️  Room %q already has history, use -force to seed anyway", seedCfg.Room)
			return
		}
	}

	result, err := database.Seed(ctx, store, seedCfg, l.Logger)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("📊 Seed Summary:")
	log.Printf("   - Messages: %d", len(result.Messages))
	log.Printf("   - Reactions: %d", result.Reactions)
	log.Println("✅ Seeding completed!")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

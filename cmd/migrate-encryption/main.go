// migrate-encryption encrypts existing guest phone numbers outside the server.
// Run: go run ./cmd/migrate-encryption --dir ./pb_data
package main

import (
	"flag"
	"log"

	"github.com/grtshw/wedding-invitation/config"
	"github.com/grtshw/wedding-invitation/utils"
	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
)

func main() {
	dir := flag.String("dir", "pb_data", "PocketBase data directory")
	rotate := flag.Bool("rotate", false, "re-encrypt with the current key instead of encrypting plain values")
	flag.Parse()

	// Either location may hold the .env; Load never overrides set vars
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	utils.ConfigureLogger(cfg.LogLevel)
	utils.InitEncryption(cfg.EncryptionKey, cfg.EncryptionKeyPrevious)

	if !utils.IsEncryptionEnabled() {
		log.Fatal("ENCRYPTION_KEY not set. Please set it in .env or environment")
	}

	app := pocketbase.NewWithConfig(pocketbase.Config{DefaultDataDir: *dir})

	// Bootstrap the app (loads database) without starting the server
	if err := app.Bootstrap(); err != nil {
		log.Fatalf("Failed to bootstrap app: %v", err)
	}

	run := utils.EncryptAllGuestPII
	if *rotate {
		run = utils.RotateGuestPII
	}
	if err := run(app); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

package main

import (
	"fmt"
	"log"
	"os"

	"golang-sms-gateway/internal/adapters/db/postgres"
	"golang-sms-gateway/internal/config"

	"gorm.io/gorm/logger"
)

func main() {
	conf, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	fmt.Println("🔗 Connecting to database...")

	db, err := postgres.Open(conf.DatabaseURL, logger.Info)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println("🔄 Running migrations...")

	if err := db.AutoMigrate(postgres.Models()...); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	fmt.Println("✅ Migration complete!")
	fmt.Println("")
	fmt.Println("📊 Checking tables...")

	var tables []string
	db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables)

	if len(tables) == 0 {
		fmt.Println("⚠️  No tables found")
		os.Exit(1)
	}

	fmt.Println("✅ Tables created:")
	for _, table := range tables {
		fmt.Printf("  - %s\n", table)
	}

	fmt.Println("")
	fmt.Println("🎉 Database ready!")
}

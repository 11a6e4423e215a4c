package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"banksampah/config"
	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/report"
	"banksampah/process/laporan"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	kind := flag.String("type", report.KindSetoran, "setoran or pencairan")
	start := flag.String("start", "", "first day, YYYY-MM-DD")
	end := flag.String("end", "", "last day (inclusive), YYYY-MM-DD")
	email := flag.String("email", "", "limit to one member")
	out := flag.String("out", "", "output xlsx path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if cfg.DatabaseDSN == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}

	opts := laporan.Options{Kind: *kind, Start: *start, End: *end, Out: *out}
	if e := strings.ToLower(strings.TrimSpace(*email)); e != "" {
		var u models.User
		if err := db.Select("id").Where("email = ?", e).Take(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "user %s: %v\n", e, err)
			os.Exit(1)
		}
		opts.UserID = u.ID
	}

	if _, err := laporan.Run(context.Background(), ledger.NewGormStore(db), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

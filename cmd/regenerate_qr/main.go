package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"banksampah/config"
	"banksampah/models"
	"banksampah/pkg/qr"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// regenerate_qr fills qr_data/qr_code for members that are missing them or
// carry a token in an unknown format. With -all every member gets a new code.
func main() {
	all := flag.Bool("all", false, "regenerate for every member, not just broken ones")
	dry := flag.Bool("dry-run", true, "print what would change without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseDSN == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var users []models.User
	if err := db.Select("id", "email", "qr_data", "qr_code").
		Where("role = ?", models.RolePengguna).Order("created_at").Find(&users).Error; err != nil {
		log.Fatalf("load members: %v", err)
	}

	changed := 0
	for _, u := range users {
		if !*all && u.QRCode != "" && qr.IsToken(u.QRData) {
			continue
		}
		token, dataURL, err := qr.Issue(u.Email, time.Now())
		if err != nil {
			log.Printf("qr for %s: %v", u.Email, err)
			continue
		}
		if *dry {
			fmt.Printf("DRY: would set %s qr_data=%s\n", u.Email, token)
			changed++
			continue
		}
		if err := db.Model(&models.User{}).Where("id = ?", u.ID).
			Updates(map[string]any{"qr_data": token, "qr_code": dataURL}).Error; err != nil {
			log.Printf("update %s: %v", u.Email, err)
			continue
		}
		fmt.Printf("updated %s qr_data=%s\n", u.Email, token)
		changed++
	}
	fmt.Printf("%d of %d members %s\n", changed, len(users), map[bool]string{true: "would change", false: "updated"}[*dry])
}

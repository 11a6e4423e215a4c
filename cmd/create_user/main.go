package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"banksampah/config"
	"banksampah/models"
	"banksampah/pkg/qr"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	email := flag.String("email", "", "login email")
	nama := flag.String("nama", "", "full name (defaults to the email local part)")
	password := flag.String("password", "", "password, at least 8 characters")
	role := flag.String("role", models.RolePengguna, "admin, pengelola or pengguna")
	flag.Parse()

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" || *password == "" {
		fmt.Println("usage: go run ./cmd/create_user -email <email> -password <password> [-nama name] [-role role]")
		os.Exit(2)
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}
	if !models.ValidRole(*role) {
		log.Fatalf("unknown role %q", *role)
	}
	if strings.TrimSpace(*nama) == "" {
		*nama, _, _ = strings.Cut(*email, "@")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// ensure roles exist
	for _, r := range models.DefaultRoles {
		r := r
		if err := db.Where(models.Role{Name: r.Name}).FirstOrCreate(&r).Error; err != nil {
			log.Fatalf("ensure role %s: %v", r.Name, err)
		}
	}

	var existing models.User
	if err := db.Where("email = ?", *email).Take(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%s role=%s)\n", *email, existing.ID, existing.RoleName)
		os.Exit(0)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("lookup user: %v", err)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	token, dataURL, err := qr.Issue(*email, time.Now())
	if err != nil {
		log.Fatalf("qr: %v", err)
	}
	user := models.User{
		NamaLengkap:    strings.TrimSpace(*nama),
		Email:          *email,
		HashedPassword: hpw,
		RoleName:       *role,
		QRData:         token,
		QRCode:         dataURL,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created %s %s id=%s\n", user.RoleName, user.Email, user.ID)
}

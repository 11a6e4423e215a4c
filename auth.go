package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/qr"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errEmailTaken         = errors.New("email already registered")
	errInvalidToken       = errors.New("invalid or expired token")
)

// accessClaims is the JWT payload. Subject carries the user id.
type accessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// newAccount is what registration and admin member creation collect.
type newAccount struct {
	NamaLengkap string
	Email       string
	Password    string
	Role        string
	Address     models.Address
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkPassword(p string) error {
	if len(p) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ledger.ErrInvalidInput, minPasswordLen)
	}
	return nil
}

// createAccount validates, hashes and inserts a user with a fresh QR code.
func createAccount(ctx context.Context, db *gorm.DB, in newAccount, now time.Time) (*models.User, error) {
	in.NamaLengkap = strings.TrimSpace(in.NamaLengkap)
	in.Email = normalizeEmail(in.Email)
	if in.NamaLengkap == "" {
		return nil, fmt.Errorf("%w: nama_lengkap is required", ledger.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ledger.ErrInvalidInput)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	if !models.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ledger.ErrInvalidInput, in.Role)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token, dataURL, err := qr.Issue(in.Email, now)
	if err != nil {
		return nil, err
	}
	u := models.User{
		NamaLengkap:    in.NamaLengkap,
		Email:          in.Email,
		HashedPassword: hashed,
		RoleName:       in.Role,
		Address:        in.Address,
		QRData:         token,
		QRCode:         dataURL,
	}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}
	return &u, nil
}

func issueAccessToken(secret []byte, ttl time.Duration, u *models.User, now time.Time) (string, error) {
	claims := accessClaims{
		Role:  u.RoleName,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseAccessToken(secret []byte, raw string) (ledger.Actor, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return ledger.Actor{}, errInvalidToken
	}
	if claims.Subject == "" || !models.ValidRole(claims.Role) {
		return ledger.Actor{}, errInvalidToken
	}
	return ledger.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// createRefreshToken stores the hash of a random token and returns the raw value.
func createRefreshToken(db *gorm.DB, userID string, ttl time.Duration, now time.Time) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(raw), ExpiresAt: now.Add(ttl)}
	if err := db.Create(&rt).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}

// rotateRefreshToken revokes raw and issues a replacement for the same user.
// The revoke is conditional so a token can only be exchanged once.
func rotateRefreshToken(ctx context.Context, db *gorm.DB, raw string, ttl time.Duration, now time.Time) (*models.User, string, error) {
	var user models.User
	var next string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(raw)).Take(&rt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidToken
			}
			return err
		}
		if rt.Revoked || now.After(rt.ExpiresAt) {
			return errInvalidToken
		}
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", rt.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidToken
		}
		if err := tx.Where("id = ?", rt.UserID).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errInvalidToken
			}
			return err
		}
		var err error
		next, err = createRefreshToken(tx, user.ID, ttl, now)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return &user, next, nil
}

func revokeRefreshToken(ctx context.Context, db *gorm.DB, raw string) error {
	res := db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(raw)).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errInvalidToken
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/qr"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type addressRequest struct {
	NoHP         *string `json:"no_hp"`
	Kelurahan    *string `json:"kelurahan"`
	Kecamatan    *string `json:"kecamatan"`
	Kabupaten    *string `json:"kabupaten"`
	DetailAlamat *string `json:"detail_alamat"`
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func (a addressRequest) address() models.Address {
	return models.Address{
		NoHP:         trimmed(a.NoHP),
		Kelurahan:    trimmed(a.Kelurahan),
		Kecamatan:    trimmed(a.Kecamatan),
		Kabupaten:    trimmed(a.Kabupaten),
		DetailAlamat: trimmed(a.DetailAlamat),
	}
}

func (s *server) registerHandler(c *gin.Context) {
	var req struct {
		NamaLengkap string `json:"nama_lengkap" binding:"required"`
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		addressRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := createAccount(c.Request.Context(), s.db, newAccount{
		NamaLengkap: req.NamaLengkap,
		Email:       req.Email,
		Password:    req.Password,
		Role:        models.RolePengguna,
		Address:     req.address(),
	}, s.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "user": u})
}

func (s *server) loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := authenticate(ctx, s.db, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	s.respondTokens(c, u, "")
}

// respondTokens issues an access token, and a refresh token unless one was
// already rotated in.
func (s *server) respondTokens(c *gin.Context, u *models.User, refresh string) {
	now := s.now()
	token, err := issueAccessToken([]byte(s.cfg.JWTSecret), s.cfg.AccessTokenTTL, u, now)
	if err != nil {
		respondError(c, fmt.Errorf("sign token: %w", err))
		return
	}
	if refresh == "" {
		refresh, err = createRefreshToken(s.db.WithContext(c.Request.Context()), u.ID, s.cfg.RefreshTokenTTL, now)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "login successful",
		"token":         token,
		"refresh_token": refresh,
		"user":          u,
	})
}

func (s *server) refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, next, err := rotateRefreshToken(c.Request.Context(), s.db, req.RefreshToken, s.cfg.RefreshTokenTTL, s.now())
	if err != nil {
		respondError(c, err)
		return
	}
	s.respondTokens(c, u, next)
}

func (s *server) logoutHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := revokeRefreshToken(c.Request.Context(), s.db, req.RefreshToken); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *server) currentUser(c *gin.Context) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(c.Request.Context()).Where("id = ?", actorFrom(c).UserID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *server) meHandler(c *gin.Context) {
	u, err := s.currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// completeProfileHandler updates only the address fields present in the body.
func (s *server) completeProfileHandler(c *gin.Context) {
	var req struct {
		NamaLengkap *string `json:"nama_lengkap"`
		addressRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updates := map[string]any{"profile_completed": true}
	if v := trimmed(req.NamaLengkap); v != nil {
		updates["nama_lengkap"] = *v
	}
	addr := req.address()
	for col, v := range map[string]*string{
		"no_hp":         addr.NoHP,
		"kelurahan":     addr.Kelurahan,
		"kecamatan":     addr.Kecamatan,
		"kabupaten":     addr.Kabupaten,
		"detail_alamat": addr.DetailAlamat,
	} {
		if v != nil {
			updates[col] = *v
		}
	}
	id := actorFrom(c).UserID
	res := s.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, ledger.ErrUserNotFound)
		return
	}
	u, err := s.currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": u})
}

// qrImageHandler serves the caller's QR code as a PNG.
func (s *server) qrImageHandler(c *gin.Context) {
	u, err := s.currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if u.QRData == "" {
		respondError(c, fmt.Errorf("qr code: %w", errNotFound))
		return
	}
	png, err := qr.PNG(u.QRData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"banksampah/models"
	"banksampah/pkg/ledger"
	"banksampah/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func (s *server) listMembersHandler(c *gin.Context) {
	q := s.db.WithContext(c.Request.Context()).Model(&models.User{})
	if role := c.Query("role"); role != "" {
		if !models.ValidRole(role) {
			respondError(c, fmt.Errorf("%w: unknown role %q", ledger.ErrInvalidInput, role))
			return
		}
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("created_at desc").Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// createMemberHandler lets an admin add members and operators. Admin accounts
// are only created through the seed or cmd/create_user.
func (s *server) createMemberHandler(c *gin.Context) {
	var req struct {
		NamaLengkap string `json:"nama_lengkap" binding:"required"`
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Role        string `json:"role"`
		addressRequest
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RolePengguna
	}
	if req.Role != models.RolePengguna && req.Role != models.RolePengelola {
		respondError(c, fmt.Errorf("%w: role must be %q or %q", ledger.ErrInvalidInput, models.RolePengguna, models.RolePengelola))
		return
	}
	u, err := createAccount(c.Request.Context(), s.db, newAccount{
		NamaLengkap: req.NamaLengkap,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Address:     req.address(),
	}, s.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "member created", "user": u})
}

// loadTarget fetches a user that an admin wants to modify. Admin targets are refused.
func (s *server) loadTarget(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", ledger.ErrInvalidInput, id)
	}
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrUserNotFound
		}
		return nil, err
	}
	if u.IsAdmin() {
		return nil, fmt.Errorf("%w: admin accounts cannot be modified here", ledger.ErrForbidden)
	}
	return &u, nil
}

func (s *server) changeMemberPasswordHandler(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := checkPassword(req.Password); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := s.loadTarget(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(u).Update("hashed_password", hashed).Error; err != nil {
			return err
		}
		// existing sessions end with the old password
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", u.ID).Update("revoked", true).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// deleteMemberHandler removes a member together with their setoran and pencairan.
func (s *server) deleteMemberHandler(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := s.loadTarget(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.Setoran{}).Error; err != nil {
			return fmt.Errorf("delete setoran: %w", err)
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.Pencairan{}).Error; err != nil {
			return fmt.Errorf("delete pencairan: %w", err)
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("delete refresh tokens: %w", err)
		}
		return tx.Delete(u).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Log.Info("member deleted",
		logger.String("user_id", u.ID),
		logger.String("by", actorFrom(c).UserID),
	)
	c.JSON(http.StatusOK, gin.H{"message": "member deleted"})
}

// memberByQRHandler resolves a scanned QR token to the member it belongs to.
func (s *server) memberByQRHandler(c *gin.Context) {
	var u models.User
	err := s.db.WithContext(c.Request.Context()).
		Where("qr_data = ? AND role = ?", c.Param("qr"), models.RolePengguna).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, ledger.ErrUserNotFound)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

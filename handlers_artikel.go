package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"banksampah/models"
	"banksampah/pkg/imgproc"
	"banksampah/pkg/ledger"
	"banksampah/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	artikelDir      = "artikel"
	defaultPageSize = 10
	maxPageSize     = 100
)

// imageSet is the JSON stored in artikel.gambar for uploaded images.
type imageSet struct {
	Desktop string `json:"desktop"`
	Tablet  string `json:"tablet"`
	Mobile  string `json:"mobile"`
}

// gambarValue accepts a legacy URL string, an imageSet object or null.
func gambarValue(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var url string
	if err := json.Unmarshal(raw, &url); err == nil {
		return trimmed(&url), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var set imageSet
	if err := dec.Decode(&set); err != nil || set.Desktop == "" || set.Tablet == "" || set.Mobile == "" {
		return nil, fmt.Errorf("%w: gambar must be a URL or {desktop, tablet, mobile}", ledger.ErrInvalidInput)
	}
	b, _ := json.Marshal(set)
	v := string(b)
	return &v, nil
}

type artikelRequest struct {
	Judul  string          `json:"judul"`
	Konten string          `json:"konten"`
	Gambar json.RawMessage `json:"gambar"`
}

func (r artikelRequest) check() error {
	if strings.TrimSpace(r.Judul) == "" || strings.TrimSpace(r.Konten) == "" {
		return fmt.Errorf("%w: judul and konten are required", ledger.ErrInvalidInput)
	}
	return nil
}

func (s *server) listArtikelHandler(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	db := s.db.WithContext(c.Request.Context())
	var total int64
	if err := db.Model(&models.Artikel{}).Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	var items []models.Artikel
	err := db.Preload("Admin", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "nama_lengkap") }).
		Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       items,
		"pagination": gin.H{"total": total, "limit": limit, "offset": offset},
	})
}

func (s *server) findArtikel(c *gin.Context) (*models.Artikel, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", ledger.ErrInvalidInput, id)
	}
	var a models.Artikel
	err := s.db.WithContext(c.Request.Context()).
		Preload("Admin", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "nama_lengkap") }).
		Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("artikel: %w", errNotFound)
	}
	return &a, err
}

func (s *server) getArtikelHandler(c *gin.Context) {
	a, err := s.findArtikel(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (s *server) createArtikelHandler(c *gin.Context) {
	var req artikelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.check(); err != nil {
		respondError(c, err)
		return
	}
	gambar, err := gambarValue(req.Gambar)
	if err != nil {
		respondError(c, err)
		return
	}
	adminID := actorFrom(c).UserID
	a := models.Artikel{
		Judul:   strings.TrimSpace(req.Judul),
		Konten:  req.Konten,
		Gambar:  gambar,
		AdminID: &adminID,
	}
	if err := s.db.WithContext(c.Request.Context()).Omit(clause.Associations).Create(&a).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "artikel created", "data": a})
}

func (s *server) updateArtikelHandler(c *gin.Context) {
	a, err := s.findArtikel(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req artikelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.check(); err != nil {
		respondError(c, err)
		return
	}
	gambar, err := gambarValue(req.Gambar)
	if err != nil {
		respondError(c, err)
		return
	}
	a.Judul = strings.TrimSpace(req.Judul)
	a.Konten = req.Konten
	a.Gambar = gambar
	if err := s.db.WithContext(c.Request.Context()).Model(a).Select("judul", "konten", "gambar").Updates(a).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "artikel updated", "data": a})
}

func (s *server) deleteArtikelHandler(c *gin.Context) {
	a, err := s.findArtikel(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.db.WithContext(c.Request.Context()).Delete(a).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "artikel deleted"})
}

// uploadArtikelImageHandler takes one image in form field "file" and stores
// desktop, tablet and mobile JPEG renditions of it.
func (s *server) uploadArtikelImageHandler(c *gin.Context) {
	maxBytes := s.cfg.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file too large (max %dMB)", s.cfg.MaxUploadMB)})
		return
	}
	ct := strings.ToLower(file.Header.Get("Content-Type"))
	if !imgproc.AllowedContentTypes[ct] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image must be JPEG, PNG or WebP"})
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	img, err := imgproc.Decode(f)
	if err != nil {
		respondError(c, err)
		return
	}
	rends, err := imgproc.Render(img)
	if err != nil {
		respondError(c, err)
		return
	}

	batch := fmt.Sprintf("artikel-%d-%s", s.now().UnixMilli(), uuid.NewString()[:8])
	rows, err := writeRenditions(s.cfg.UploadBase, batch, rends)
	if err != nil {
		respondError(c, err)
		return
	}
	uploader := actorFrom(c).UserID
	for i := range rows {
		rows[i].UploadedBy = &uploader
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&rows).Error; err != nil {
		removeRenditions(s.cfg.UploadBase, rows)
		respondError(c, err)
		return
	}

	urls := map[string]string{}
	for _, r := range rows {
		urls[r.Variant] = s.cfg.PublicURL + "/uploads/" + r.StorePath
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "image uploaded",
		"urls":    imageSet{Desktop: urls["desktop"], Tablet: urls["tablet"], Mobile: urls["mobile"]},
	})
}

// writeRenditions stores each rendition under base/artikel/<variant>/<batch>.jpg.
// If any write fails the files already written are removed.
func writeRenditions(base, batch string, rends []imgproc.Rendition) ([]models.Upload, error) {
	rows := make([]models.Upload, 0, len(rends))
	for _, r := range rends {
		rel := path.Join(artikelDir, r.Variant, batch+".jpg")
		full := filepath.Join(base, filepath.FromSlash(rel))
		err := os.MkdirAll(filepath.Dir(full), 0o755)
		if err == nil {
			err = os.WriteFile(full, r.Data, 0o644)
		}
		if err != nil {
			removeRenditions(base, rows)
			return nil, fmt.Errorf("store %s image: %w", r.Variant, err)
		}
		rows = append(rows, models.Upload{
			BatchID:     batch,
			Variant:     r.Variant,
			FileName:    batch + ".jpg",
			StorePath:   rel,
			ContentType: "image/jpeg",
			Width:       r.Width,
			Height:      r.Height,
		})
	}
	return rows, nil
}

func removeRenditions(base string, rows []models.Upload) {
	for _, r := range rows {
		full := filepath.Join(base, filepath.FromSlash(r.StorePath))
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("cleanup of partial upload failed", logger.String("path", full), logger.Error(err))
		}
	}
}

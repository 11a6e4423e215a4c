package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"banksampah/pkg/backup"

	"github.com/gin-gonic/gin"
)

func (s *server) exportBackupHandler(c *gin.Context) {
	p, err := backup.Export(c.Request.Context(), s.db, s.backupSource())
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("backup-%s.json", strings.NewReplacer(":", "-", ".", "-").Replace(p.Metadata.ExportedAt.Format("2006-01-02T15:04:05.000Z")))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/json", b)
}

func (s *server) backupSource() string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	return "unknown"
}

// importBackupHandler replaces all data with the uploaded backup. The file
// comes either as multipart field "file" or as the raw JSON body.
// ?recompute_saldo=true rebuilds saldo from history instead of requiring it to match.
func (s *server) importBackupHandler(c *gin.Context) {
	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "backup file missing"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()
		r = f
	}
	p, err := backup.Decode(r)
	if err != nil {
		respondError(c, err)
		return
	}
	counts, err := backup.Import(c.Request.Context(), s.db, p, c.Query("recompute_saldo") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "import successful",
		"inserted": counts,
		"metadata": p.Metadata,
	})
}

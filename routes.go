package main

import (
	"net/http"

	"banksampah/models"

	"github.com/gin-gonic/gin"
)

func setupRoutes(r *gin.Engine, s *server) {
	secret := []byte(s.cfg.JWTSecret)
	auth := jwtAuth(secret, false)
	downloadAuth := jwtAuth(secret, true)
	admin := requireRoles(models.RoleAdmin)
	staff := requireRoles(models.RoleAdmin, models.RolePengelola)
	member := requireRoles(models.RolePengguna)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.Static("/uploads", s.cfg.UploadBase)

	api := r.Group("/api")

	a := api.Group("/auth")
	a.POST("/register", s.registerHandler)
	a.POST("/login", s.loginHandler)
	a.POST("/refresh", s.refreshHandler)
	a.POST("/logout", s.logoutHandler)
	a.GET("/me", auth, s.meHandler)

	p := api.Group("/profile", auth)
	p.POST("/complete", member, s.completeProfileHandler)
	p.GET("/qr", s.qrImageHandler)

	m := api.Group("/member", auth)
	m.GET("/list", admin, s.listMembersHandler)
	m.POST("/create", admin, s.createMemberHandler)
	m.PUT("/:id/password", admin, s.changeMemberPasswordHandler)
	m.DELETE("/delete/:id", admin, s.deleteMemberHandler)
	m.GET("/qr/:qr", staff, s.memberByQRHandler)

	st := api.Group("/setoran", auth)
	st.POST("/create", member, s.createSetoranHandler)
	st.GET("/list", s.listSetoranHandler)
	st.POST("/validate/:id", staff, s.validateSetoranHandler)

	pc := api.Group("/pencairan", auth)
	pc.POST("/request", member, s.requestPencairanHandler)
	pc.GET("/list", s.listPencairanHandler)
	pc.POST("/approve/:id", staff, s.decidePencairanHandler)

	sd := api.Group("/saldo", auth)
	sd.GET("", s.saldoHandler)
	sd.GET("/reconcile/:id", admin, s.reconcileHandler)

	ar := api.Group("/artikel")
	ar.GET("/list", s.listArtikelHandler)
	ar.GET("/:id", s.getArtikelHandler)
	ar.POST("/create", auth, admin, s.createArtikelHandler)
	ar.PUT("/:id", auth, admin, s.updateArtikelHandler)
	ar.DELETE("/:id", auth, admin, s.deleteArtikelHandler)
	ar.POST("/upload-image", auth, admin, s.uploadArtikelImageHandler)

	api.GET("/settings", s.listSettingsHandler)
	api.PUT("/settings", auth, admin, s.upsertSettingHandler)

	js := api.Group("/jenis-sampah")
	js.GET("", s.listJenisSampahHandler)
	js.POST("", auth, admin, s.createJenisSampahHandler)
	js.PUT("/:id", auth, admin, s.updateJenisSampahHandler)
	js.DELETE("/:id", auth, admin, s.deleteJenisSampahHandler)

	lp := api.Group("/laporan")
	lp.GET("/export", downloadAuth, staff, s.exportLaporanHandler)
	lp.GET("/summary", auth, staff, s.summaryLaporanHandler)

	bk := api.Group("/backup")
	bk.GET("/export", downloadAuth, admin, s.exportBackupHandler)
	bk.POST("/import", auth, admin, s.importBackupHandler)
}

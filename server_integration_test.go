package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"banksampah/config"
	"banksampah/models"
	"banksampah/pkg/ledger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// setupTestServer connects to DB_DSN. Integration tests are opt-in: set
// DB_DSN_TEST=1 and DB_DSN to run them.
func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	t.Setenv("UPLOAD_BASE", t.TempDir())
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.DBLogLevel = "silent"
	db, err := openDB(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := prepareDB(db, cfg, true); err != nil {
		t.Fatal(err)
	}
	s := newServer(db, cfg, ledger.NewGormStore(db))
	return newRouter(s), db, cfg
}

func login(t *testing.T, r http.Handler, email, password string) (access, refresh string) {
	t.Helper()
	rec := performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": email, "password": password}), "", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	access, _ = body["token"].(string)
	refresh, _ = body["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("missing tokens in %s", rec.Body.String())
	}
	return access, refresh
}

func TestFullFlow(t *testing.T) {
	r, db, cfg := setupTestServer(t)
	suffix := time.Now().UnixNano()
	memberEmail := fmt.Sprintf("warga%d@example.com", suffix)
	operatorEmail := fmt.Sprintf("pengelola%d@example.com", suffix)
	t.Cleanup(func() {
		var ids []string
		db.Model(&models.User{}).Where("email IN ?", []string{memberEmail, operatorEmail}).Pluck("id", &ids)
		if len(ids) == 0 {
			return
		}
		db.Where("user_id IN ?", ids).Delete(&models.Setoran{})
		db.Where("user_id IN ?", ids).Delete(&models.Pencairan{})
		db.Where("user_id IN ?", ids).Delete(&models.RefreshToken{})
		db.Where("id IN ?", ids).Delete(&models.User{})
	})

	// 1. Register a member; a second registration with the same email conflicts.
	reg := map[string]string{"nama_lengkap": "Warga Satu", "email": memberEmail, "password": "rahasia123"}
	rec := performRequest(r, http.MethodPost, "/api/auth/register", jsonBody(t, reg), "", "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodPost, "/api/auth/register", jsonBody(t, reg), "", "application/json")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d, want 409", rec.Code)
	}

	// 2. Wrong password is 401.
	rec = performRequest(r, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": memberEmail, "password": "salah12345"}), "", "application/json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d, want 401", rec.Code)
	}

	adminToken, _ := login(t, r, cfg.AdminEmail, cfg.AdminPassword)
	memberToken, memberRefresh := login(t, r, memberEmail, "rahasia123")

	// 3. Refresh rotates; the old refresh token is single use.
	rec = performRequest(r, http.MethodPost, "/api/auth/refresh",
		jsonBody(t, map[string]string{"refresh_token": memberRefresh}), "", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodPost, "/api/auth/refresh",
		jsonBody(t, map[string]string{"refresh_token": memberRefresh}), "", "application/json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: %d, want 401", rec.Code)
	}

	// 4. Admin creates an operator.
	rec = performRequest(r, http.MethodPost, "/api/member/create", jsonBody(t, map[string]string{
		"nama_lengkap": "Pengelola Satu", "email": operatorEmail, "password": "pengelola1", "role": models.RolePengelola,
	}), adminToken, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create operator: %d %s", rec.Code, rec.Body.String())
	}
	operatorToken, _ := login(t, r, operatorEmail, "pengelola1")

	// 5. Member profile and QR lookup.
	rec = performRequest(r, http.MethodPost, "/api/profile/complete",
		jsonBody(t, map[string]string{"no_hp": "08123", "kelurahan": "Sukamaju"}), memberToken, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete profile: %d %s", rec.Code, rec.Body.String())
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["profile_completed"] != true {
		t.Fatalf("profile not completed: %v", user)
	}
	rec = performRequest(r, http.MethodGet, "/api/member/qr/"+user["qr_data"].(string), nil, operatorToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("qr lookup: %d %s", rec.Code, rec.Body.String())
	}

	// 6. Deposit, validate, withdraw, approve.
	rec = performRequest(r, http.MethodPost, "/api/setoran/create",
		jsonBody(t, map[string]string{"jenis_sampah": "Kardus", "metode": models.MetodePickUp}), memberToken, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create setoran: %d %s", rec.Code, rec.Body.String())
	}
	setoranID := decodeBody(t, rec)["setoran"].(map[string]any)["id"].(string)
	rec = performRequest(r, http.MethodPost, "/api/setoran/validate/"+setoranID,
		jsonBody(t, map[string]string{"berat_sampah": "2.5", "harga_per_kg": "1500"}), operatorToken, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodPost, "/api/pencairan/request",
		jsonBody(t, map[string]string{"nominal": "3750"}), memberToken, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("request: %d %s", rec.Code, rec.Body.String())
	}
	pencairanID := decodeBody(t, rec)["pencairan"].(map[string]any)["id"].(string)
	rec = performRequest(r, http.MethodPost, "/api/pencairan/approve/"+pencairanID,
		jsonBody(t, map[string]string{"status": models.PencairanApproved, "catatan": "tunai"}), operatorToken, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/api/auth/me", nil, memberToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}
	var me struct {
		User models.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if !me.User.Saldo.IsZero() {
		t.Fatalf("saldo after full withdrawal = %s", me.User.Saldo)
	}

	// 7. Export report and backup.
	rec = performRequest(r, http.MethodGet, "/api/laporan/export?type=pencairan&token="+operatorToken, nil, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("laporan: %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodGet, "/api/backup/export", nil, adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("backup export: %d %s", rec.Code, rec.Body.String())
	}

	// 8. Unauthorized access to a protected endpoint is 401.
	if rec = performRequest(r, http.MethodGet, "/api/setoran/list", nil, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: %d, want 401", rec.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	_, db, cfg := setupTestServer(t)
	// running twice must be harmless
	if err := prepareDB(db, cfg, true); err != nil {
		t.Fatal(err)
	}
	var roles int64
	if err := db.WithContext(context.Background()).Model(&models.Role{}).Count(&roles).Error; err != nil {
		t.Fatal(err)
	}
	if roles < int64(len(models.DefaultRoles)) {
		t.Fatalf("roles = %d", roles)
	}
}

func TestJenisSampahInUseCannotBeRenamed(t *testing.T) {
	r, db, cfg := setupTestServer(t)
	adminToken, _ := login(t, r, cfg.AdminEmail, cfg.AdminPassword)
	nama := fmt.Sprintf("Botol %d", time.Now().UnixNano())

	rec := performRequest(r, http.MethodPost, "/api/jenis-sampah",
		jsonBody(t, map[string]string{"nama": nama}), adminToken, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create jenis: %d %s", rec.Code, rec.Body.String())
	}
	id := decodeBody(t, rec)["data"].(map[string]any)["id"].(string)

	var admin models.User
	if err := db.Where("email = ?", cfg.AdminEmail).Take(&admin).Error; err != nil {
		t.Fatal(err)
	}
	st := models.Setoran{UserID: admin.ID, JenisSampah: nama, Metode: models.MetodeDropOff,
		Status: models.SetoranPending, TanggalSetor: time.Now()}
	if err := db.Create(&st).Error; err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Delete(&st)
		db.Where("id = ?", id).Delete(&models.JenisSampah{})
	})

	rec = performRequest(r, http.MethodPut, "/api/jenis-sampah/"+id,
		jsonBody(t, map[string]string{"nama": nama + " Baru"}), adminToken, "application/json")
	if rec.Code != http.StatusConflict {
		t.Fatalf("rename in use: %d, want 409", rec.Code)
	}
	var row models.JenisSampah
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil || row.Nama != nama {
		t.Fatalf("after refused rename: %+v, %v", row, err)
	}

	// deactivating, or resending the same name, stays allowed
	rec = performRequest(r, http.MethodPut, "/api/jenis-sampah/"+id,
		jsonBody(t, map[string]any{"nama": nama, "is_active": false}), adminToken, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rec.Code, rec.Body.String())
	}
	if rec = performRequest(r, http.MethodDelete, "/api/jenis-sampah/"+id, nil, adminToken, ""); rec.Code != http.StatusConflict {
		t.Fatalf("delete in use: %d, want 409", rec.Code)
	}
}

package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSeed(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	jenis, settings := f.Models()
	if len(jenis) == 0 {
		t.Fatal("no jenis sampah in default seed")
	}
	var inactive int
	for _, j := range jenis {
		if !j.IsActive {
			inactive++
		}
	}
	if inactive != 1 {
		t.Fatalf("%d inactive entries, want 1", inactive)
	}
	found := false
	for _, s := range settings {
		if s.SettingKey == "cs_whatsapp_number" {
			found = s.Description != nil
		}
	}
	if !found {
		t.Fatal("cs_whatsapp_number setting missing")
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "jenis_sampah:\n  - nama: Kaca\n    harga: 100\n",
		"empty nama":  "jenis_sampah:\n  - nama: \"  \"\n",
		"dup nama":    "jenis_sampah:\n  - nama: Kaca\n  - nama: kaca\n",
		"dup key":     "settings:\n  - key: a\n  - key: a\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFromPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(p, []byte("jenis_sampah:\n  - nama: Besi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.JenisSampah) != 1 || f.JenisSampah[0].Nama != "Besi" {
		t.Fatalf("unexpected seed: %+v", f)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read seed file") {
		t.Fatalf("missing file err = %v", err)
	}
}

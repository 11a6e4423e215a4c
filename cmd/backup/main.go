package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banksampah/config"
	"banksampah/pkg/backup"
	"banksampah/pkg/logger"
	"banksampah/process/backupwatch"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  backup export [-out file]
  backup import [-recompute] <file>
  backup watch  [-recompute] [-dir dir]`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	out := fs.String("out", "", "output file (default backup-<timestamp>.json)")
	recompute := fs.Bool("recompute", false, "rebuild saldo from history instead of requiring it to match")
	dir := fs.String("dir", "backups/incoming", "directory to watch for *.json backups")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, true); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	if cfg.DatabaseDSN == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importFile := func(ctx context.Context, path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		p, err := backup.Decode(f)
		if err != nil {
			return err
		}
		counts, err := backup.Import(ctx, db, p, *recompute)
		if err != nil {
			return err
		}
		fmt.Printf("imported %s: users=%d setoran=%d pencairan=%d artikel=%d\n",
			path, counts.Users, counts.Setoran, counts.Pencairan, counts.Artikel)
		return nil
	}

	switch cmd {
	case "export":
		source, _ := os.Hostname()
		p, err := backup.Export(ctx, db, "cli@"+source)
		if err != nil {
			log.Fatalf("export: %v", err)
		}
		name := *out
		if name == "" {
			name = fmt.Sprintf("backup-%s.json", time.Now().Format("20060102-150405"))
		}
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			log.Fatalf("encode: %v", err)
		}
		if err := os.WriteFile(name, b, 0o600); err != nil {
			log.Fatalf("write %s: %v", name, err)
		}
		fmt.Printf("wrote %s (users=%d setoran=%d pencairan=%d)\n",
			name, p.Metadata.Counts.Users, p.Metadata.Counts.Setoran, p.Metadata.Counts.Pencairan)
	case "import":
		if fs.NArg() != 1 {
			usage()
		}
		if err := importFile(ctx, fs.Arg(0)); err != nil {
			log.Fatalf("import: %v", err)
		}
	case "watch":
		if err := os.MkdirAll(*dir, 0o755); err != nil {
			log.Fatalf("create %s: %v", *dir, err)
		}
		if err := backupwatch.Watch(ctx, *dir, importFile); err != nil {
			log.Fatalf("watch: %v", err)
		}
	default:
		usage()
	}
}

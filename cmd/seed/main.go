package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eduplatform/internal/config"
	pg "eduplatform/internal/infra/db/postgres"
	"eduplatform/internal/infra/importer"
	"eduplatform/internal/infra/logging"
	red "eduplatform/internal/infra/redis"
	"eduplatform/internal/usecase"
)

type seedFile struct {
	Users []struct {
		ID    string `yaml:"id"`
		Email string `yaml:"email"`
	} `yaml:"users"`
	PromoCodes []struct {
		Code        string     `yaml:"code"`
		FreeDays    int        `yaml:"free_days"`
		MaxUses     int        `yaml:"max_uses"`
		ExpiresAt   *time.Time `yaml:"expires_at"`
		ContentType *string    `yaml:"content_type"`
		Level       *string    `yaml:"level"`
		Language    *string    `yaml:"language"`
		Description string     `yaml:"description"`
	} `yaml:"promo_codes"`
}

func main() {
	seedPath := flag.String("seed", "", "YAML file with users and promo codes")
	importFrom := flag.String("import", "", "CSV (optionally gzipped) of promo codes: local path or s3://bucket/key")

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if *seedPath == "" && *importFrom == "" {
		logger.Fatal().Msg("nothing to do: pass -seed and/or -import")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	adminUC := usecase.NewPromoAdminUseCase(
		pg.NewPostgresPromoCodeRepo(pool),
		pg.NewPostgresUserRepo(pool),
		pg.NewPostgresRedemptionRepo(pool),
		logger,
	)

	if *seedPath != "" {
		if err := seed(ctx, adminUC, *seedPath); err != nil {
			logger.Fatal().Err(err).Msg("seed")
		}
	}

	if *importFrom != "" {
		var locker red.Locker
		if rc, err := red.NewClient(ctx, &cfg.Redis); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, importing without a lock")
		} else {
			defer rc.Close()
			locker = red.NewLocker(rc)
		}

		var s3Src importer.Source
		if strings.HasPrefix(*importFrom, "s3://") {
			if s3Src, err = importer.NewS3Source(ctx, cfg.Importer, *logger); err != nil {
				logger.Fatal().Err(err).Msg("s3")
			}
		}
		im := importer.New(importer.NewRoutingSource(s3Src, importer.NewFileSource()), adminUC, locker, *logger)
		rep, err := im.Import(ctx, *importFrom)
		if err != nil {
			logger.Fatal().Err(err).Msg("import")
		}
		fmt.Printf("imported from %s: created=%d skipped=%d failed=%d\n", *importFrom, rep.Created, rep.Skipped, len(rep.Failed))
		for _, f := range rep.Failed {
			fmt.Printf("  ! %s\n", f)
		}
	}
}

func seed(ctx context.Context, adminUC usecase.PromoAdminUseCase, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var sf seedFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, u := range sf.Users {
		if _, err := adminUC.UpsertUser(ctx, u.ID, u.Email); err != nil {
			return fmt.Errorf("user %q: %w", u.ID, err)
		}
		fmt.Printf("seeded user: %s\n", u.ID)
	}

	in := make([]usecase.NewPromoCodeInput, 0, len(sf.PromoCodes))
	for _, p := range sf.PromoCodes {
		in = append(in, usecase.NewPromoCodeInput{
			Code:        p.Code,
			FreeDays:    p.FreeDays,
			MaxUses:     p.MaxUses,
			ExpiresAt:   p.ExpiresAt,
			ContentType: p.ContentType,
			Level:       p.Level,
			Language:    p.Language,
			Description: p.Description,
		})
	}
	rep, err := adminUC.ImportPromoCodes(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("seeded promo codes: created=%d skipped=%d failed=%d\n", rep.Created, rep.Skipped, len(rep.Failed))
	return nil
}

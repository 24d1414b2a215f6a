package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	red "eduplatform/internal/infra/redis"
	"eduplatform/internal/usecase"
)

// Importer loads a promo code file and creates the codes it lists.
type Importer struct {
	src    Source
	admin  usecase.PromoAdminUseCase
	locker red.Locker // optional
	log    zerolog.Logger
}

func New(src Source, admin usecase.PromoAdminUseCase, locker red.Locker, logger zerolog.Logger) *Importer {
	return &Importer{
		src:    src,
		admin:  admin,
		locker: locker,
		log:    logger.With().Str("component", "promo-importer").Logger(),
	}
}

// Import holds a Redis lock on location, when a locker is configured, so two
// operators cannot run the same import at once.
func (im *Importer) Import(ctx context.Context, location string) (*usecase.ImportReport, error) {
	if im.locker != nil {
		key := "lock:promo_import:" + location
		token, err := im.locker.TryLock(ctx, key, 10*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("import of %s already running: %w", location, err)
		}
		defer func() {
			if err := im.locker.Unlock(context.Background(), key, token); err != nil {
				im.log.Warn().Err(err).Msg("unlock failed")
			}
		}()
	}

	rc, err := im.src.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	im.log.Info().Str("location", location).Int("rows", len(rows)).Msg("promo import parsed")

	return im.admin.ImportPromoCodes(ctx, rows)
}

package storage

import (
	"context"
	"log/slog"

	"github.com/luciusandi/bumbootools/internal/types"
)

// Router decides where normalized output lands: matched records go to
// the primary store, unmatched ones to a review dump so new catalog
// entries can be written for them. A failed upsert falls back to a
// dump file, never losing the batch.
type Router struct {
	store      Store
	dump       *JSONDump
	alwaysDump bool
	logger     *slog.Logger
}

func NewRouter(store Store, dump *JSONDump, alwaysDump bool, logger *slog.Logger) *Router {
	return &Router{
		store:      store,
		dump:       dump,
		alwaysDump: alwaysDump,
		logger:     logger.With("component", "storage_router"),
	}
}

// Route persists one normalization outcome. The review dump for
// unmatched records is written first so a store failure cannot cost
// the unmatched side.
func (r *Router) Route(ctx context.Context, matched, unmatched []types.ProductRecord) error {
	if len(unmatched) > 0 {
		if _, err := r.dump.Dump(unmatched, "review"); err != nil {
			r.logger.Error("review dump failed", "records", len(unmatched), "error", err)
		}
	}

	if len(matched) == 0 {
		return nil
	}

	if r.alwaysDump {
		if _, err := r.dump.Dump(matched, "scrape"); err != nil {
			r.logger.Warn("matched dump failed", "error", err)
		}
	}

	if r.store == nil {
		if r.alwaysDump {
			return nil
		}
		_, err := r.dump.Dump(matched, "scrape")
		return err
	}

	if err := r.store.Upsert(ctx, matched); err != nil {
		r.logger.Error("store upsert failed, dumping batch",
			"backend", r.store.Name(), "records", len(matched), "error", err)
		if _, dumpErr := r.dump.Dump(matched, "scrape"); dumpErr != nil {
			return dumpErr
		}
		return err
	}
	return nil
}

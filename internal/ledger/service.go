package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshuahuffman02/Camp-Everyday/internal/apperr"
)

type Service interface {
	// Record validates every DoubleEntry, then writes them in order. Nothing is written
	// if any entry fails validation.
	Record(ctx context.Context, entries ...DoubleEntry) (Result, error)
}

type service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, logger: logger}
}

var _ Service = (*service)(nil)

func (s *service) Record(ctx context.Context, entries ...DoubleEntry) (Result, error) {
	for i, d := range entries {
		if err := d.Validate(); err != nil {
			return Result{}, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	var total Result
	for _, d := range entries {
		res, err := s.store.RecordDoubleEntry(ctx, d)
		if err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				return total, err
			}
			return total, apperr.Wrap(apperr.ErrPersistence, err, "record "+baseKeyOf(d))
		}
		if res.Duplicates > 0 {
			s.logger.Debug("ledger entry already recorded", "dedupe_key", baseKeyOf(d), "duplicates", res.Duplicates)
		}
		total.Add(res)
	}
	return total, nil
}

func baseKeyOf(d DoubleEntry) string {
	return strings.TrimSuffix(d.Debit.DedupeKey, "-"+string(Debit))
}

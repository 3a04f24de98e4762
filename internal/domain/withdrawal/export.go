package withdrawal

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

// Export describes one payout batch file.
type Export struct {
	Key      string          `json:"key"`
	URL      string          `json:"url"`
	Count    int             `json:"count"`
	TotalInr decimal.Decimal `json:"totalInr"`
}

var exportHeader = []string{"request_id", "user_id", "upi_id", "diamonds", "inr_amount", "requested_at"}

// ExportPending writes every pending request, oldest first, as a CSV the
// finance team pays out from.
func (s *Service) ExportPending(ctx context.Context) (*Export, error) {
	if s.exports == nil {
		return nil, ErrExportUnavailable
	}

	pending, err := s.find(ctx, ledger.Query{
		Collection: ledger.WithdrawalRequests,
		Filters:    []ledger.Filter{ledger.Where("status", ledger.Eq, string(StatusPending))},
		OrderBy:    &ledger.Sort{Field: "requestedAt", Kind: ledger.SortTime},
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(exportHeader); err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, r := range pending {
		total = total.Add(r.InrAmount)
		if err := cw.Write([]string{
			r.RequestID,
			r.UserID,
			r.UpiID,
			strconv.FormatInt(r.Diamonds, 10),
			r.InrAmount.StringFixed(2),
			r.RequestedAt.Format(time.RFC3339),
		}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	key, err := s.exportKey(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.exports.Put(ctx, key, &buf, "text/csv"); err != nil {
		return nil, fmt.Errorf("upload payout batch: %w", err)
	}

	exp := &Export{Key: key, URL: s.exports.GetURL(key), Count: len(pending), TotalInr: total}
	log.Info().Str("key", key).Int("count", exp.Count).Str("total_inr", total.StringFixed(2)).Msg("payout batch exported")
	return exp, nil
}

// exportKey names the batch by time, adding a suffix if an export already
// landed in the same second.
func (s *Service) exportKey(ctx context.Context) (string, error) {
	now := s.now()
	base := fmt.Sprintf("payouts/%s/payouts_%s", now.Format("2006-01-02"), now.Format("150405"))
	key := base + ".csv"
	for i := 2; ; i++ {
		taken, err := s.exports.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
		if i > 50 {
			return "", fmt.Errorf("no free export key under %s", base)
		}
		key = fmt.Sprintf("%s_%d.csv", base, i)
	}
}

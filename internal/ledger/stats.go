package ledger

import (
	"context"

	id "partnerd/pkg/domain"
	dErrors "partnerd/pkg/domain-errors"
)

// Stats summarises one participant's track record. SuccessRate is a percentage
// over all partnerships the participant took part in; TotalEarned counts only
// completed partnerships where the participant was the counterparty, since
// refunds return the participant's own funds.
type Stats struct {
	TotalPartnerships     int       `json:"total_partnerships"`
	CompletedPartnerships int       `json:"completed_partnerships"`
	SuccessRate           float64   `json:"success_rate"`
	TotalEarned           id.Amount `json:"total_earned"`
}

// StatsFor computes the summary for addr by scanning the participant's
// partnerships. A participant with no partnerships gets the zero summary; the
// rate is 0, not NaN.
func (s *Service) StatsFor(ctx context.Context, addr id.Address) (Stats, error) {
	ids, err := s.store.ListByParticipant(ctx, addr)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list partnerships")
	}

	var stats Stats
	for _, pid := range ids {
		partnership, err := s.store.Find(ctx, pid)
		if err != nil {
			return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partnership")
		}
		stats.TotalPartnerships++
		if !partnership.Completed {
			continue
		}
		stats.CompletedPartnerships++
		if partnership.Counterparty == addr {
			earned, err := stats.TotalEarned.Add(partnership.Amount)
			if err != nil {
				return Stats{}, err
			}
			stats.TotalEarned = earned
		}
	}
	if stats.TotalPartnerships > 0 {
		stats.SuccessRate = float64(stats.CompletedPartnerships) / float64(stats.TotalPartnerships) * 100
	}
	return stats, nil
}

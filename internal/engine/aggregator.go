package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/model"
)

// aggregator folds per-platform and per-record outcomes into job-level
// summaries and pushes them out through the sinks. Sink failures are
// logged; they never change a job's terminal status.
type aggregator struct {
	converter  client.CurrencyConverter
	resolver   CatalogResolver
	channels   ChannelStatusSink
	earnings   EarningsSink
	logger     *slog.Logger
	currency   string
	commission float64
}

// finalizeDistribution persists each platform's delivery outcome and
// computes the job-level summary.
func (a *aggregator) finalizeDistribution(ctx context.Context, job *model.Job, p *model.DistributionPayload, order []string, results map[string]model.SubmissionResult) *model.DistributionSummary {
	summary := &model.DistributionSummary{
		ReleaseID: p.ReleaseID,
		Results:   results,
	}

	for _, name := range order {
		update := model.ChannelUpdate{
			Platform:  name,
			ReleaseID: p.ReleaseID,
			UpdatedAt: time.Now(),
		}
		if res, ok := results[name]; ok {
			update.Status = model.ChannelStatusDelivered
			update.ExternalID = res.ExternalID
			update.ExternalURL = res.ExternalURL
			summary.Succeeded = append(summary.Succeeded, name)
		} else {
			update.Status = model.ChannelStatusRejected
			if entry, ok := job.Progress[name]; ok {
				update.ErrorDetails = entry.Error
			}
			summary.Failed = append(summary.Failed, name)
		}

		if a.channels != nil {
			if err := a.channels.Update(ctx, update); err != nil {
				a.logger.Warn("channel status update failed",
					slog.String("job_id", job.ID),
					slog.String("platform", name),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if len(order) > 0 {
		summary.SuccessRate = int(math.Round(float64(len(summary.Succeeded)) / float64(len(order)) * 100))
	}
	return summary
}

// finalizeIngestion converts, persists and folds the valid records into
// per-currency/territory/track totals, then emits one statement per
// rights-holder.
func (a *aggregator) finalizeIngestion(ctx context.Context, job *model.Job, p *model.IngestionPayload, records []model.NormalizedRecord, warnings []string) (*model.IngestionSummary, error) {
	summary := &model.IngestionSummary{
		Platform:       p.Platform,
		RecordsValid:   len(records),
		RecordsSkipped: len(warnings),
		Warnings:       warnings,
		Currency:       a.currency,
		ByCurrency:     make(map[string]float64),
		ByTerritory:    make(map[string]float64),
	}

	type holderTotals struct {
		gross       float64
		units       int64
		byTerritory map[string]float64
		byTrack     map[string]float64
	}
	holders := make(map[string]*holderTotals)

	for i, rec := range records {
		ref, err := a.resolve(ctx, &rec)
		if err != nil {
			summary.RecordsValid--
			summary.RecordsSkipped++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}

		converted, err := a.converter.Convert(ctx, rec.Amount, rec.Currency, a.currency)
		if err != nil {
			return nil, fmt.Errorf("convert %s to %s: %w", rec.Currency, a.currency, err)
		}
		converted = roundCents(converted)

		earning := &model.Earnings{
			ID:             uuid.New().String(),
			JobID:          job.ID,
			Platform:       p.Platform,
			TrackID:        ref.TrackID,
			HolderID:       ref.HolderID,
			Territory:      rec.Territory,
			RevenueType:    rec.RevenueType,
			Units:          rec.Units,
			Amount:         converted,
			Currency:       a.currency,
			ReportedAmount: rec.Amount,
			ReportedIn:     rec.Currency,
			Period:         rec.Period,
			CreatedAt:      time.Now(),
		}
		if a.earnings != nil {
			if err := a.earnings.CreateEarnings(ctx, earning); err != nil {
				return nil, fmt.Errorf("persist earnings: %w", err)
			}
		}

		summary.GrossRevenue = roundCents(summary.GrossRevenue + converted)
		summary.TotalUnits += rec.Units
		summary.ByCurrency[rec.Currency] = roundCents(summary.ByCurrency[rec.Currency] + rec.Amount)
		summary.ByTerritory[rec.Territory] = roundCents(summary.ByTerritory[rec.Territory] + converted)

		h, ok := holders[ref.HolderID]
		if !ok {
			h = &holderTotals{
				byTerritory: make(map[string]float64),
				byTrack:     make(map[string]float64),
			}
			holders[ref.HolderID] = h
		}
		h.gross = roundCents(h.gross + converted)
		h.units += rec.Units
		h.byTerritory[rec.Territory] = roundCents(h.byTerritory[rec.Territory] + converted)
		h.byTrack[ref.TrackID] = roundCents(h.byTrack[ref.TrackID] + converted)
	}

	if summary.RecordsValid == 0 {
		return nil, fmt.Errorf("no record could be resolved against the catalog")
	}

	for holderID, h := range holders {
		statement := &model.RoyaltyStatement{
			ID:           uuid.New().String(),
			HolderID:     holderID,
			Platform:     p.Platform,
			Period:       p.Period,
			Currency:     a.currency,
			GrossRevenue: h.gross,
			NetRevenue:   roundCents(h.gross * (1 - a.commission)),
			TotalUnits:   h.units,
			ByTerritory:  h.byTerritory,
			ByTrack:      h.byTrack,
			Status:       "completed",
			CreatedAt:    time.Now(),
		}
		if a.earnings != nil {
			if err := a.earnings.CreateStatement(ctx, statement); err != nil {
				return nil, fmt.Errorf("persist statement for holder %s: %w", holderID, err)
			}
		}
		summary.Statements++
	}

	return summary, nil
}

// resolve maps one record to the catalog. Without a resolver the track
// key itself becomes the identity, so standalone deployments still
// aggregate correctly.
func (a *aggregator) resolve(ctx context.Context, rec *model.NormalizedRecord) (TrackRef, error) {
	if a.resolver == nil {
		key := rec.TrackKey()
		return TrackRef{TrackID: key, HolderID: key}, nil
	}
	return a.resolver.Resolve(ctx, rec.ISRC, rec.TrackTitle, rec.Artist)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

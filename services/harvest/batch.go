package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ErrAllFailed wraps the aggregate error returned when not a single
// campaign in a batch produced a record.
var ErrAllFailed = errors.New("every campaign in the batch failed")

const failureDigestSize = 3

// ResultSink receives finished composite records for downstream export.
type ResultSink interface {
	SaveRecord(ctx context.Context, record CompositeRecord) error
}

type BatchFailure struct {
	CampaignId int64
	Err        error
}

type BatchSummary struct {
	Succeeded int
	Failed    int
	Failures  []BatchFailure
}

// HarvestBatch processes campaigns strictly one at a time; a campaign's
// whole pipeline finishes before the next begins, so the browser context
// is never shared. Per-campaign failure is recorded and the batch moves
// on. The returned error is non-nil only when every campaign failed.
func (s Service) HarvestBatch(ctx context.Context, campaignIds []int64, sink ResultSink) (BatchSummary, error) {
	ctx, span := tracer.Start(ctx, "HarvestBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("campaigns", len(campaignIds)))

	var summary BatchSummary
	for _, id := range campaignIds {
		record, err := s.GetCompositeRecord(ctx, id)
		if err == nil && sink != nil {
			err = sink.SaveRecord(ctx, record)
		}
		if err != nil {
			slog.ErrorContext(ctx, "campaign failed", "campaign_id", id, "err", err)
			summary.Failed++
			summary.Failures = append(summary.Failures, BatchFailure{CampaignId: id, Err: err})
			continue
		}
		summary.Succeeded++
	}

	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded),
		attribute.Int("failed", summary.Failed),
	)
	slog.InfoContext(ctx, "batch finished",
		"succeeded", summary.Succeeded, "failed", summary.Failed)

	if len(campaignIds) > 0 && summary.Succeeded == 0 {
		return summary, fmt.Errorf("%w: %s", ErrAllFailed, summary.digest())
	}
	return summary, nil
}

// digest is a human-readable sample of the first few failures.
func (s BatchSummary) digest() string {
	var sb strings.Builder
	for i, failure := range s.Failures {
		if i >= failureDigestSize {
			fmt.Fprintf(&sb, "; and %d more", len(s.Failures)-failureDigestSize)
			break
		}
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "campaign %d: %v", failure.CampaignId, failure.Err)
	}
	return sb.String()
}

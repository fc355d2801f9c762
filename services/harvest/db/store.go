package db

import (
	"context"
	"database/sql"
	"strings"

	"mailmetrics-backend/services/harvest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/harvest/db")

// Store persists composite records into sqlite. It implements
// harvest.ResultSink.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// SaveRecord rewrites everything known about one campaign in a single
// transaction, so a re-harvest fully replaces the previous run's rows.
func (s Store) SaveRecord(ctx context.Context, record harvest.CompositeRecord) error {
	ctx, span := tracer.Start(ctx, "SaveRecord", trace.WithAttributes(
		attribute.Int64("campaign_id", record.CampaignId),
	))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM campaign_subscribers WHERE campaign_id = ?`, record.CampaignId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM campaign_links WHERE campaign_id = ?`, record.CampaignId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO campaign_records (
			campaign_id, name, subject, email_from, status, date_sent,
			emails_to_send, total_delivered, opened, unopened,
			unique_clicks, total_clicks, hard_bounces, soft_bounces,
			unsubscribes, complaints, open_rate, click_rate, bounce_rate,
			source_api, source_scraping, degraded, harvested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CampaignId,
		record.Identity.Name,
		record.Identity.Subject,
		record.Identity.EmailFrom,
		record.Identity.Status,
		record.Identity.DateSent,
		record.Totals.EmailsToSend,
		record.Totals.TotalDelivered,
		record.Totals.Opened,
		record.Totals.Unopened,
		record.Totals.UniqueClicks,
		record.Totals.TotalClicks,
		record.Totals.HardBounces,
		record.Totals.SoftBounces,
		record.Totals.Unsubscribes,
		record.Totals.Complaints,
		record.Totals.OpenRate(),
		record.Totals.ClickRate(),
		record.Totals.BounceRate(),
		record.Sources.API,
		record.Sources.Scraping,
		strings.Join(record.Degraded, ","),
		record.HarvestedAt.Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	insertSubscriber, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_subscribers (campaign_id, grouping, email, detail, page)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer insertSubscriber.Close()

	for _, opener := range record.Openers {
		_, err = insertSubscriber.ExecContext(ctx,
			record.CampaignId, "opener", opener.Email, opener.OpenDatetime, 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	for _, clicker := range record.Clicks {
		_, err = insertSubscriber.ExecContext(ctx,
			record.CampaignId, "clicker", clicker.Email, clicker.ClickDatetime, 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	for _, bounce := range record.SoftBounces {
		_, err = insertSubscriber.ExecContext(ctx,
			record.CampaignId, "soft_bounce", bounce.Email, bounce.Date, 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	for _, sub := range record.HardBounces.Subscribers {
		_, err = insertSubscriber.ExecContext(ctx,
			record.CampaignId, "hard_bounce", sub.Email, sub.Detail, sub.Page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	for _, sub := range record.NonOpeners.Subscribers {
		_, err = insertSubscriber.ExecContext(ctx,
			record.CampaignId, "non_opener", sub.Email, sub.Detail, sub.Page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	for _, link := range record.Links {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaign_links (campaign_id, url, clicks)
			VALUES (?, ?, ?)`,
			record.CampaignId, link.Url, link.Clicks)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	return tx.Commit()
}

// SubscriberCount reports how many rows a grouping holds for a campaign.
func (s Store) SubscriberCount(ctx context.Context, campaignId int64, grouping string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM campaign_subscribers
		WHERE campaign_id = ? AND grouping = ?`,
		campaignId, grouping).Scan(&count)
	return count, err
}

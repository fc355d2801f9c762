// Package harvest merges the two views of a campaign, the REST API's
// authoritative counters and the web UI's scraped subscriber groups,
// into composite records and runs batches of them.
package harvest

import (
	"context"
	"log/slog"
	"time"

	acumbaapi "mailmetrics-backend/lib/platforms/acumba"
	acumbascrape "mailmetrics-backend/lib/scrapers/acumba"
	"mailmetrics-backend/lib/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/harvest")

// subscriber-detail grid width in the web UI
const subscriberDetailColumns = 7

// CampaignAPI is the slice of the platform client the orchestrator
// consumes.
type CampaignAPI interface {
	GetCampaigns(ctx context.Context) ([]acumbaapi.CampaignSummary, error)
	GetCampaignBasicInfo(ctx context.Context, campaignId int64) (acumbaapi.CampaignBasicInfo, error)
	GetCampaignTotals(ctx context.Context, campaignId int64) (acumbaapi.CampaignTotals, error)
	GetCampaignOpeners(ctx context.Context, campaignId int64) ([]acumbaapi.Opener, error)
	GetCampaignClicks(ctx context.Context, campaignId int64) ([]acumbaapi.Clicker, error)
	GetCampaignLinks(ctx context.Context, campaignId int64) ([]acumbaapi.Link, error)
	GetCampaignSoftBounces(ctx context.Context, campaignId int64) ([]acumbaapi.SoftBounce, error)
	GetLists(ctx context.Context) ([]acumbaapi.SubscriberList, error)
}

// Scraper is the authenticated web UI collaborator. Optional; without
// one, records carry API data only.
type Scraper interface {
	Login(ctx context.Context) error
	ValidateSession(ctx context.Context) (bool, error)
	ExtractFilter(ctx context.Context, filter string, expectedColumns int) (acumbascrape.FilterResult, error)
}

type Service struct {
	api     CampaignAPI
	scraper Scraper
	lists   *ListCatalogCache
	policy  retry.Policy
	now     func() time.Time
}

type ServiceOptions struct {
	API CampaignAPI
	// Scraper may be nil when no browser is available.
	Scraper Scraper
	// ListCache may be nil to fetch the list catalog every time.
	ListCache *ListCatalogCache
	// Retry defaults to retry.DefaultPolicy when nil. A non-nil policy
	// is used as given, so MaxRetries zero really means no retries.
	Retry *retry.Policy
}

func NewService(opts ServiceOptions) Service {
	policy := retry.DefaultPolicy
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	return Service{
		api:     opts.API,
		scraper: opts.Scraper,
		lists:   opts.ListCache,
		policy:  policy,
		now:     time.Now,
	}
}

// GetCompositeRecord builds the merged record for one campaign.
// Identity failure is fatal; every other portion degrades independently
// and is listed under Degraded.
func (s Service) GetCompositeRecord(ctx context.Context, campaignId int64) (CompositeRecord, error) {
	ctx, span := tracer.Start(ctx, "GetCompositeRecord", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	record := CompositeRecord{CampaignId: campaignId, HarvestedAt: s.now()}

	err := retry.DoIf(ctx, s.policy, retry.IsConnectionError, func() error {
		var err error
		record.Identity, err = s.api.GetCampaignBasicInfo(ctx, campaignId)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CompositeRecord{}, err
	}
	record.Sources.API = true

	s.degrade(ctx, &record, "totals", func() error {
		var err error
		record.Totals, err = s.api.GetCampaignTotals(ctx, campaignId)
		return err
	})
	s.degrade(ctx, &record, "openers", func() error {
		var err error
		record.Openers, err = s.api.GetCampaignOpeners(ctx, campaignId)
		return err
	})
	s.degrade(ctx, &record, "clicks", func() error {
		var err error
		record.Clicks, err = s.api.GetCampaignClicks(ctx, campaignId)
		return err
	})
	s.degrade(ctx, &record, "links", func() error {
		var err error
		record.Links, err = s.api.GetCampaignLinks(ctx, campaignId)
		return err
	})
	s.degrade(ctx, &record, "soft_bounces", func() error {
		var err error
		record.SoftBounces, err = s.api.GetCampaignSoftBounces(ctx, campaignId)
		return err
	})
	s.degrade(ctx, &record, "lists", func() error {
		var err error
		record.Lists, err = s.catalog(ctx)
		return err
	})

	if s.scraper != nil {
		s.scrapeGroups(ctx, &record)
	}

	span.SetAttributes(
		attribute.Bool("source_api", record.Sources.API),
		attribute.Bool("source_scraping", record.Sources.Scraping),
		attribute.StringSlice("degraded", record.Degraded),
	)
	return record, nil
}

// degrade runs one optional fetch under the retry policy. Failure is
// logged and recorded, never propagated; the record keeps the zero value
// for that portion.
func (s Service) degrade(ctx context.Context, record *CompositeRecord, portion string, fetch func() error) {
	err := retry.DoIf(ctx, s.policy, retry.IsConnectionError, fetch)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "portion degraded to default",
		"campaign_id", record.CampaignId, "portion", portion, "err", err)
	record.Degraded = append(record.Degraded, portion)
}

func (s Service) catalog(ctx context.Context) ([]acumbaapi.SubscriberList, error) {
	if s.lists != nil {
		if cached, ok := s.lists.Get(ctx); ok {
			return cached, nil
		}
	}
	lists, err := s.api.GetLists(ctx)
	if err != nil {
		return nil, err
	}
	if s.lists != nil {
		s.lists.Put(ctx, lists)
	}
	return lists, nil
}

// scrapeGroups extracts the hard-bounce and non-opener lists. Both
// coming back empty while the session sits at the login page means the
// session died mid-run; that earns exactly one re-authentication cycle.
// A genuine zero-row result with a live session is accepted as is.
func (s Service) scrapeGroups(ctx context.Context, record *CompositeRecord) {
	ctx, span := tracer.Start(ctx, "scrapeGroups")
	defer span.End()

	hard, nonOpen, ok := s.extractBoth(ctx, record.CampaignId)
	if ok && len(hard.Rows) == 0 && len(nonOpen.Rows) == 0 {
		valid, err := s.scraper.ValidateSession(ctx)
		if err == nil && !valid {
			slog.WarnContext(ctx, "session expired mid-run, re-authenticating once",
				"campaign_id", record.CampaignId)
			span.AddEvent("reauthenticate")
			if err := s.scraper.Login(ctx); err != nil {
				slog.ErrorContext(ctx, "re-authentication failed", "err", err)
				record.Sources.Scraping = false
				record.Degraded = append(record.Degraded, "scraping")
				return
			}
			hard, nonOpen, ok = s.extractBoth(ctx, record.CampaignId)
		}
	}
	if !ok {
		record.Sources.Scraping = false
		record.Degraded = append(record.Degraded, "scraping")
		return
	}

	record.HardBounces = newScrapedGroup(hard)
	record.NonOpeners = newScrapedGroup(nonOpen)
	record.Sources.Scraping = true
}

func (s Service) extractBoth(ctx context.Context, campaignId int64) (hard, nonOpen acumbascrape.FilterResult, ok bool) {
	var err error
	hard, err = s.scraper.ExtractFilter(ctx, acumbascrape.FilterHardBounces, subscriberDetailColumns)
	if err != nil {
		slog.WarnContext(ctx, "hard-bounce extraction unavailable",
			"campaign_id", campaignId, "err", err)
		return hard, nonOpen, false
	}
	nonOpen, err = s.scraper.ExtractFilter(ctx, acumbascrape.FilterNotOpened, subscriberDetailColumns)
	if err != nil {
		slog.WarnContext(ctx, "non-opener extraction unavailable",
			"campaign_id", campaignId, "err", err)
		return hard, nonOpen, false
	}
	return hard, nonOpen, true
}

package harvest

import (
	"time"

	acumbaapi "mailmetrics-backend/lib/platforms/acumba"
	acumbascrape "mailmetrics-backend/lib/scrapers/acumba"
)

// DataSources records which half of the hybrid pipeline actually
// produced data for a record. A record with Scraping false is still
// valid, just degraded.
type DataSources struct {
	API      bool `json:"api"`
	Scraping bool `json:"scraping"`
}

// ScrapedSubscriber is one row lifted out of the web UI's subscriber
// lists, reduced to the fields downstream cares about.
type ScrapedSubscriber struct {
	Email  string `json:"email"`
	Detail string `json:"detail"`
	Page   int    `json:"page"`
}

// ScrapedGroup is one filter's worth of scraped subscribers together
// with how completely it was read.
type ScrapedGroup struct {
	Subscribers []ScrapedSubscriber  `json:"subscribers"`
	Outcome     acumbascrape.Outcome `json:"outcome"`
}

func newScrapedGroup(result acumbascrape.FilterResult) ScrapedGroup {
	group := ScrapedGroup{Outcome: result.Outcome}
	for _, row := range result.Rows {
		sub := ScrapedSubscriber{Email: row.Fields[0], Page: row.Page}
		if len(row.Fields) > 1 {
			sub.Detail = row.Fields[1]
		}
		group.Subscribers = append(group.Subscribers, sub)
	}
	return group
}

// CompositeRecord merges the authoritative API view of a campaign with
// the best-effort scraped one. Identity is never partial; everything
// else degrades independently.
type CompositeRecord struct {
	CampaignId int64                       `json:"campaign_id"`
	Identity   acumbaapi.CampaignBasicInfo `json:"identity"`
	Totals     acumbaapi.CampaignTotals    `json:"totals"`

	Openers     []acumbaapi.Opener         `json:"openers"`
	Clicks      []acumbaapi.Clicker        `json:"clicks"`
	Links       []acumbaapi.Link           `json:"links"`
	SoftBounces []acumbaapi.SoftBounce     `json:"soft_bounces"`
	Lists       []acumbaapi.SubscriberList `json:"lists"`

	HardBounces ScrapedGroup `json:"hard_bounces"`
	NonOpeners  ScrapedGroup `json:"non_openers"`

	Sources DataSources `json:"data_sources"`
	// Degraded names the portions whose fetch failed and fell back to
	// an empty value.
	Degraded    []string  `json:"degraded,omitempty"`
	HarvestedAt time.Time `json:"harvested_at"`
}

package acumba

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetCampaigns lists all campaigns visible to the account, including
// unsent ones.
func (c *Client) GetCampaigns(ctx context.Context) ([]CampaignSummary, error) {
	ctx, span := tracer.Start(ctx, "GetCampaigns")
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaigns", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaigns", map[string]string{
			"complete_json": "1",
		})
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	catalog, err := decodeKeyedCatalog("getCampaigns", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	out := make([]CampaignSummary, len(catalog))
	for i, item := range catalog {
		out[i] = CampaignSummary{Id: item.Id, Name: item.Name}
	}
	span.SetAttributes(attribute.Int("campaigns", len(out)))
	return out, nil
}

// GetCampaignBasicInfo returns campaign identity fields. Results are
// memoized per campaign id since identity never changes after send.
func (c *Client) GetCampaignBasicInfo(ctx context.Context, campaignId int64) (CampaignBasicInfo, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignBasicInfo", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	if cached, ok := c.identity.Get(campaignId); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignBasicInformation", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignBasicInformation", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return CampaignBasicInfo{}, spanErr(span, err)
	}

	info, err := decodeObject[CampaignBasicInfo]("getCampaignBasicInformation", raw)
	if err != nil {
		return CampaignBasicInfo{}, spanErr(span, err)
	}
	c.identity.Add(campaignId, info)
	return info, nil
}

// GetCampaignTotals returns aggregate delivery counters for a campaign.
func (c *Client) GetCampaignTotals(ctx context.Context, campaignId int64) (CampaignTotals, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignTotals", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignTotalInformation", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignTotalInformation", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return CampaignTotals{}, spanErr(span, err)
	}

	totals, err := decodeObject[CampaignTotals]("getCampaignTotalInformation", raw)
	if err != nil {
		return CampaignTotals{}, spanErr(span, err)
	}
	return totals, nil
}

// GetCampaignOpeners returns every subscriber that opened the campaign,
// with open timestamps.
func (c *Client) GetCampaignOpeners(ctx context.Context, campaignId int64) ([]Opener, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignOpeners", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignOpeners", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignOpeners", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	openers, err := decodeObjectList[Opener]("getCampaignOpeners", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	span.SetAttributes(attribute.Int("openers", len(openers)))
	return openers, nil
}

// GetCampaignClicks returns every subscriber that clicked a link in the
// campaign.
func (c *Client) GetCampaignClicks(ctx context.Context, campaignId int64) ([]Clicker, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignClicks", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignClicks", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignClicks", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	clicks, err := decodeObjectList[Clicker]("getCampaignClicks", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	span.SetAttributes(attribute.Int("clicks", len(clicks)))
	return clicks, nil
}

// GetCampaignLinks returns per-link click totals for the campaign.
func (c *Client) GetCampaignLinks(ctx context.Context, campaignId int64) ([]Link, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignLinks", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignLinks", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignLinks", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	links, err := decodeLinks("getCampaignLinks", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	span.SetAttributes(attribute.Int("links", len(links)))
	return links, nil
}

// GetCampaignSoftBounces returns subscribers that soft-bounced on the
// campaign.
func (c *Client) GetCampaignSoftBounces(ctx context.Context, campaignId int64) ([]SoftBounce, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignSoftBounces", trace.WithAttributes(
		attribute.Int64("campaign_id", campaignId),
	))
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCampaignSoftBounces", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getCampaignSoftBounces", map[string]string{
			"campaign_id": formatId(campaignId),
		})
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	bounces, err := decodeObjectList[SoftBounce]("getCampaignSoftBounces", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	span.SetAttributes(attribute.Int("soft_bounces", len(bounces)))
	return bounces, nil
}

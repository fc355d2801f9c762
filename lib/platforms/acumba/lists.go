package acumba

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// GetLists returns the account's subscriber list catalog.
func (c *Client) GetLists(ctx context.Context) ([]SubscriberList, error) {
	ctx, span := tracer.Start(ctx, "GetLists")
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getLists", func() error {
		var err error
		raw, err = c.getJSON(ctx, "getLists", nil)
		return err
	})
	if err != nil {
		return nil, spanErr(span, err)
	}

	catalog, err := decodeKeyedCatalog("getLists", raw)
	if err != nil {
		return nil, spanErr(span, err)
	}
	out := make([]SubscriberList, len(catalog))
	for i, item := range catalog {
		out[i] = SubscriberList{Id: item.Id, Name: item.Name}
	}
	span.SetAttributes(attribute.Int("lists", len(out)))
	return out, nil
}

// GetCredits returns the account's remaining sending credits. The batch
// runner uses it as a cheap liveness probe before touching campaign
// endpoints.
func (c *Client) GetCredits(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "GetCredits")
	defer span.End()

	var raw json.RawMessage
	err := c.guard(ctx, "acumba.getCredits", func() error {
		var err error
		raw, err = c.postForm(ctx, "getCredits", nil)
		return err
	})
	if err != nil {
		return 0, spanErr(span, err)
	}

	// arrives either as a bare number or a quoted one
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		credits, err := strconv.ParseInt(strings.TrimSpace(asString), 10, 64)
		if err == nil {
			return credits, nil
		}
	}
	return 0, spanErr(span, &ValidationError{Endpoint: "getCredits", Reason: "not a number"})
}

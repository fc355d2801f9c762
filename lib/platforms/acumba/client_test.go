package acumba

import (
	"context"
	"net/http"
	"testing"

	"mailmetrics-backend/lib/ratelimit"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const testBaseUrl = "https://mail.example.com/api/1"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseUrl:   testBaseUrl,
		AuthToken: "test-token",
		Limits:    ratelimit.NewRegistry(),
	})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(ClientOptions{BaseUrl: testBaseUrl})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewClient(ClientOptions{AuthToken: "tok"})
	require.ErrorAs(t, err, &cfgErr)
}

func TestGetCampaignsKeyedListShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaigns",
		httpmock.NewStringResponder(200, `[{"12": "Spring"}, {"7": "Welcome"}]`))

	campaigns, err := client.GetCampaigns(context.Background())
	require.NoError(t, err)
	require.Equal(t, []CampaignSummary{
		{Id: 7, Name: "Welcome"},
		{Id: 12, Name: "Spring"},
	}, campaigns)
}

func TestGetCampaignsKeyedObjectShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaigns",
		httpmock.NewStringResponder(200, `{"12": "Spring", "7": "Welcome"}`))

	campaigns, err := client.GetCampaigns(context.Background())
	require.NoError(t, err)
	require.Equal(t, []CampaignSummary{
		{Id: 7, Name: "Welcome"},
		{Id: 12, Name: "Spring"},
	}, campaigns)
}

func TestGetCampaignsRejectsUnknownShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaigns",
		httpmock.NewStringResponder(200, `"just a string"`))

	_, err := client.GetCampaigns(context.Background())
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "getCampaigns", valErr.Endpoint)
}

func TestGetCampaignBasicInfoMemoizes(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignBasicInformation",
		httpmock.NewStringResponder(200, `{
			"status": "Enviada",
			"date_sent": "2024-03-01 10:00:00",
			"name": "Spring",
			"date": "2024-03-01",
			"total_sent": 1200,
			"email_from": "news@example.com",
			"subject": "Spring deals",
			"lists": []
		}`))

	info, err := client.GetCampaignBasicInfo(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "Spring", info.Name)
	require.EqualValues(t, 1200, info.TotalSent)

	again, err := client.GetCampaignBasicInfo(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, info, again)
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestGetCampaignBasicInfoEnvelopeShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignBasicInformation",
		httpmock.NewStringResponder(200, `{"campaign": {
			"status": "Enviada",
			"name": "Spring",
			"total_sent": 1200,
			"email_from": "news@example.com",
			"subject": "Spring deals"
		}}`))

	info, err := client.GetCampaignBasicInfo(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, "Spring", info.Name)
	require.Equal(t, "news@example.com", info.EmailFrom)
	require.EqualValues(t, 1200, info.TotalSent)
}

func TestGetCampaignBasicInfoRejectsUnreadableEnvelope(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignBasicInformation",
		httpmock.NewStringResponder(200, `{"campaign": "no object here"}`))

	_, err := client.GetCampaignBasicInfo(context.Background(), 12)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "getCampaignBasicInformation", valErr.Endpoint)
}

func TestGetCampaignTotalsToleratesExtraFields(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignTotalInformation",
		httpmock.NewStringResponder(200, `{
			"total_delivered": 1000,
			"opened": 250,
			"some_new_counter": 1,
			"another_new_counter": 2
		}`))

	totals, err := client.GetCampaignTotals(context.Background(), 12)
	require.NoError(t, err)
	require.EqualValues(t, 1000, totals.TotalDelivered)
	require.EqualValues(t, 250, totals.Opened)
}

func TestGetCampaignTotalsRates(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignTotalInformation",
		httpmock.NewStringResponder(200, `{
			"total_delivered": 1000,
			"opened": 250,
			"unique_clicks": 50,
			"hard_bounces": 10,
			"soft_bounces": 20,
			"emails_to_send": 1200
		}`))

	totals, err := client.GetCampaignTotals(context.Background(), 12)
	require.NoError(t, err)
	require.InDelta(t, 25.0, totals.OpenRate(), 0.001)
	require.InDelta(t, 5.0, totals.ClickRate(), 0.001)
	require.InDelta(t, 2.5, totals.BounceRate(), 0.001)
}

func TestRatesAreZeroWhenNothingDelivered(t *testing.T) {
	var totals CampaignTotals
	require.Zero(t, totals.OpenRate())
	require.Zero(t, totals.ClickRate())
	require.Zero(t, totals.BounceRate())
}

func TestGetCampaignOpenersEnvelopeShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignOpeners",
		httpmock.NewStringResponder(200, `{"openers": [
			{"email": "a@example.com", "open_datetime": "2024-03-01 11:00:00"},
			{"email": "b@example.com", "open_datetime": "2024-03-01 11:05:00"}
		]}`))

	openers, err := client.GetCampaignOpeners(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, openers, 2)
	require.Equal(t, "a@example.com", openers[0].Email)
}

func TestGetCampaignClicksListShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignClicks",
		httpmock.NewStringResponder(200, `[
			{"email": "a@example.com", "click_datetime": "2024-03-01 11:10:00"}
		]`))

	clicks, err := client.GetCampaignClicks(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	require.Equal(t, "a@example.com", clicks[0].Email)
}

func TestGetCampaignLinksMapShape(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignLinks",
		httpmock.NewStringResponder(200, `{"https://example.com/a": 30, "https://example.com/b": 12}`))

	links, err := client.GetCampaignLinks(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, []Link{
		{Url: "https://example.com/a", Clicks: 30},
		{Url: "https://example.com/b", Clicks: 12},
	}, links)
}

func TestGetCampaignSoftBounces(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignSoftBounces",
		httpmock.NewStringResponder(200, `[{"email": "c@example.com", "date": "2024-03-01"}]`))

	bounces, err := client.GetCampaignSoftBounces(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, bounces, 1)
	require.Equal(t, "c@example.com", bounces[0].Email)
}

func TestGetListsBothShapes(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getLists",
		httpmock.NewStringResponder(200, `{"3": "Newsletter", "9": "Trials"}`))

	lists, err := client.GetLists(context.Background())
	require.NoError(t, err)
	require.Equal(t, []SubscriberList{
		{Id: 3, Name: "Newsletter"},
		{Id: 9, Name: "Trials"},
	}, lists)
}

func TestGetCreditsQuotedNumber(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, testBaseUrl+"/getCredits",
		httpmock.NewStringResponder(200, `"12500"`))

	credits, err := client.GetCredits(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 12500, credits)
}

func TestServerErrorBecomesAPIError(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getCampaignTotalInformation",
		httpmock.NewStringResponder(500, `internal error`))

	_, err := client.GetCampaignTotals(context.Background(), 12)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 500, apiErr.StatusCode)
	require.Equal(t, "getCampaignTotalInformation", apiErr.Endpoint)
}

func TestAuthTokenNeverInPath(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseUrl+"/getLists",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "test-token", req.URL.Query().Get("auth_token"))
			return httpmock.NewStringResponse(200, `{}`), nil
		})

	_, err := client.GetLists(context.Background())
	require.NoError(t, err)
}

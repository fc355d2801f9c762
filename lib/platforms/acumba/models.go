package acumba

// CampaignSummary is one entry of the campaign catalog.
type CampaignSummary struct {
	Id   int64
	Name string
}

// CampaignBasicInfo is the campaign's authoritative identity record. Every
// field comes straight from getCampaignBasicInformation.
type CampaignBasicInfo struct {
	Status    string `json:"status"`
	DateSent  string `json:"date_sent"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	TotalSent int64  `json:"total_sent"`
	EmailFrom string `json:"email_from"`
	Subject   string `json:"subject"`
	Lists     []any  `json:"lists"`
}

// CampaignTotals is the aggregate delivery counters from
// getCampaignTotalInformation.
type CampaignTotals struct {
	TotalDelivered int64  `json:"total_delivered"`
	SoftBounces    int64  `json:"soft_bounces"`
	CampaignUrl    string `json:"campaign_url"`
	Unsubscribes   int64  `json:"unsubscribes"`
	Complaints     int64  `json:"complaints"`
	UniqueClicks   int64  `json:"unique_clicks"`
	Unopened       int64  `json:"unopened"`
	EmailsToSend   int64  `json:"emails_to_send"`
	Opened         int64  `json:"opened"`
	HardBounces    int64  `json:"hard_bounces"`
	TotalClicks    int64  `json:"total_clicks"`
}

func (t CampaignTotals) OpenRate() float64 {
	if t.TotalDelivered == 0 {
		return 0
	}
	return float64(t.Opened) / float64(t.TotalDelivered) * 100
}

func (t CampaignTotals) ClickRate() float64 {
	if t.TotalDelivered == 0 {
		return 0
	}
	return float64(t.UniqueClicks) / float64(t.TotalDelivered) * 100
}

func (t CampaignTotals) BounceRate() float64 {
	if t.EmailsToSend == 0 {
		return 0
	}
	return float64(t.HardBounces+t.SoftBounces) / float64(t.EmailsToSend) * 100
}

type Opener struct {
	Email        string `json:"email"`
	OpenDatetime string `json:"open_datetime"`
}

type Clicker struct {
	Email         string `json:"email"`
	ClickDatetime string `json:"click_datetime"`
}

type Link struct {
	Url    string `json:"url"`
	Clicks int64  `json:"clicks"`
}

type SoftBounce struct {
	Email string `json:"email"`
	Date  string `json:"date"`
}

// SubscriberList is one entry of the account's list catalog.
type SubscriberList struct {
	Id   int64
	Name string
}

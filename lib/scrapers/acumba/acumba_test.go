package acumba

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const testBase = "https://mail.example.com"

// fakeBrowser simulates just enough of the web UI: a login page, a
// redirect-to-login for expired sessions, and a paginated subscriber
// list rendered as one body per page.
type fakeBrowser struct {
	location      string
	authenticated bool

	bodies  []string
	current int

	filterLabel string
	selectLabel string
	selectErr   error
	textErr     error
	waitErr     error

	filled  map[string]string
	persist int
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	if !f.authenticated && !strings.Contains(url, loginPathSegment) {
		f.location = testBase + "/login/?next=" + url
		return nil
	}
	if f.authenticated && strings.Contains(url, loginPathSegment) {
		f.location = testBase + "/reports/"
		return nil
	}
	f.location = url
	return nil
}

func (f *fakeBrowser) Location(ctx context.Context) (string, error) {
	return f.location, nil
}

func (f *fakeBrowser) Text(ctx context.Context, selector string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	if f.current >= len(f.bodies) {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.bodies[f.current]))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

func (f *fakeBrowser) HTML(ctx context.Context, selector string) (string, error) {
	if f.current >= len(f.bodies) {
		return "<body></body>", nil
	}
	return f.bodies[f.current], nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	if selector == loginSubmitSelector {
		if f.filled[emailFieldSelector] != "" && f.filled[passwordFieldSelector] != "" {
			f.authenticated = true
			f.location = testBase + "/reports/"
		}
		return nil
	}
	return errors.New("no element matches " + selector)
}

func (f *fakeBrowser) ClickLinkText(ctx context.Context, text string) (bool, error) {
	if text == f.filterLabel {
		return true, nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 2 && n <= len(f.bodies) {
			f.current = n - 1
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeBrowser) SelectLastOption(ctx context.Context, selector string) (string, error) {
	return f.selectLabel, f.selectErr
}

func (f *fakeBrowser) Fill(ctx context.Context, selector string, value string) error {
	if f.filled == nil {
		f.filled = map[string]string{}
	}
	f.filled[selector] = value
	return nil
}

func (f *fakeBrowser) WaitLoad(ctx context.Context) error { return f.waitErr }

func newTestScraper(t *testing.T, b *fakeBrowser) *Scraper {
	t.Helper()
	s, err := NewScraper(b, Config{
		BaseUrl:  testBase,
		Email:    "user@example.com",
		Password: "hunter2",
		PersistSession: func() error {
			b.persist++
			return nil
		},
	}, WithSettle(func(context.Context) {}))
	require.NoError(t, err)
	return s
}

func subscriberPage(countText string, emails ...string) string {
	var sb strings.Builder
	sb.WriteString("<body>")
	if countText != "" {
		sb.WriteString("<p>" + countText + "</p>")
	}
	sb.WriteString("<ul><li><div>Correo electrónico</div><div>Fecha</div><div>Lista</div></li>")
	for _, email := range emails {
		sb.WriteString("<li><div>" + email + "</div><div>2024-03-01</div><div>Newsletter</div></li>")
	}
	sb.WriteString("</ul></body>")
	return sb.String()
}

func emailRange(page, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d-%d@example.com", page, i)
	}
	return out
}

func TestIsLoginLocation(t *testing.T) {
	require.True(t, IsLoginLocation(testBase+"/login/"))
	require.True(t, IsLoginLocation(testBase+"/login/?next=/reports/"))
	require.False(t, IsLoginLocation(testBase+"/reports/"))
	require.False(t, IsLoginLocation(testBase+"/"))
}

func TestValidateSessionDetectsExpiry(t *testing.T) {
	b := &fakeBrowser{authenticated: false, location: testBase + "/reports/"}
	valid, err := ValidateSession(context.Background(), b, testBase+"/reports/")
	require.NoError(t, err)
	require.False(t, valid)
}

func TestValidateSessionReturnsToOriginalLocation(t *testing.T) {
	original := testBase + "/report/campaign/12/"
	b := &fakeBrowser{authenticated: true, location: original}
	valid, err := ValidateSession(context.Background(), b, testBase+"/reports/")
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, original, b.location)
}

func TestLoginNoOpWhenAlreadyAuthenticated(t *testing.T) {
	b := &fakeBrowser{authenticated: true}
	s := newTestScraper(t, b)
	require.NoError(t, s.Login(context.Background()))
	require.Empty(t, b.filled)
	require.Zero(t, b.persist)
}

func TestLoginFillsCredentialsAndPersists(t *testing.T) {
	b := &fakeBrowser{}
	s := newTestScraper(t, b)
	require.NoError(t, s.Login(context.Background()))
	require.Equal(t, "user@example.com", b.filled[emailFieldSelector])
	require.Equal(t, "hunter2", b.filled[passwordFieldSelector])
	require.True(t, b.authenticated)
	require.Equal(t, 1, b.persist)
}

func TestLoginFailureIsAuthError(t *testing.T) {
	b := &fakeBrowser{}
	s := newTestScraper(t, b)
	s.config.Password = ""

	err := s.Login(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Zero(t, b.persist)
}

func TestDetermineTotalPagesReadsCountBeforeResize(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{subscriberPage("1 a 15 de 396 elementos")},
		selectErr:     errors.New("no page size control"),
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 27, pages)
}

func TestDetermineTotalPagesUsesMaximizedPageSize(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{subscriberPage("1 a 15 de 396 elementos")},
		selectLabel:   "100",
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, pages)
}

func TestDetermineTotalPagesKeepsDefaultSizeWhenReloadFails(t *testing.T) {
	// the page-size control takes the selection but the reload never
	// settles; the count was already read, so the walk proceeds at the
	// default size instead of failing
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{subscriberPage("1 a 15 de 396 elementos")},
		selectLabel:   "100",
		waitErr:       errors.New("reload wait timed out"),
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 27, pages)
}

func TestDetermineTotalPagesReadsCountFromDocumentWhenTextFails(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{subscriberPage("1 a 15 de 396 elementos")},
		selectErr:     errors.New("no page size control"),
		textErr:       errors.New("not rendered"),
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 27, pages)
}

func TestDetermineTotalPagesPagerFallback(t *testing.T) {
	body := `<body><ul class="pager">` +
		`<li><a>1</a></li><li><a>2</a></li><li><a>5</a></li>` +
		`</ul></body>`
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{body},
		selectErr:     errors.New("no page size control"),
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, pages)
}

func TestDetermineTotalPagesDefaultsToOne(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		bodies:        []string{"<body><p>nothing useful</p></body>"},
		selectErr:     errors.New("no page size control"),
	}
	s := newTestScraper(t, b)

	pages, err := s.determineTotalPages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, pages)
}

func TestExtractPageSkipsHeaderPadsAndDropsEmptyRows(t *testing.T) {
	body := `<body><ul>` +
		`<li><div>Correo electrónico</div><div>Fecha</div><div>Lista</div></li>` +
		`<li><div>a@example.com</div><div>2024-03-01</div></li>` +
		`<li><div></div><div>2024-03-02</div><div>Newsletter</div></li>` +
		`<li><div>b@example.com</div><div>2024-03-03</div><div>Newsletter</div><div>extra</div></li>` +
		`</ul></body>`
	b := &fakeBrowser{authenticated: true, bodies: []string{body}}
	s := newTestScraper(t, b)

	rows, skipped, err := s.extractPage(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Equal(t, []Row{
		{Fields: []string{"a@example.com", "2024-03-01", ""}, Page: 1},
		{Fields: []string{"b@example.com", "2024-03-03", "Newsletter"}, Page: 1},
	}, rows)
}

func TestExtractFilterWalksAllPagesWithoutDuplicates(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		filterLabel:   FilterHardBounces,
		selectErr:     errors.New("no page size control"),
		bodies: []string{
			subscriberPage("1 a 15 de 45 elementos", emailRange(1, 15)...),
			subscriberPage("16 a 30 de 45 elementos", emailRange(2, 15)...),
			subscriberPage("31 a 45 de 45 elementos", emailRange(3, 15)...),
		},
	}
	s := newTestScraper(t, b)

	result, err := s.ExtractFilter(context.Background(), FilterHardBounces, 3)
	require.NoError(t, err)
	require.Equal(t, OutcomeComplete, result.Outcome)
	require.Equal(t, 3, result.TotalPages)
	require.Equal(t, 3, result.PagesRead)
	require.Len(t, result.Rows, 45)

	seen := make(map[string]bool)
	for _, row := range result.Rows {
		require.False(t, seen[row.Fields[0]], "duplicate row %q", row.Fields[0])
		seen[row.Fields[0]] = true
		require.GreaterOrEqual(t, row.Page, 1)
	}
	require.Equal(t, 1, result.Rows[0].Page)
	require.Equal(t, 3, result.Rows[44].Page)
}

func TestExtractFilterDegradesToPartialOnAdvanceFailure(t *testing.T) {
	// the count promises 3 pages but the pager only reaches page 2
	b := &fakeBrowser{
		authenticated: true,
		filterLabel:   FilterNotOpened,
		selectErr:     errors.New("no page size control"),
		bodies: []string{
			subscriberPage("1 a 15 de 45 elementos", emailRange(1, 15)...),
			subscriberPage("16 a 30 de 45 elementos", emailRange(2, 15)...),
		},
	}
	s := newTestScraper(t, b)

	result, err := s.ExtractFilter(context.Background(), FilterNotOpened, 3)
	require.NoError(t, err)
	require.Equal(t, OutcomePartial, result.Outcome)
	require.Equal(t, 3, result.TotalPages)
	require.Equal(t, 2, result.PagesRead)
	require.Len(t, result.Rows, 30)
}

func TestExtractFilterZeroRowsIsStillComplete(t *testing.T) {
	b := &fakeBrowser{
		authenticated: true,
		filterLabel:   FilterHardBounces,
		selectErr:     errors.New("no page size control"),
		bodies:        []string{subscriberPage("0 a 0 de 0 elementos")},
	}
	s := newTestScraper(t, b)

	result, err := s.ExtractFilter(context.Background(), FilterHardBounces, 3)
	require.NoError(t, err)
	require.Equal(t, OutcomeComplete, result.Outcome)
	require.Empty(t, result.Rows)
}

func TestExtractFilterMissingFilterFails(t *testing.T) {
	b := &fakeBrowser{authenticated: true, filterLabel: FilterHardBounces}
	s := newTestScraper(t, b)

	result, err := s.ExtractFilter(context.Background(), FilterNotOpened, 3)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	require.Equal(t, OutcomeFailed, result.Outcome)
}

package acumba

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"mailmetrics-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome tells a zero-row success apart from an aborted extraction.
// "No hard bounces on this campaign" and "the page broke under us" must
// not look the same to the caller.
type Outcome int

const (
	// OutcomeComplete means every computed page was read.
	OutcomeComplete Outcome = iota
	// OutcomePartial means extraction stopped early; the rows gathered
	// so far are valid but incomplete.
	OutcomePartial
	// OutcomeFailed means nothing trustworthy was extracted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Row is one extracted subscriber row, tagged with the page it came from.
type Row struct {
	Fields []string
	Page   int
}

// FilterResult is everything one ExtractFilter pass produced.
type FilterResult struct {
	Filter      string
	Rows        []Row
	Outcome     Outcome
	PagesRead   int
	TotalPages  int
	SkippedRows int
}

// matches "de 396 elementos" and "of 396 items"
var totalItemsRe = regexp.MustCompile(`(?i)(?:de|of)\s+(\d+)\s+(?:elementos|items)`)

// ExtractFilter selects the named subscriber filter and walks every page
// of its list. Row-level faults skip the row, a failed page advance stops
// the walk with the partial accumulation; only failing to enter the
// filter at all is an error.
func (s *Scraper) ExtractFilter(ctx context.Context, filter string, expectedColumns int) (FilterResult, error) {
	ctx, span := tracer.Start(ctx, "ExtractFilter")
	span.SetAttributes(attribute.String("filter", filter))
	defer span.End()

	result := FilterResult{Filter: filter, Outcome: OutcomeFailed}

	clicked, err := s.browser.ClickLinkText(ctx, filter)
	if err != nil {
		return result, spanErr(span, err)
	}
	if !clicked {
		return result, spanErr(span, &ExtractionError{Filter: filter, Reason: "filter control not found"})
	}
	if err := s.browser.WaitLoad(ctx); err != nil {
		return result, spanErr(span, err)
	}
	s.settle(ctx)

	totalPages, err := s.determineTotalPages(ctx)
	if err != nil {
		return result, spanErr(span, err)
	}
	result.TotalPages = totalPages

	for page := 1; page <= totalPages; page++ {
		rows, skipped, err := s.extractPage(ctx, page, expectedColumns)
		if err != nil {
			slog.WarnContext(ctx, "page extraction aborted, keeping partial rows",
				"filter", filter, "page", page, "err", err)
			result.Outcome = OutcomePartial
			span.SetAttributes(attribute.Int("rows", len(result.Rows)))
			return result, nil
		}
		result.Rows = append(result.Rows, rows...)
		result.SkippedRows += skipped
		result.PagesRead = page

		if page == totalPages {
			break
		}
		advanced, err := s.advancePage(ctx, page)
		if err != nil || !advanced {
			if err != nil {
				slog.WarnContext(ctx, "page advance failed",
					"filter", filter, "page", page, "err", err)
			}
			result.Outcome = OutcomePartial
			span.SetAttributes(attribute.Int("rows", len(result.Rows)))
			return result, nil
		}
	}

	result.Outcome = OutcomeComplete
	span.SetAttributes(
		attribute.Int("rows", len(result.Rows)),
		attribute.Int("pages", result.PagesRead),
	)
	return result, nil
}

// determineTotalPages reads the total-item count from the rendered text
// before touching the page-size control: changing that control reloads
// the page and destroys the execution context the count lives in. The
// page-size maximization afterwards is purely an optimization and every
// step of it is allowed to fail.
func (s *Scraper) determineTotalPages(ctx context.Context) (int, error) {
	body, err := s.browser.HTML(ctx, "body")
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 0, err
	}

	countSource, err := s.browser.Text(ctx, "body")
	if err != nil {
		countSource = doc.Text()
	}
	totalItems := -1
	if m := totalItemsRe.FindStringSubmatch(countSource); m != nil {
		totalItems, _ = strconv.Atoi(m[1])
	}

	perPage := defaultPageSize
	if label, err := s.browser.SelectLastOption(ctx, pageSizeSelector); err != nil {
		slog.DebugContext(ctx, "keeping default page size", "err", err)
	} else if err := s.browser.WaitLoad(ctx); err != nil {
		slog.DebugContext(ctx, "keeping default page size", "err", err)
	} else {
		s.settle(ctx)
		if n, atoiErr := strconv.Atoi(strings.TrimSpace(label)); atoiErr == nil && n > 0 {
			perPage = n
		}
	}

	if totalItems >= 0 {
		pages := (totalItems + perPage - 1) / perPage
		if pages < 1 {
			pages = 1
		}
		return pages, nil
	}

	if pages, ok := pagerLastNumber(doc); ok {
		return pages, nil
	}
	return 1, nil
}

// pagerLastNumber falls back to a traditional pager control: the last
// numeric entry of a list that contains a page-1 link.
func pagerLastNumber(doc *goquery.Document) (int, bool) {
	pages := 0
	doc.Find("ul").Each(func(_ int, ul *goquery.Selection) {
		hasFirst := false
		ul.ChildrenFiltered("li").Find("a").Each(func(_ int, a *goquery.Selection) {
			if htmlutil.SelectionText(a) == "1" {
				hasFirst = true
			}
		})
		if !hasFirst {
			return
		}
		last := htmlutil.SelectionText(ul.ChildrenFiltered("li").Last())
		if n, err := strconv.Atoi(last); err == nil && n > pages {
			pages = n
		}
	})
	return pages, pages > 0
}

// extractPage pulls subscriber rows out of the current page. The list
// container is the ul whose first child is a header row carrying the
// email column label; the header itself is never a data row.
func (s *Scraper) extractPage(ctx context.Context, page int, expectedColumns int) ([]Row, int, error) {
	body, err := s.browser.HTML(ctx, "body")
	if err != nil {
		return nil, 0, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	var container *goquery.Selection
	doc.Find("ul").EachWithBreak(func(_ int, ul *goquery.Selection) bool {
		first := ul.ChildrenFiltered("li").First()
		if strings.Contains(first.Text(), subscriberHeaderLabel) {
			container = ul
			return false
		}
		return true
	})
	if container == nil {
		slog.DebugContext(ctx, "no subscriber list on page", "page", page)
		return nil, 0, nil
	}

	var rows []Row
	skipped := 0
	container.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		if i == 0 {
			return
		}
		fields := make([]string, expectedColumns)
		li.ChildrenFiltered("div").EachWithBreak(func(j int, div *goquery.Selection) bool {
			if j >= expectedColumns {
				return false
			}
			fields[j] = htmlutil.SelectionText(div)
			return true
		})
		if fields[0] == "" {
			skipped++
			return
		}
		rows = append(rows, Row{Fields: fields, Page: page})
	})
	return rows, skipped, nil
}

// advancePage clicks the pager link for the next page. A missing link
// means the pager is exhausted, which is not an error.
func (s *Scraper) advancePage(ctx context.Context, current int) (bool, error) {
	clicked, err := s.browser.ClickLinkText(ctx, strconv.Itoa(current+1))
	if err != nil || !clicked {
		return false, err
	}
	if err := s.browser.WaitLoad(ctx); err != nil {
		return false, err
	}
	s.settle(ctx)
	return true, nil
}

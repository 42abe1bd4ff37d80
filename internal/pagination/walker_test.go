package pagination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/pttman/internal/dateutil"
	"github.com/hitoshi/pttman/internal/metrics"
	"github.com/hitoshi/pttman/internal/model"
	"github.com/hitoshi/pttman/internal/ptt"
)

const testBase = "https://ptt.test"

type fakeSource struct {
	pages   map[string]*model.ListPage
	errs    map[string]error
	fetched []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[string]*model.ListPage{}, errs: map[string]error{}}
}

func (f *fakeSource) IndexURL(board string) string {
	return testBase + "/bbs/" + board + "/index.html"
}

func (f *fakeSource) SearchURL(board, query string, page int) string {
	return fmt.Sprintf("%s/bbs/%s/search?page=%d&q=%s", testBase, board, page, query)
}

func (f *fakeSource) FetchListPage(_ context.Context, pageURL string) (*model.ListPage, error) {
	f.fetched = append(f.fetched, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return nil, err
	}
	if p, ok := f.pages[pageURL]; ok {
		return p, nil
	}
	return nil, &ptt.FetchError{URL: pageURL, StatusCode: http.StatusNotFound, Err: ptt.ErrNotFound}
}

func indexURL(n int) string {
	if n == 0 {
		return testBase + "/bbs/Stock/index.html"
	}
	return fmt.Sprintf("%s/bbs/Stock/index%d.html", testBase, n)
}

func raw(title, date, push string) model.RawItem {
	return model.RawItem{
		Title:    title,
		Author:   "author",
		DateText: date,
		URL:      testBase + "/bbs/Stock/M." + title + ".A.html",
		PushText: push,
	}
}

// listingChain は index.html → index3 → index2 → index1 の4ページを登録する。
func listingChain(src *fakeSource) {
	src.pages[indexURL(0)] = &model.ListPage{
		Items:   []model.RawItem{raw("a1", "5/25", "爆"), raw("a2", "5/25", "5"), raw("a3", "5/24", "")},
		PrevURL: indexURL(3),
	}
	src.pages[indexURL(3)] = &model.ListPage{
		Items:   []model.RawItem{raw("b1", "5/24", "12"), raw("b2", "5/23", "X1"), raw("b3", "5/23", "3")},
		PrevURL: indexURL(2),
		NextURL: indexURL(0),
	}
	src.pages[indexURL(2)] = &model.ListPage{
		Items:   []model.RawItem{raw("c1", "5/22", "1"), raw("c2", "5/22", "2")},
		PrevURL: indexURL(1),
		NextURL: indexURL(3),
	}
	src.pages[indexURL(1)] = &model.ListPage{
		Items:   []model.RawItem{raw("d1", "5/21", "")},
		NextURL: indexURL(2),
	}
}

func searchURL(page int) string {
	return fmt.Sprintf("%s/bbs/Stock/search?page=%d&q=%s", testBase, page, "台積電")
}

func newTestWalker(src PageSource) *Walker {
	loc := time.FixedZone("CST", 8*60*60)
	now := time.Date(2025, 5, 25, 10, 30, 0, 0, loc)
	dates := dateutil.New(loc, dateutil.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewWalker(src, dates, metrics.Nop{}, logger)
}

func allDates() Criteria {
	f := false
	return Criteria{Date: model.DateRangeFilter{OnlyToday: &f}}
}

func titles(items []model.ListItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestStopPolicyConstructors(t *testing.T) {
	assert.Equal(t, StopPolicy{PageBudget: 3}, PagePolicy(3))
	assert.Equal(t, StopPolicy{PageBudget: 1}, PagePolicy(0))
	assert.Equal(t, StopPolicy{PageBudget: MaxPageBudget}, PagePolicy(50))
	assert.Equal(t, StopPolicy{PageBudget: 5, TargetItems: 40}, ItemPolicy(40, 5))

	assert.Equal(t, StopPolicy{PageBudget: 3, TargetItems: 1}, LegacyItemPolicy(1))
	assert.Equal(t, StopPolicy{PageBudget: 3, TargetItems: 20}, LegacyItemPolicy(20))
	assert.Equal(t, StopPolicy{PageBudget: 4, TargetItems: 30}, LegacyItemPolicy(30))
	assert.Equal(t, StopPolicy{PageBudget: MaxPageBudget, TargetItems: 200}, LegacyItemPolicy(200))
}

func TestWalk_ListingPageBudget(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   PagePolicy(2),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2", "b3"}, titles(res.Items))
	assert.Equal(t, 100, res.Items[0].PushCount)
	assert.Equal(t, -10, res.Items[4].PushCount)
	assert.Equal(t, indexURL(0), res.Pagination.Cursor)
	assert.Equal(t, 2, res.Pagination.PagesRetrieved)
	assert.True(t, res.Pagination.HasMorePages)
	require.NotNil(t, res.Pagination.NextCursor)
	assert.Equal(t, indexURL(2), *res.Pagination.NextCursor)
}

func TestWalk_ListingStopsWithoutSibling(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   PagePolicy(10),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Len(t, res.Items, 9)
	assert.Equal(t, 4, res.Pagination.PagesRetrieved)
	assert.False(t, res.Pagination.HasMorePages)
	assert.Nil(t, res.Pagination.NextCursor)
}

func TestWalk_TargetTakesPriorityOverBudget(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   ItemPolicy(4, 10),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "a3", "b1"}, titles(res.Items))
	assert.Equal(t, 2, res.Pagination.PagesRetrieved)
	assert.True(t, res.Pagination.HasMorePages)
	require.NotNil(t, res.Pagination.NextCursor)
	assert.Equal(t, indexURL(3)+"#skip=1", *res.Pagination.NextCursor)
	assert.Len(t, src.fetched, 2)
}

func TestWalk_TargetNotReachedStopsAtBudget(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   ItemPolicy(100, 1),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Len(t, res.Items, 3)
	assert.Equal(t, 1, res.Pagination.PagesRetrieved)
	assert.True(t, res.Pagination.HasMorePages)
}

func TestWalk_ResumeFromCursor(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Cursor:   indexURL(3),
		Policy:   PagePolicy(1),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{indexURL(3)}, src.fetched)
	assert.Equal(t, indexURL(3), res.Pagination.Cursor)
	assert.Equal(t, []string{"b1", "b2", "b3"}, titles(res.Items))
}

func TestWalk_TargetReachedAtPageEndMovesToSibling(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   ItemPolicy(3, 10),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2", "a3"}, titles(res.Items))
	require.NotNil(t, res.Pagination.NextCursor)
	assert.Equal(t, indexURL(3), *res.Pagination.NextCursor)
}

func TestWalk_ChainedItemWalksReturnEveryItemOnce(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	var (
		got     []string
		cursors []string
		cursor  string
	)
	for i := 0; i < 10; i++ {
		res, err := w.Walk(context.Background(), Request{
			Mode:     ModeListing,
			Board:    "Stock",
			Cursor:   cursor,
			Policy:   ItemPolicy(2, 10),
			Criteria: allDates(),
		})
		require.NoError(t, err)
		got = append(got, titles(res.Items)...)
		if res.Pagination.NextCursor == nil {
			break
		}
		cursor = *res.Pagination.NextCursor
		cursors = append(cursors, cursor)
	}

	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2", "b3", "c1", "c2", "d1"}, got)
	assert.Equal(t, []string{
		indexURL(0) + "#skip=2",
		indexURL(3) + "#skip=1",
		indexURL(2),
		indexURL(1),
	}, cursors)
}

func TestWalk_ResumeSkipsOnlyMatchingItems(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	// 1ページ目で推文数5以上に一致するのは a1(爆) と a2(5)
	crit := allDates()
	crit.MinPush = intPtr(5)

	first, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   ItemPolicy(1, 1),
		Criteria: crit,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, titles(first.Items))
	require.NotNil(t, first.Pagination.NextCursor)
	assert.Equal(t, indexURL(0)+"#skip=1", *first.Pagination.NextCursor)

	second, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Cursor:   *first.Pagination.NextCursor,
		Policy:   ItemPolicy(1, 1),
		Criteria: crit,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, titles(second.Items))
	assert.Equal(t, indexURL(0)+"#skip=1", second.Pagination.Cursor)
	assert.Equal(t, []string{indexURL(0), indexURL(0)}, src.fetched)
}

func TestWalk_SearchMidPageCursor(t *testing.T) {
	src := newFakeSource()
	src.pages[searchURL(1)] = &model.ListPage{
		Items:   []model.RawItem{raw("s1", "5/25", "1"), raw("s2", "5/25", "1"), raw("s3", "5/25", "1")},
		PrevURL: searchURL(2),
	}
	src.pages[searchURL(2)] = &model.ListPage{
		Items: []model.RawItem{raw("t1", "5/25", "1")},
	}
	w := newTestWalker(src)

	first, err := w.Walk(context.Background(), Request{
		Mode:     ModeSearch,
		Board:    "Stock",
		Query:    "台積電",
		Policy:   ItemPolicy(2, 10),
		Criteria: allDates(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, titles(first.Items))
	require.NotNil(t, first.Pagination.NextCursor)
	assert.Equal(t, "1:2", *first.Pagination.NextCursor)

	second, err := w.Walk(context.Background(), Request{
		Mode:     ModeSearch,
		Board:    "Stock",
		Query:    "台積電",
		Cursor:   *first.Pagination.NextCursor,
		Policy:   ItemPolicy(2, 10),
		Criteria: allDates(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "t1"}, titles(second.Items))
	assert.False(t, second.Pagination.HasMorePages)
}

func TestCriteria_DatePredicateOnlyWhenBounded(t *testing.T) {
	dates := newTestWalker(newFakeSource()).dates
	today := true

	assert.Empty(t, allDates().Predicates(dates))
	assert.Len(t, Criteria{}.Predicates(dates), 1)
	assert.Len(t, Criteria{Date: model.DateRangeFilter{OnlyToday: &today}}.Predicates(dates), 1)

	ranged := allDates()
	ranged.Date.From = "5/24"
	preds := ranged.Predicates(dates)
	require.Len(t, preds, 1)
	assert.True(t, Match(preds, model.ListItem{Date: "5/24"}))
	assert.False(t, Match(preds, model.ListItem{Date: "5/23"}))
}

func TestParseCursors(t *testing.T) {
	u, skip, err := ParseListingCursor(indexURL(3) + "#skip=4")
	require.NoError(t, err)
	assert.Equal(t, indexURL(3), u)
	assert.Equal(t, 4, skip)

	u, skip, err = ParseListingCursor(indexURL(3))
	require.NoError(t, err)
	assert.Equal(t, indexURL(3), u)
	assert.Zero(t, skip)

	for _, bad := range []string{indexURL(3) + "#skip=0", indexURL(3) + "#skip=x", "#skip=1"} {
		_, _, err := ParseListingCursor(bad)
		assert.Error(t, err, bad)
	}

	page, skip, err := ParseSearchCursor("3:2")
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 2, skip)

	for _, bad := range []string{"3:", "3:0", ":2", "+3", "3:-1"} {
		_, _, err := ParseSearchCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestWalk_IdempotentUnderUnchangedCursor(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	req := Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Cursor:   indexURL(3),
		Policy:   PagePolicy(2),
		Criteria: allDates(),
	}
	first, err := w.Walk(context.Background(), req)
	require.NoError(t, err)
	second, err := w.Walk(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWalk_CriteriaFiltering(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	w := newTestWalker(src)

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{
			name:     "push range",
			criteria: Criteria{Date: allDates().Date, MinPush: intPtr(3), MaxPush: intPtr(20)},
			want:     []string{"a2", "b1", "b3"},
		},
		{
			name:     "negative minimum keeps booed posts",
			criteria: Criteria{Date: allDates().Date, MinPush: intPtr(-10), MaxPush: intPtr(0)},
			want:     []string{"a3", "b2", "d1"},
		},
		{
			name:     "keyword is case-insensitive",
			criteria: Criteria{Date: allDates().Date, TitleKeyword: "B"},
			want:     []string{"b1", "b2", "b3"},
		},
		{
			name:     "only today",
			criteria: Criteria{},
			want:     []string{"a1", "a2"},
		},
		{
			name:     "date range",
			criteria: Criteria{Date: model.DateRangeFilter{From: "5/22", To: "5/23"}},
			want:     []string{"b2", "b3", "c1", "c2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := w.Walk(context.Background(), Request{
				Mode:     ModeListing,
				Board:    "Stock",
				Policy:   PagePolicy(10),
				Criteria: tt.criteria,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(res.Items))
		})
	}
}

func TestWalk_ListingFetchErrorIsReturned(t *testing.T) {
	src := newFakeSource()
	listingChain(src)
	src.errs[indexURL(3)] = &ptt.FetchError{URL: indexURL(3), StatusCode: http.StatusServiceUnavailable, Err: ptt.ErrUnavailable}
	w := newTestWalker(src)

	_, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   PagePolicy(3),
		Criteria: allDates(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ptt.ErrUnavailable))
	var fe *ptt.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestWalk_ListingNotFoundIsAnError(t *testing.T) {
	src := newFakeSource()
	w := newTestWalker(src)

	_, err := w.Walk(context.Background(), Request{
		Mode:     ModeListing,
		Board:    "Stock",
		Policy:   PagePolicy(1),
		Criteria: allDates(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ptt.ErrNotFound))
}

func searchPages(src *fakeSource, n int) {
	for i := 1; i <= n; i++ {
		p := &model.ListPage{
			Items: []model.RawItem{raw(fmt.Sprintf("s%d", i), "5/25", "1")},
		}
		if i < n {
			p.PrevURL = searchURL(i + 1)
		}
		src.pages[searchURL(i)] = p
	}
}

func TestWalk_SearchNotFoundEndsResults(t *testing.T) {
	src := newFakeSource()
	searchPages(src, 2)
	// 最終ページにもリンクが残っている場合は404で終端を検出する
	src.pages[searchURL(2)].PrevURL = searchURL(3)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeSearch,
		Board:    "Stock",
		Query:    "台積電",
		Policy:   PagePolicy(5),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2"}, titles(res.Items))
	assert.Equal(t, "1", res.Pagination.Cursor)
	assert.Equal(t, 2, res.Pagination.PagesRetrieved)
	assert.False(t, res.Pagination.HasMorePages)
	assert.Nil(t, res.Pagination.NextCursor)
	assert.Equal(t, []string{searchURL(1), searchURL(2), searchURL(3)}, src.fetched)
}

func TestWalk_SearchEmptyPageEndsResults(t *testing.T) {
	src := newFakeSource()
	src.pages[searchURL(1)] = &model.ListPage{PrevURL: searchURL(2)}
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeSearch,
		Board:    "Stock",
		Query:    "台積電",
		Policy:   PagePolicy(5),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.False(t, res.Pagination.HasMorePages)
	assert.Len(t, src.fetched, 1)
}

func TestWalk_SearchResumesFromPageNumber(t *testing.T) {
	src := newFakeSource()
	searchPages(src, 4)
	w := newTestWalker(src)

	res, err := w.Walk(context.Background(), Request{
		Mode:     ModeSearch,
		Board:    "Stock",
		Query:    "台積電",
		Cursor:   "2",
		Policy:   PagePolicy(2),
		Criteria: allDates(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"s2", "s3"}, titles(res.Items))
	assert.Equal(t, "2", res.Pagination.Cursor)
	assert.True(t, res.Pagination.HasMorePages)
	require.NotNil(t, res.Pagination.NextCursor)
	assert.Equal(t, "4", *res.Pagination.NextCursor)
}

func TestWalk_SearchProbeAhead(t *testing.T) {
	t.Run("next page has results", func(t *testing.T) {
		src := newFakeSource()
		searchPages(src, 3)
		w := newTestWalker(src)

		res, err := w.Walk(context.Background(), Request{
			Mode:       ModeSearch,
			Board:      "Stock",
			Query:      "台積電",
			Policy:     PagePolicy(1),
			Criteria:   allDates(),
			ProbeAhead: true,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"s1"}, titles(res.Items))
		assert.Equal(t, 1, res.Pagination.PagesRetrieved)
		assert.True(t, res.Pagination.HasMorePages)
		require.NotNil(t, res.Pagination.NextCursor)
		assert.Equal(t, "2", *res.Pagination.NextCursor)
		assert.Equal(t, []string{searchURL(1), searchURL(2)}, src.fetched)
	})

	t.Run("next page is missing", func(t *testing.T) {
		src := newFakeSource()
		searchPages(src, 1)
		src.pages[searchURL(1)].PrevURL = searchURL(2)
		w := newTestWalker(src)

		res, err := w.Walk(context.Background(), Request{
			Mode:       ModeSearch,
			Board:      "Stock",
			Query:      "台積電",
			Policy:     PagePolicy(1),
			Criteria:   allDates(),
			ProbeAhead: true,
		})
		require.NoError(t, err)

		assert.False(t, res.Pagination.HasMorePages)
		assert.Nil(t, res.Pagination.NextCursor)
	})

	t.Run("probe failure keeps link result", func(t *testing.T) {
		src := newFakeSource()
		searchPages(src, 2)
		src.errs[searchURL(2)] = &ptt.FetchError{URL: searchURL(2), StatusCode: http.StatusBadGateway, Err: ptt.ErrUnavailable}
		w := newTestWalker(src)

		res, err := w.Walk(context.Background(), Request{
			Mode:       ModeSearch,
			Board:      "Stock",
			Query:      "台積電",
			Policy:     PagePolicy(1),
			Criteria:   allDates(),
			ProbeAhead: true,
		})
		require.NoError(t, err)
		assert.True(t, res.Pagination.HasMorePages)
	})
}

func TestWalk_SearchInvalidCursor(t *testing.T) {
	w := newTestWalker(newFakeSource())

	for _, cursor := range []string{"abc", "0", "-1", "2:0", "2:x"} {
		_, err := w.Walk(context.Background(), Request{
			Mode:   ModeSearch,
			Board:  "Stock",
			Query:  "台積電",
			Cursor: cursor,
			Policy: PagePolicy(1),
		})
		var te *model.ToolError
		require.True(t, errors.As(err, &te), "cursor %q", cursor)
		assert.Equal(t, model.ErrCodeInvalidCursor, te.Code)
	}
}

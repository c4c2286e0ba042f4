package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

// fakeUpstream emulates the token, search, item, and bulk endpoints.
type fakeUpstream struct {
	mu            sync.Mutex
	searchBearers []string
	itemCalls     int
	bulkCalls     int
	searchStatus  int
	bulkStatus    int
	tokenDeny     map[string]bool
	summaries     []ItemSummary
	details       map[string]ItemDetail
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Basic ")
		raw, err := base64.StdEncoding.DecodeString(auth)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		appID := strings.SplitN(string(raw), ":", 2)[0]
		f.mu.Lock()
		denied := f.tokenDeny[appID]
		f.mu.Unlock()
		if denied {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + appID,
			"expires_in":   7200,
		})
	})
	mux.HandleFunc("/buy/browse/v1/item_summary/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.searchBearers = append(f.searchBearers,
			strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		status := f.searchStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{ItemSummaries: f.summaries})
	})
	mux.HandleFunc("/buy/browse/v1/item", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.bulkCalls++
		status := f.bulkStatus
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		var items []ItemDetail
		for _, id := range strings.Split(r.URL.Query().Get("item_ids"), ",") {
			if d, ok := f.details[id]; ok {
				items = append(items, d)
			}
		}
		json.NewEncoder(w).Encode(bulkResponse{Items: items})
	})
	mux.HandleFunc("/buy/browse/v1/item/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.itemCalls++
		f.mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/buy/browse/v1/item/")
		d, ok := f.details[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(d)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeUpstream, keys ...model.Credential) (*Client, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	st := seedStore(t, keys...)
	pool, err := NewPool(context.Background(), st, discardLog())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(ClientConfig{
		BaseURL:    srv.URL,
		Pool:       pool,
		Store:      st,
		DailyLimit: 1000,
		Log:        discardLog(),
	})
	return c, st
}

func jewelryTask() *model.Task {
	return &model.Task{
		ID:       "t1",
		UserID:   "u1",
		Status:   model.TaskActive,
		ItemType: model.ItemTypeJewelry,
		MaxPrice: 500,
		Jewelry:  &model.JewelryFilters{Metals: []string{"Gold"}, WeightMinG: 5},
	}
}

func TestSearchRotatesCredentials(t *testing.T) {
	f := &fakeUpstream{summaries: []ItemSummary{{ItemID: "1"}}}
	c, _ := newTestClient(t, f, cred("A"), cred("B"))

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), jewelryTask(), ""); err != nil {
			t.Fatal(err)
		}
	}
	counts := map[string]int{}
	for _, bearer := range f.searchBearers {
		counts[bearer]++
	}
	for _, tok := range []string{"tok-A", "tok-B"} {
		if counts[tok] < 1 || counts[tok] > 2 {
			t.Fatalf("bearer %s used %d times over 3 searches: %v", tok, counts[tok], counts)
		}
	}
}

func TestSearchRateLimitCoolsCredential(t *testing.T) {
	f := &fakeUpstream{searchStatus: http.StatusTooManyRequests}
	c, _ := newTestClient(t, f, cred("A"))
	now := time.Now()
	c.pool.now = func() time.Time { return now }

	_, err := c.Search(context.Background(), jewelryTask(), "")
	if !IsRateLimit(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}

	// The next attempt finds everything cooling and makes no HTTP call.
	before := len(f.searchBearers)
	_, err = c.Search(context.Background(), jewelryTask(), "")
	var cooling *AllCoolingError
	if !errors.As(err, &cooling) {
		t.Fatalf("err = %v, want all-cooling", err)
	}
	if len(f.searchBearers) != before {
		t.Fatal("search hit upstream while all credentials cooling")
	}

	// After five minutes the credential serves again.
	f.mu.Lock()
	f.searchStatus = 0
	f.mu.Unlock()
	now = now.Add(CooldownDuration + time.Second)
	if _, err := c.Search(context.Background(), jewelryTask(), ""); err != nil {
		t.Fatalf("post-cooldown search: %v", err)
	}
}

func TestAuthRetryMarksBothCredentials(t *testing.T) {
	f := &fakeUpstream{tokenDeny: map[string]bool{"A": true, "B": true}}
	c, st := newTestClient(t, f, cred("A"), cred("B"))

	_, err := c.Search(context.Background(), jewelryTask(), "")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want auth error", err)
	}

	settings, err := st.LoadCredentialSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range settings.Keys {
		if k.Status != model.CredentialError {
			t.Errorf("credential %s status = %q, want error", k.AppID, k.Status)
		}
	}

	// With every key disabled the next attempt skips upstream entirely.
	_, err = c.Search(context.Background(), jewelryTask(), "")
	if !errors.Is(err, ErrNoUsableCredentials) {
		t.Fatalf("err = %v, want no usable credentials", err)
	}
}

func TestGovernorNotChargedOnCredentialFailure(t *testing.T) {
	f := &fakeUpstream{tokenDeny: map[string]bool{"A": true}}
	c, _ := newTestClient(t, f, cred("A"))

	if _, err := c.Search(context.Background(), jewelryTask(), ""); err == nil {
		t.Fatal("expected auth failure")
	}
	if got := c.governor.CallsToday(); got != 0 {
		t.Fatalf("CallsToday = %d after failed acquisition, want 0", got)
	}
}

func TestSearchDailyCapReturnsEmpty(t *testing.T) {
	f := &fakeUpstream{summaries: []ItemSummary{{ItemID: "1"}}}
	c, _ := newTestClient(t, f, cred("A"))
	c.governor = NewGovernor(1)

	got, err := c.Search(context.Background(), jewelryTask(), "")
	if err != nil || len(got) != 1 {
		t.Fatalf("first search = %v, %v", got, err)
	}
	got, err = c.Search(context.Background(), jewelryTask(), "")
	if err != nil {
		t.Fatalf("capped search errored: %v", err)
	}
	if len(got) != 0 {
		t.Fatal("capped search should be empty")
	}
}

func TestFetchItemCacheReadThrough(t *testing.T) {
	f := &fakeUpstream{details: map[string]ItemDetail{
		"42": {ItemID: "42", Title: "14K Gold Chain", LocalizedAspects: []LocalizedAspect{
			{Name: "Metal Purity", Value: "14k"},
		}},
	}}
	c, _ := newTestClient(t, f, cred("A"))

	d, err := c.FetchItem(context.Background(), "42")
	if err != nil || d == nil || d.FromCache {
		t.Fatalf("first fetch = %+v, %v", d, err)
	}
	d, err = c.FetchItem(context.Background(), "42")
	if err != nil || d == nil || !d.FromCache {
		t.Fatalf("second fetch = %+v, %v, want cache hit", d, err)
	}
	if f.itemCalls != 1 {
		t.Fatalf("upstream item calls = %d, want 1", f.itemCalls)
	}
	hits, misses := c.CacheStats()
	if hits != 1 || misses != 1 {
		t.Fatalf("cache stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestFetchItemsBulk(t *testing.T) {
	details := map[string]ItemDetail{}
	var ids []string
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("i%d", i)
		ids = append(ids, id)
		details[id] = ItemDetail{ItemID: id, Title: "item " + id}
	}
	f := &fakeUpstream{details: details}
	c, _ := newTestClient(t, f, cred("A"))

	out, err := c.FetchItems(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 25 {
		t.Fatalf("got %d details, want 25", len(out))
	}
	// 25 ids split into batches of 20 and 5.
	if f.bulkCalls != 2 {
		t.Fatalf("bulk calls = %d, want 2", f.bulkCalls)
	}
}

func TestFetchItemsBulk403FallsBackPerItem(t *testing.T) {
	f := &fakeUpstream{
		bulkStatus: http.StatusForbidden,
		details: map[string]ItemDetail{
			"a": {ItemID: "a", Title: "A"},
			"b": {ItemID: "b", Title: "B"},
		},
	}
	c, _ := newTestClient(t, f, cred("A"))

	out, err := c.FetchItems(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d details, want 2", len(out))
	}
	if f.itemCalls != 2 {
		t.Fatalf("per-item calls = %d, want 2", f.itemCalls)
	}
}

func TestFetchItemsBulk429Propagates(t *testing.T) {
	f := &fakeUpstream{
		bulkStatus: http.StatusTooManyRequests,
		details:    map[string]ItemDetail{"a": {ItemID: "a"}},
	}
	c, _ := newTestClient(t, f, cred("A"))

	_, err := c.FetchItems(context.Background(), []string{"a"})
	if !IsRateLimit(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}
}

func TestUsageLogging(t *testing.T) {
	f := &fakeUpstream{summaries: []ItemSummary{}}
	c, st := newTestClient(t, f, cred("A"))
	if _, err := c.Search(context.Background(), jewelryTask(), ""); err != nil {
		t.Fatal(err)
	}
	day := time.Now().UTC().Format("2006-01-02")
	n, err := st.CountAPIUsageForDay(context.Background(), "A", day)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("usage count = %d, want 1", n)
	}
}

package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tracker/src/registry"
)

const feedHeader = "Ticker,Name,Sector,Asset Class,Market Value,Weight (%),Notional Value,Shares,Price,Location,Exchange,Currency,Duration,YTM (%),Maturity"

const feedPreamble = `iShares Test Bond ETF
Fund Holdings as of,"Jan 01, 2025"
Inception Date,"Dec 17, 2007"

`

// feedRow describes one holding line of a test feed; empty fields render as empty cells.
type feedRow struct {
	Ticker, Name, Location, Weight, YTM, Price string
}

func (r feedRow) csv() string {
	return fmt.Sprintf("%s,%q,Government,Fixed Income,\"1,000,000.00\",%s,\"1,000,000.00\",\"1,000.00\",%s,%s,-,USD,7.1,%s,\"Jan 15, 2035\"",
		r.Ticker, r.Name, r.Weight, r.Price, r.Location, r.YTM)
}

// buildFeed renders an iShares-like file with a 3 line preamble.
func buildFeed(rows ...feedRow) string {
	var b strings.Builder
	b.WriteString(feedPreamble)
	b.WriteString(feedHeader + "\n")
	for _, r := range rows {
		b.WriteString(r.csv() + "\n")
	}
	b.WriteString("\n\"The content contained herein is owned or licensed by BlackRock\"\n")
	return b.String()
}

const testHeaderRow = 3

func testRegistry(codes ...string) *registry.Registry {
	entries := make([]registry.Entry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, registry.Entry{
			Code:      code,
			Name:      code + " test fund",
			URL:       "http://feeds.test/" + code + ".csv",
			HeaderRow: testHeaderRow,
		})
	}
	r, err := registry.New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// fakeFeedClient serves canned bodies keyed by URL and counts calls.
type fakeFeedClient struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeFeedClient() *fakeFeedClient {
	return &fakeFeedClient{bodies: map[string]string{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFeedClient) set(code, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies["http://feeds.test/"+code+".csv"] = body
}

func (f *fakeFeedClient) fail(code string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs["http://feeds.test/"+code+".csv"] = err
}

func (f *fakeFeedClient) callsFor(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["http://feeds.test/"+code+".csv"]
}

func (f *fakeFeedClient) GetCSV(_ context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[location]++
	if err, ok := f.errs[location]; ok {
		return nil, err
	}
	body, ok := f.bodies[location]
	if !ok {
		return nil, fmt.Errorf("no feed at %s", location)
	}
	return []byte(body), nil
}

// fixedClock returns a clock frozen at the given day, mid-afternoon local time.
func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 15, 30, 0, 0, time.Local) }
}

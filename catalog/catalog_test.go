package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const (
	playBase     = "http://play.example.test"
	appStoreBase = "http://itunes.example.test"
)

func newTestPlayClient(t *testing.T) (*PlayClient, *httpmock.MockTransport) {
	t.Helper()
	c, err := NewPlayClient(Options{BaseURL: playBase, UserAgent: "test", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new play client: %v", err)
	}
	transport := httpmock.NewMockTransport()
	c.WithTransport(transport)
	return c, transport
}

func newTestAppStoreClient(t *testing.T) (*AppStoreClient, *httpmock.MockTransport) {
	t.Helper()
	c, err := NewAppStoreClient(Options{BaseURL: appStoreBase, UserAgent: "test", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new app store client: %v", err)
	}
	transport := httpmock.NewMockTransport()
	c.WithTransport(transport)
	return c, transport
}

func TestPlayClientList(t *testing.T) {
	c, transport := newTestPlayClient(t)

	var gotQuery map[string]string
	transport.RegisterResponder("GET", playBase+"/api/apps/", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"collection": q.Get("collection"),
			"category":   q.Get("category"),
			"start":      q.Get("start"),
			"num":        q.Get("num"),
			"fullDetail": q.Get("fullDetail"),
			"country":    q.Get("country"),
		}
		body := `{"results":[
			{"appId":"com.a","title":"A","developer":"Dev A","score":4.5,"ratings":120,"installs":"1,000+","price":1.99,"free":false,"genre":"Puzzle","updated":1700000000000},
			{"appId":"com.b","title":"B","developer":"Dev B","price":0,"free":true}
		]}`
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	})

	apps, err := c.List(context.Background(), ListRequest{
		Collection: "TOP_PAID",
		Category:   "GAME",
		Start:      199,
		Num:        100,
		FullDetail: true,
		Country:    "us",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("apps=%d, want 2", len(apps))
	}
	if apps[0].AppID != "com.a" || apps[0].Ratings != 120 || apps[0].Updated != 1700000000000 {
		t.Fatalf("unexpected first app: %+v", apps[0])
	}
	want := map[string]string{
		"collection": "TOP_PAID",
		"category":   "GAME",
		"start":      "199",
		"num":        "100",
		"fullDetail": "true",
		"country":    "us",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Fatalf("query %s=%q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestPlayClientListBareArray(t *testing.T) {
	c, transport := newTestPlayClient(t)
	transport.RegisterResponder("GET", playBase+"/api/apps/",
		httpmock.NewStringResponder(http.StatusOK, `[{"appId":"com.x","title":"X"}]`))

	apps, err := c.List(context.Background(), ListRequest{Collection: "TOP_FREE", Num: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 1 || apps[0].AppID != "com.x" {
		t.Fatalf("unexpected apps: %+v", apps)
	}
}

func TestPlayClientDecodeError(t *testing.T) {
	c, transport := newTestPlayClient(t)
	transport.RegisterResponder("GET", playBase+"/api/apps/",
		httpmock.NewStringResponder(http.StatusOK, `<html>not json</html>`))

	_, err := c.List(context.Background(), ListRequest{Collection: "TOP_FREE", Num: 1})
	if got := ErrorType(err); got != "decode" {
		t.Fatalf("error type = %q, want decode (err=%v)", got, err)
	}
}

func TestAppStoreClientSearch(t *testing.T) {
	c, transport := newTestAppStoreClient(t)

	var term, limit, entity string
	transport.RegisterResponder("GET", appStoreBase+"/search", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		term, limit, entity = q.Get("term"), q.Get("limit"), q.Get("entity")
		body := `{"resultCount":1,"results":[{"trackId":1,"trackName":"Foo Quest","bundleId":"com.foo.quest","artistName":"Foo Inc","averageUserRating":4.1,"userRatingCount":55,"price":0,"primaryGenreName":"Games","currentVersionReleaseDate":"2024-05-01T10:00:00Z"}]}`
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	})

	apps, err := c.Search(context.Background(), SearchRequest{Term: "Foo Quest", Limit: 1, Country: "us"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if term != "Foo Quest" || limit != "1" || entity != "software" {
		t.Fatalf("query term=%q limit=%q entity=%q", term, limit, entity)
	}
	if len(apps) != 1 {
		t.Fatalf("apps=%d, want 1", len(apps))
	}
	got := apps[0]
	if got.Title != "Foo Quest" || got.AppID != "com.foo.quest" || got.Developer != "Foo Inc" || !got.Free {
		t.Fatalf("unexpected mapping: %+v", got)
	}
	if got.Updated != time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli() {
		t.Fatalf("updated = %d", got.Updated)
	}
}

func TestAppStoreClientEmptyResults(t *testing.T) {
	c, transport := newTestAppStoreClient(t)
	transport.RegisterResponder("GET", appStoreBase+"/search",
		httpmock.NewStringResponder(http.StatusOK, `{"resultCount":0,"results":[]}`))

	apps, err := c.Search(context.Background(), SearchRequest{Term: "nothing"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(apps) != 0 {
		t.Fatalf("apps=%d, want 0", len(apps))
	}
}

func TestClientHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			c, transport := newTestAppStoreClient(t)
			transport.RegisterResponder("GET", appStoreBase+"/search", httpmock.NewStringResponder(tt.status, ""))

			_, err := c.Search(context.Background(), SearchRequest{Term: "x"})
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if got := ErrorType(err); got != tt.expected {
				t.Fatalf("error type = %q, want %q (err=%v)", got, tt.expected, err)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "other"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestNewClientRejectsMissingHost(t *testing.T) {
	if _, err := NewPlayClient(Options{BaseURL: "http://"}); err == nil {
		t.Fatalf("expected error for base url without host")
	}
}

package workers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

type fakeTransport struct {
	requests []*http.Request
	handler  func(req *http.Request) (*http.Response, error)
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	return t.handler(req)
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func checkWorker(transport *fakeTransport) *FavoriteHealthWorker {
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return NewFavoriteHealthWorker(nil, client)
}

func TestCheckLiveListing(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) (*http.Response, error) {
			return htmlResponse(http.StatusOK, "<html><body>Chalet Bergblick buchen</body></html>"), nil
		},
	}
	worker := checkWorker(transport)

	result := worker.Check(context.Background(), "https://www.airbnb.ch/rooms/12345678")
	if result.Error != nil {
		t.Fatalf("Check failed: %v", result.Error)
	}
	if !result.IsLive || result.StatusCode != 200 {
		t.Fatalf("expected a live listing, got %+v", result)
	}

	// A 200 HEAD is not trusted, the body gets scanned too.
	if len(transport.requests) != 2 {
		t.Fatalf("expected HEAD then GET, got %d requests", len(transport.requests))
	}
	if transport.requests[0].Method != "HEAD" || transport.requests[1].Method != "GET" {
		t.Fatalf("unexpected methods: %s, %s", transport.requests[0].Method, transport.requests[1].Method)
	}
}

func TestCheckDelistedByBody(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) (*http.Response, error) {
			body := "<html><body><p>Dieses Inserat wurde entfernt.</p></body></html>"
			return htmlResponse(http.StatusOK, body), nil
		},
	}
	worker := checkWorker(transport)

	result := worker.Check(context.Background(), "https://www.booking.com/hotel/ch/weg.de.html")
	if result.Error != nil {
		t.Fatalf("Check failed: %v", result.Error)
	}
	if result.IsLive {
		t.Fatal("removal notice in the body must mark the listing gone")
	}
}

func TestCheckGoneStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		transport := &fakeTransport{
			handler: func(req *http.Request) (*http.Response, error) {
				return htmlResponse(status, ""), nil
			},
		}
		worker := checkWorker(transport)

		result := worker.Check(context.Background(), "https://www.airbnb.ch/rooms/404")
		if result.IsLive {
			t.Fatalf("status %d must mark the listing gone", status)
		}
		if len(transport.requests) != 1 {
			t.Fatalf("a definitive HEAD needs no GET, got %d requests", len(transport.requests))
		}
	}
}

func TestCheckRedirects(t *testing.T) {
	cases := []struct {
		location string
		wantLive bool
	}{
		{"https://www.airbnb.ch/s/Zermatt/homes", false},
		{"https://www.expedia.ch/search?destination=Zermatt", false},
		{"https://www.booking.com/hotel/ch/neu.de.html", true},
	}
	for _, c := range cases {
		transport := &fakeTransport{
			handler: func(req *http.Request) (*http.Response, error) {
				resp := htmlResponse(http.StatusFound, "")
				resp.Header.Set("Location", c.location)
				return resp, nil
			},
		}
		worker := checkWorker(transport)

		result := worker.Check(context.Background(), "https://www.airbnb.ch/rooms/12345678")
		if result.IsLive != c.wantLive {
			t.Fatalf("redirect to %q: expected live=%v, got %+v", c.location, c.wantLive, result)
		}
	}
}

func TestCheckFallsBackToGET(t *testing.T) {
	transport := &fakeTransport{
		handler: func(req *http.Request) (*http.Response, error) {
			if req.Method == "HEAD" {
				return nil, fmt.Errorf("HEAD not supported")
			}
			return htmlResponse(http.StatusOK, "<html><body>Noch buchbar</body></html>"), nil
		},
	}
	worker := checkWorker(transport)

	result := worker.Check(context.Background(), "https://ch.hotels.com/ho123456")
	if result.Error != nil {
		t.Fatalf("Check failed: %v", result.Error)
	}
	if !result.IsLive {
		t.Fatalf("GET fallback must rescue a failed HEAD, got %+v", result)
	}
}

func TestIsDelistedPage(t *testing.T) {
	if !isDelistedPage("Diese Unterkunft ist NICHT MEHR verfügbar") {
		t.Fatal("German removal notice not detected")
	}
	if !isDelistedPage("This listing has been removed by the host") {
		t.Fatal("English removal notice not detected")
	}
	if isDelistedPage("Verfügbarkeit prüfen und buchen") {
		t.Fatal("normal booking page flagged as removed")
	}
}

func TestIsDelistRedirect(t *testing.T) {
	if !isDelistRedirect("https://www.airbnb.ch/s/Zermatt/homes") {
		t.Fatal("search redirect not detected")
	}
	if !isDelistRedirect("https://www.expedia.ch/notfound") {
		t.Fatal("notfound redirect not detected")
	}
	if isDelistRedirect("https://www.booking.com/hotel/ch/neu.de.html") {
		t.Fatal("ordinary hotel page flagged as delisted")
	}
}

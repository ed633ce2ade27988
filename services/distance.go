package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stay_scout/models"
)

const (
	distanceMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	// The Distance Matrix API caps destinations per request at 25.
	distanceBatchSize  = 25
	distanceTimeout    = 15 * time.Second
	defaultTravelMode  = "driving"
	distancePacingRate = 100 * time.Millisecond
)

// Listing titles usually name their village ("Wohnung in Mase", "Chalet à
// Veysonnaz"); geocoding that village beats geocoding the marketing title.
var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\sin\s+([A-ZÄÖÜ][a-zäöüéèêâîôû\-]+(?:\s[A-ZÄÖÜ][a-zäöüéèêâîôû\-]+)*)`),
	regexp.MustCompile(`\sà\s+([A-ZÄÖÜ][a-zäöüéèêâîôû\-]+(?:\s[A-ZÄÖÜ][a-zäöüéèêâîôû\-]+)*)`),
}

// TravelInfo is one resolved origin-to-destination measurement.
type TravelInfo struct {
	DistanceKm  float64
	DurationMin int
}

// DistanceService resolves travel distance between the search origin and
// listing locations through the Google Distance Matrix API.
type DistanceService struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewDistanceService(apiKey string, client *http.Client) *DistanceService {
	if client == nil {
		client = http.DefaultClient
	}
	return &DistanceService{
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(distancePacingRate), 1),
	}
}

// Usable reports whether the service has a credential. Callers skip
// enrichment entirely when it does not.
func (s *DistanceService) Usable() bool {
	return s != nil && s.apiKey != ""
}

// Distances resolves up to len(destinations) travel measurements, chunked at
// the API's 25-destination cap. A nil entry means that destination failed;
// one bad destination never fails its chunk, and one bad chunk never fails
// the rest.
func (s *DistanceService) Distances(ctx context.Context, origin string, destinations []string, mode string) ([]*TravelInfo, error) {
	if !s.Usable() {
		return nil, fmt.Errorf("distance service not usable: missing API key")
	}
	if mode == "" {
		mode = defaultTravelMode
	}

	results := make([]*TravelInfo, 0, len(destinations))
	for start := 0; start < len(destinations); start += distanceBatchSize {
		end := start + distanceBatchSize
		if end > len(destinations) {
			end = len(destinations)
		}
		chunk := destinations[start:end]

		if err := s.limiter.Wait(ctx); err != nil {
			return results, err
		}

		infos, err := s.fetchChunk(ctx, origin, chunk, mode)
		if err != nil {
			log.Printf("Distance chunk failed (%d destinations): %v", len(chunk), err)
			for range chunk {
				results = append(results, nil)
			}
			continue
		}
		results = append(results, infos...)
	}

	return results, nil
}

func (s *DistanceService) fetchChunk(ctx context.Context, origin string, chunk []string, mode string) ([]*TravelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, distanceTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", strings.Join(chunk, "|"))
	params.Set("mode", mode)
	params.Set("key", s.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, distanceMatrixURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value int `json:"value"`
				} `json:"distance"`
				Duration struct {
					Value int `json:"value"`
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("distance matrix status: %s", payload.Status)
	}
	if len(payload.Rows) == 0 {
		return nil, fmt.Errorf("distance matrix returned no rows")
	}

	infos := make([]*TravelInfo, 0, len(chunk))
	for _, el := range payload.Rows[0].Elements {
		if el.Status != "OK" {
			infos = append(infos, nil)
			continue
		}
		infos = append(infos, &TravelInfo{
			DistanceKm:  math.Round(float64(el.Distance.Value)/1000*10) / 10,
			DurationMin: int(math.Round(float64(el.Duration.Value) / 60)),
		})
	}
	for len(infos) < len(chunk) {
		infos = append(infos, nil)
	}

	return infos, nil
}

// EnrichListings annotates listings with real travel distance from the search
// origin and orders resolved listings ascending ahead of unresolved ones.
// Returns how many resolved and how many failed.
func (s *DistanceService) EnrichListings(ctx context.Context, origin string, listings []*models.ListingRecord) (int, int) {
	if !s.Usable() || len(listings) == 0 {
		return 0, 0
	}

	fullOrigin := FullOrigin(origin)
	destinations := make([]string, len(listings))
	for i, l := range listings {
		destinations[i] = DestinationFor(l.Title, origin)
	}

	infos, err := s.Distances(ctx, fullOrigin, destinations, defaultTravelMode)
	if err != nil {
		log.Printf("Distance enrichment aborted: %v", err)
	}

	resolved, failed := 0, 0
	for i, l := range listings {
		if i >= len(infos) || infos[i] == nil {
			failed++
			continue
		}
		l.DistanceKm = infos[i].DistanceKm
		l.DurationMin = infos[i].DurationMin
		l.DistanceResolved = true
		resolved++
	}

	// Stable partition: resolved listings ascending by distance, unresolved
	// after them in their original order.
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.DistanceResolved != b.DistanceResolved {
			return a.DistanceResolved
		}
		if !a.DistanceResolved {
			return false
		}
		return a.DistanceKm < b.DistanceKm
	})

	return resolved, failed
}

// FullOrigin appends the country when the origin lacks one, so a bare village
// name still geocodes to the Swiss place.
func FullOrigin(origin string) string {
	if strings.Contains(origin, ",") {
		return origin
	}
	return origin + ", Switzerland"
}

// DestinationFor derives a geocodable address from a listing title. A place
// name matching the origin's own city is useless (it resolves to zero), so it
// falls back to the full origin.
func DestinationFor(title, origin string) string {
	originCity := strings.ToLower(strings.TrimSpace(strings.Split(origin, ",")[0]))

	for _, re := range cityPatterns {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		city := strings.TrimSpace(m[1])
		if strings.ToLower(city) != originCity {
			return city + ", Switzerland"
		}
	}

	return FullOrigin(origin)
}

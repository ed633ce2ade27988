package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"stay_scout/models"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	analysisMaxTokens = 500
	// Keep prompts cheap: at most 10 reviews, truncated to ~3000 chars.
	analysisMaxReviews = 10
	analysisMaxChars   = 3000
)

const analysisPromptTemplate = `Analysiere diese Gästebewertungen für eine Unterkunft (%s).

REVIEWS:
%s

Erstelle eine prägnante Zusammenfassung auf DEUTSCH mit:

1. **Positiv** (2-3 Stichpunkte): Was loben Gäste am meisten?
2. **Negativ** (1-2 Stichpunkte): Was wird kritisiert? (Falls nichts → "Keine nennenswerten Kritikpunkte")
3. **Sauberkeit**: Bewertung (Sehr gut / Gut / OK / Problematisch)
4. **Lage**: Bewertung (Ausgezeichnet / Gut / OK / Schlecht)
5. **Preis-Leistung**: Bewertung (Sehr gut / Gut / OK / Teuer)

Antworte NUR mit diesem JSON Format (ohne Markdown):
{
  "positive": ["Punkt 1", "Punkt 2", "Punkt 3"],
  "negative": ["Punkt 1"],
  "cleanliness": "Sehr gut",
  "location": "Ausgezeichnet",
  "value": "Gut",
  "summary": "Kurze 1-Satz Zusammenfassung"
}`

// ReviewAnalyzer condenses guest reviews into a structured German summary
// through the Anthropic messages API.
type ReviewAnalyzer struct {
	apiKey string
	model  string
	client *http.Client
}

func NewReviewAnalyzer(apiKey, model string, client *http.Client) *ReviewAnalyzer {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReviewAnalyzer{
		apiKey: apiKey,
		model:  model,
		client: client,
	}
}

func (a *ReviewAnalyzer) Usable() bool {
	return a != nil && a.apiKey != ""
}

// AnalyzeReviews always returns a renderable result. Failures land in the
// Error and Summary fields instead of an error return; a broken analysis
// must never take the search run down with it.
func (a *ReviewAnalyzer) AnalyzeReviews(ctx context.Context, title string, reviews []string) *models.ReviewAnalysis {
	if !a.Usable() {
		return &models.ReviewAnalysis{
			Error:   "missing API key",
			Summary: "Review-Analyse nicht verfügbar (kein API Key)",
		}
	}
	if len(reviews) == 0 {
		return &models.ReviewAnalysis{
			Summary:     "Keine Reviews verfügbar",
			Cleanliness: "N/A",
			Location:    "N/A",
			Value:       "N/A",
		}
	}

	if len(reviews) > analysisMaxReviews {
		reviews = reviews[:analysisMaxReviews]
	}
	reviewText := strings.Join(reviews, "\n\n---\n\n")
	if len(reviewText) > analysisMaxChars {
		reviewText = reviewText[:analysisMaxChars] + "..."
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, title, reviewText)

	text, err := a.complete(ctx, prompt)
	if err != nil {
		log.Printf("Review analysis failed for %q: %v", title, err)
		return &models.ReviewAnalysis{
			Error:   err.Error(),
			Summary: "Review-Analyse fehlgeschlagen",
		}
	}

	var analysis models.ReviewAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &analysis); err != nil {
		log.Printf("Review analysis returned unparseable JSON for %q: %v", title, err)
		return &models.ReviewAnalysis{
			Error:   err.Error(),
			Summary: "Review-Analyse fehlgeschlagen",
		}
	}

	return &analysis
}

func (a *ReviewAnalyzer) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      a.model,
		"max_tokens": analysisMaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic API returned empty content")
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

// stripCodeFence unwraps a ```json fenced block when the model ignores the
// "ohne Markdown" instruction.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

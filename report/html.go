package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"stay_scout/models"
)

type reportListing struct {
	Index      int
	Platform   string
	Badge      string
	Title      string
	Location   string
	Price      int
	Rating     float64
	Reviews    int
	Distance   float64
	URL        string
	Images     []string
	ImagesJSON string
	Analysis   *models.ReviewAnalysis
}

type platformCount struct {
	Name  string
	Count int
}

type reportData struct {
	Location string
	CheckIn  string
	CheckOut string
	Total    int
	Counts   []platformCount
	Price    models.PriceStats
	Listings []reportListing
}

// WriteHTML renders the cross-platform comparison report and returns the
// file path.
func WriteHTML(outcome *models.SearchOutcome, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("combined_results_%s.html", outcome.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data := reportData{
		Total: outcome.TotalCount(),
		Price: outcome.Price,
	}
	if outcome.Criteria != nil {
		data.Location = outcome.Criteria.Location
		data.CheckIn = outcome.Criteria.CheckIn
		data.CheckOut = outcome.Criteria.CheckOut
	}
	for _, p := range models.AllPlatforms {
		if n, ok := outcome.PlatformCounts[p]; ok {
			data.Counts = append(data.Counts, platformCount{Name: p.DisplayName(), Count: n})
		}
	}

	for i, rec := range outcome.Listings {
		imagesJSON, _ := json.Marshal(rec.ImageURLs)
		data.Listings = append(data.Listings, reportListing{
			Index:      i + 1,
			Platform:   rec.Platform.DisplayName(),
			Badge:      string(rec.Platform),
			Title:      rec.Title,
			Location:   rec.Subtitle,
			Price:      rec.PriceOrZero(),
			Rating:     rec.RatingOrZero(),
			Reviews:    rec.ReviewCount,
			Distance:   effectiveDistance(rec),
			URL:        rec.URL,
			Images:     rec.ImageURLs,
			ImagesJSON: string(imagesJSON),
			Analysis:   rec.Analysis,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, data); err != nil {
		return "", err
	}
	return path, nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Vergleichsreport - Alle Plattformen</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 20px;
            background: #f5f5f5;
        }
        h1 { color: #FF5A5F; text-align: center; }
        .summary {
            background: white;
            padding: 20px;
            margin: 20px 0;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
        }
        .listing {
            background: white;
            padding: 20px;
            margin: 20px 0;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
        }
        .platform-badge {
            display: inline-block;
            padding: 5px 10px;
            border-radius: 4px;
            color: white;
            font-weight: bold;
            font-size: 12px;
            margin-right: 10px;
        }
        .airbnb { background: #FF5A5F; }
        .booking { background: #003580; }
        .hotelscom { background: #D32F2F; }
        .expedia { background: #0057B8; }
        .price { font-size: 24px; font-weight: bold; color: #008009; }
        .rating {
            background: #FF8C00;
            color: white;
            padding: 5px 10px;
            border-radius: 4px;
            display: inline-block;
        }
        a { color: #FF5A5F; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .analysis {
            background: #f0f7ff;
            padding: 15px;
            border-radius: 8px;
            margin: 15px 0;
        }
        .analysis h4 { margin: 0 0 10px 0; color: #667eea; }
        .analysis ul { margin: 0; }
        .analysis .scores { display: flex; gap: 15px; flex-wrap: wrap; }
        .image-gallery { margin: 20px 0; }
        .gallery-main { position: relative; max-width: 800px; margin: 0 auto; }
        .main-image { width: 100%; height: auto; border-radius: 8px; display: block; }
        .gallery-main button {
            position: absolute; top: 50%; transform: translateY(-50%);
            background: rgba(0,0,0,0.5); color: white; border: none;
            font-size: 24px; padding: 10px 15px; cursor: pointer;
            border-radius: 5px; z-index: 10;
        }
        .gallery-main button:hover { background: rgba(0,0,0,0.8); }
        .gallery-prev { left: 10px; }
        .gallery-next { right: 10px; }
        .image-counter {
            position: absolute; bottom: 10px; left: 50%; transform: translateX(-50%);
            background: rgba(0,0,0,0.5); color: white; padding: 5px 10px;
            border-radius: 5px; font-size: 12px;
        }
        .gallery-thumbnails { display: flex; gap: 10px; margin-top: 10px; overflow-x: auto; padding: 10px 0; }
        .thumbnail {
            width: 80px; height: 60px; object-fit: cover; border-radius: 4px;
            cursor: pointer; border: 2px solid transparent; opacity: 0.6;
            transition: all 0.3s;
        }
        .thumbnail:hover { opacity: 1; transform: scale(1.05); }
        .thumbnail.active { opacity: 1; border-color: #FF5A5F; }
    </style>
</head>
<body>
    <h1>🏠 Unterkunfts-Vergleichsreport</h1>

    <div class="summary">
        <h2>📊 Zusammenfassung</h2>
        <p><strong>Zeitraum:</strong> {{.CheckIn}} - {{.CheckOut}}</p>
        <p><strong>Ort:</strong> {{.Location}}</p>
        <p><strong>Gefunden:</strong> {{.Total}} Unterkünfte</p>
        <p>{{range $i, $c := .Counts}}{{if $i}} | {{end}}<strong>{{$c.Name}}:</strong> {{$c.Count}}{{end}}</p>
        <p><strong>Preisspanne:</strong> CHF {{.Price.Min}} - CHF {{.Price.Max}} (Ø CHF {{printf "%.0f" .Price.Mean}})</p>
    </div>
{{range .Listings}}
    <div class="listing">
        <span class="platform-badge {{.Badge}}">{{.Platform}}</span>
        <h2>{{.Index}}. {{.Title}}</h2>
        <p>📍 {{.Location}}</p>
{{if ge (len .Images) 5}}
        <div class="image-gallery" data-images="{{.ImagesJSON}}">
            <div class="gallery-main">
                <img src="{{index .Images 0}}" alt="{{.Title}}" class="main-image">
                <button class="gallery-prev">❮</button>
                <button class="gallery-next">❯</button>
                <div class="image-counter">1 / {{len .Images}}</div>
            </div>
            <div class="gallery-thumbnails">
{{$title := .Title}}{{range $i, $img := .Images}}                <img src="{{$img}}" class="thumbnail{{if not $i}} active{{end}}" alt="{{$title}}">
{{end}}            </div>
        </div>
{{else if .Images}}
        <div style="margin: 15px 0;">
            <img src="{{index .Images 0}}" alt="{{.Title}}" style="width: 100%; max-width: 800px; border-radius: 8px;">
        </div>
{{end}}
        <p><span class="price">CHF {{.Price}}</span> pro Nacht</p>
        <p><span class="rating">⭐ {{printf "%.1f" .Rating}}</span> ({{.Reviews}} Bewertungen)</p>
        <p>📏 Distanz: {{printf "%.1f" .Distance}} km</p>
{{with .Analysis}}
        <div class="analysis">
            <h4>🤖 AI Review-Analyse</h4>
{{if .Summary}}            <p><strong>Zusammenfassung:</strong> {{.Summary}}</p>
{{end}}{{if .Positive}}            <p><strong>✅ Positiv:</strong></p>
            <ul>{{range .Positive}}<li>{{.}}</li>{{end}}</ul>
{{end}}{{if .Negative}}            <p><strong>⚠️ Zu beachten:</strong></p>
            <ul>{{range .Negative}}<li>{{.}}</li>{{end}}</ul>
{{end}}            <div class="scores">
{{if .Cleanliness}}                <span>🧹 Sauberkeit: <strong>{{.Cleanliness}}</strong></span>
{{end}}{{if .Location}}                <span>📍 Lage: <strong>{{.Location}}</strong></span>
{{end}}{{if .Value}}                <span>💰 Preis-Leistung: <strong>{{.Value}}</strong></span>
{{end}}            </div>
        </div>
{{end}}
        <p><a href="{{.URL}}" target="_blank">🔗 Ansehen auf {{.Platform}}</a></p>
    </div>
{{end}}
    <script>
    document.querySelectorAll('.image-gallery').forEach(function (gallery) {
        var imgs = JSON.parse(gallery.dataset.images);
        var current = 0;
        var main = gallery.querySelector('.main-image');
        var counter = gallery.querySelector('.image-counter');
        var thumbs = gallery.querySelectorAll('.thumbnail');
        function show(i) {
            current = (i + imgs.length) % imgs.length;
            main.src = imgs[current];
            counter.textContent = (current + 1) + ' / ' + imgs.length;
            thumbs.forEach(function (t, j) { t.classList.toggle('active', j === current); });
        }
        gallery.querySelector('.gallery-prev').addEventListener('click', function () { show(current - 1); });
        gallery.querySelector('.gallery-next').addEventListener('click', function () { show(current + 1); });
        thumbs.forEach(function (t, j) { t.addEventListener('click', function () { show(j); }); });
    });
    </script>
</body>
</html>
`))

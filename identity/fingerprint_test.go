package identity

import (
	"encoding/hex"
	"testing"

	"stay_scout/models"
)

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ferienwohnung Alpenblick!", "apt alpenblick"},
		{"Apartment Alpenblick", "apt alpenblick"},
		{"Gemütliche Wohnung am Höhenweg", "gemutliche apt am hohenweg"},
		{"Appartement à Sion", "apt a sion"},
		{"Ferienhaus im Wald", "house im wald"},
		{"Maison de Vacances", "house de vacances"},
		{"Zimmer mit Frühstück", "room mit fruhstuck"},
		{"  Chalet   Edelweiss  ", "chalet edelweiss"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeTitle(c.in); got != c.want {
			t.Fatalf("NormalizeTitle(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}

func TestTitleTokens(t *testing.T) {
	tokens := TitleTokens("Gemütliche Wohnung am Höhenweg")
	want := []string{"gemutliche", "apt", "am", "hohenweg"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
	if TitleTokens("") != nil {
		t.Fatal("empty title must yield no tokens")
	}
}

func TestFingerprintStable(t *testing.T) {
	rec := &models.ListingRecord{
		Platform: models.PlatformAirbnb,
		Title:    "Chalet Bergblick",
		Subtitle: "Ganze Unterkunft in Zermatt",
	}
	first := Fingerprint(rec)
	if first != Fingerprint(rec) {
		t.Fatal("fingerprint must be deterministic")
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(first))
	}
	if _, err := hex.DecodeString(first); err != nil {
		t.Fatalf("fingerprint is not hex: %v", err)
	}
}

func TestFingerprintDistinguishesPlatforms(t *testing.T) {
	a := &models.ListingRecord{Platform: models.PlatformAirbnb, Title: "Chalet Bergblick"}
	b := &models.ListingRecord{Platform: models.PlatformBooking, Title: "Chalet Bergblick"}
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("the same property on two platforms must keep two identities")
	}
}

func TestFingerprintFoldsTitleVariants(t *testing.T) {
	// Re-scrapes of the same listing often restyle the lodging noun; the
	// identity must survive that.
	a := &models.ListingRecord{Platform: models.PlatformAirbnb, Title: "Ferienwohnung Alpenblick", Subtitle: "Zermatt"}
	b := &models.ListingRecord{Platform: models.PlatformAirbnb, Title: "Apartment Alpenblick!", Subtitle: "Zermatt"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("normalized-equal titles must share a fingerprint")
	}

	c := &models.ListingRecord{Platform: models.PlatformAirbnb, Title: "Chalet Edelweiss", Subtitle: "Zermatt"}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("different titles must not collide")
	}
}

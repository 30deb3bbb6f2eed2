package format

import (
	"strings"
	"testing"
	"time"
)

func TestMoneyFrench(t *testing.T) {
	got := Money("fr", 1234.5, "EUR")
	if !strings.HasSuffix(got, "€") {
		t.Fatalf("symbol should trail: %q", got)
	}
	if !strings.Contains(got, "234,50") {
		t.Fatalf("expected comma decimals and two digits: %q", got)
	}
	if strings.Contains(got, "1234") {
		t.Fatalf("thousands should be grouped: %q", got)
	}
	if strings.Contains(got, ".") {
		t.Fatalf("no dot in French amounts: %q", got)
	}
}

func TestMoneyEnglishAndFallbackSymbol(t *testing.T) {
	got := Money("en", 1234.5, "USD")
	if !strings.Contains(got, "1,234.50") {
		t.Fatalf("english grouping/decimals: %q", got)
	}
	if !strings.HasSuffix(got, "$") {
		t.Fatalf("symbol: %q", got)
	}
	if got := Money("fr", 10, "SEK"); !strings.HasSuffix(got, "SEK") {
		t.Fatalf("unknown devise keeps its code: %q", got)
	}
	if got := Money("fr", 10, ""); !strings.HasSuffix(got, "€") {
		t.Fatalf("missing devise defaults to euro: %q", got)
	}
}

func TestPercent(t *testing.T) {
	got := Percent("fr", 0.2)
	if !strings.Contains(got, "20") || !strings.Contains(got, "%") {
		t.Fatalf("percent: %q", got)
	}
	got = Percent("fr", 0.055)
	if !strings.Contains(got, "5,5") {
		t.Fatalf("fractional rate: %q", got)
	}
}

func TestDateRoundTripFrench(t *testing.T) {
	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s := Date("fr", d)
	if s != "02/03/2026" {
		t.Fatalf("french date: %q", s)
	}
	back, err := ParseDate("fr", s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip: %v != %v", back, d)
	}
	if _, err := ParseDate("fr", "2026-03-02"); err == nil {
		t.Fatal("ISO input should not parse as French")
	}
}

func TestDateLong(t *testing.T) {
	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	if got := DateLong("fr", d); got != "lundi 2 mars 2026" {
		t.Fatalf("long date: %q", got)
	}
	if got := DateLong("fr", time.Time{}); got != "" {
		t.Fatalf("zero time renders empty: %q", got)
	}
}

func TestQuantity(t *testing.T) {
	if got := Quantity("fr", 2); got != "2" {
		t.Fatalf("integer quantity: %q", got)
	}
	if got := Quantity("fr", 1.5); got != "1,5" {
		t.Fatalf("decimal quantity: %q", got)
	}
}

// Package format renders amounts and dates for display. The application is
// French-first; English falls back to conventional en formatting.
package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	frPrinter = message.NewPrinter(language.French)
	enPrinter = message.NewPrinter(language.English)
)

func printer(lang string) *message.Printer {
	if lang == "en" {
		return enPrinter
	}
	return frPrinter
}

var symboles = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
}

// Symbole maps an ISO currency code to its display symbol, falling back to
// the code itself.
func Symbole(devise string) string {
	if s, ok := symboles[devise]; ok {
		return s
	}
	if devise == "" {
		return symboles["EUR"]
	}
	return devise
}

// Money renders an amount with locale digit grouping and two decimals, the
// currency symbol trailing the French way: "1 234,56 €".
func Money(lang string, amount float64, devise string) string {
	d := number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2))
	return printer(lang).Sprintf("%v %s", d, Symbole(devise))
}

// Quantity renders a quantity without forced decimals: "2" or "1,5".
func Quantity(lang string, q float64) string {
	return printer(lang).Sprintf("%v", number.Decimal(q, number.MaxFractionDigits(2)))
}

// Percent renders a 0..1 rate as "20 %".
func Percent(lang string, rate float64) string {
	d := number.Decimal(rate*100, number.MaxFractionDigits(1))
	return printer(lang).Sprintf("%v %%", d)
}

const (
	dateLayoutFR = "02/01/2006"
	dateLayoutEN = "2006-01-02"
)

// Date renders a date in the short local convention (dd/mm/yyyy in French).
func Date(lang string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if lang == "en" {
		return t.Format(dateLayoutEN)
	}
	return t.Format(dateLayoutFR)
}

// ParseDate is the inverse of Date for form inputs.
func ParseDate(lang, s string) (time.Time, error) {
	layout := dateLayoutFR
	if lang == "en" {
		layout = dateLayoutEN
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("format: date invalide %q: %w", s, err)
	}
	return t, nil
}

var moisFR = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

var joursFR = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

// DateLong renders "lundi 2 mars 2026" for the planning board header.
func DateLong(lang string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if lang == "en" {
		return t.Format("Monday, January 2, 2006")
	}
	return fmt.Sprintf("%s %d %s %d", joursFR[t.Weekday()], t.Day(), moisFR[t.Month()-1], t.Year())
}

package models

import (
	"testing"
	"time"
)

func TestMonthDateRange(t *testing.T) {
	cases := []struct {
		year, month int
		from, to    string
	}{
		{2024, 3, "2024-03-01", "2024-03-31"},
		{2024, 2, "2024-02-01", "2024-02-29"},
		{2023, 2, "2023-02-01", "2023-02-28"},
		{2023, 12, "2023-12-01", "2023-12-31"},
		{2024, 4, "2024-04-01", "2024-04-30"},
	}
	for _, tc := range cases {
		m := Month{Year: tc.year, Month: tc.month}
		if got := m.DateFrom().Format("2006-01-02"); got != tc.from {
			t.Fatalf("%s DateFrom = %s, want %s", m.String(), got, tc.from)
		}
		if got := m.DateTo().Format("2006-01-02"); got != tc.to {
			t.Fatalf("%s DateTo = %s, want %s", m.String(), got, tc.to)
		}
	}
}

func TestMonthString(t *testing.T) {
	m := Month{Year: 2024, Month: 3}
	if m.String() != "03.2024" {
		t.Fatalf("String = %q", m.String())
	}
	if m.ShortYear() != "24" {
		t.Fatalf("ShortYear = %q", m.ShortYear())
	}
}

func TestDefaultNewMonth(t *testing.T) {
	got := DefaultNewMonth(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	if got.Year != 2023 || got.Month != 12 {
		t.Fatalf("DefaultNewMonth = %+v, want 12.2023", got)
	}
}

func TestNewMonthValidate(t *testing.T) {
	valid := []NewMonth{{Year: 2021, Month: 1}, {Year: 2099, Month: 12}}
	for _, input := range valid {
		if err := input.validate(); err != nil {
			t.Fatalf("%+v: unexpected error %v", input, err)
		}
	}
	invalid := []NewMonth{{Year: 2020, Month: 5}, {Year: 2100, Month: 5}, {Year: 2024, Month: 0}, {Year: 2024, Month: 13}}
	for _, input := range invalid {
		if err := input.validate(); err == nil {
			t.Fatalf("%+v: expected error", input)
		}
	}
}

func soldOn(date time.Time, value string, produce bool) *ProductionPosition {
	p := testPosition("Stół", "-1", value, date)
	p.DoNotProduce = !produce
	return p
}

func TestProductionDocsBySaleDate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }
	a := &ProductionDoc{ID: 1, ProductionPositions: []*ProductionPosition{soldOn(d(20), "10", true)}}
	b := &ProductionDoc{ID: 2}
	c := &ProductionDoc{ID: 3, ProductionPositions: []*ProductionPosition{soldOn(d(3), "10", true), soldOn(d(1), "10", false)}}
	e := &ProductionDoc{ID: 4, ProductionPositions: []*ProductionPosition{soldOn(d(3), "10", true)}, DoNotProduce: true}
	m := Month{Year: 2024, Month: 3, ProductionDocs: []*ProductionDoc{a, b, c, e}}

	sorted := m.ProductionDocsBySaleDate()
	want := []int{3, 4, 1, 2}
	for i, doc := range sorted {
		if doc.ID != want[i] {
			t.Fatalf("position %d: got doc %d, want %d", i, doc.ID, want[i])
		}
	}

	produced := m.ProducedDocs()
	if len(produced) != 3 || produced[0].ID != 3 {
		t.Fatalf("ProducedDocs = %v", produced)
	}
}

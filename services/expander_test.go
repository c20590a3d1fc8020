package services

import (
	"testing"
	"time"

	"suggestguard/models"
)

func TestExpandCountsAndOrder(t *testing.T) {
	e := NewTurkishQueryExpander()
	brand := &models.Brand{Name: "Acme", Keywords: []string{"acme", "acme com"}, Expand: true}

	got := e.Expand(brand)
	want := 2 * (1 + 26 + 6)
	if len(got) != want {
		t.Fatalf("variants: got %d, want %d", len(got), want)
	}
	if got[0] != "acme" || got[1] != "acme a" || got[26] != "acme z" {
		t.Errorf("unexpected head: %q %q %q", got[0], got[1], got[26])
	}
	if got[27] != "acme ç" || got[32] != "acme ü" {
		t.Errorf("extended letters out of order: %q .. %q", got[27], got[32])
	}
	if got[33] != "acme com" {
		t.Errorf("second keyword should start at 33, got %q", got[33])
	}
}

func TestExpandDeterministic(t *testing.T) {
	e := NewTurkishQueryExpander()
	brand := &models.Brand{Keywords: []string{"acme", "ACME bank"}, Expand: true}
	first := e.Expand(brand)
	for i := 0; i < 5; i++ {
		again := e.Expand(brand)
		if len(again) != len(first) {
			t.Fatalf("length changed between runs")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("variant %d changed: %q vs %q", j, first[j], again[j])
			}
		}
	}
}

func TestExpandDeduplicates(t *testing.T) {
	e := NewTurkishQueryExpander()
	got := e.ExpandKeywords([]string{"Acme", "acme", " acme "}, true)
	if len(got) != 1+26+6 {
		t.Errorf("duplicate keywords should collapse, got %d variants", len(got))
	}
}

func TestExpandWithoutExpansion(t *testing.T) {
	e := NewTurkishQueryExpander()
	got := e.ExpandKeywords([]string{"acme", "", "acme com"}, false)
	if len(got) != 2 || got[0] != "acme" || got[1] != "acme com" {
		t.Errorf("got %v", got)
	}
}

func TestExpandEmptyKeywords(t *testing.T) {
	e := NewTurkishQueryExpander()
	if got := e.Expand(&models.Brand{Expand: true}); len(got) != 0 {
		t.Errorf("expected no variants, got %v", got)
	}
}

func TestEstimateScan(t *testing.T) {
	tests := []struct {
		variants, workers int
		delay             time.Duration
		want              time.Duration
	}{
		{33, 3, time.Second, 11 * time.Second},
		{34, 3, time.Second, 12 * time.Second},
		{0, 3, time.Second, 0},
		{5, 0, time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := EstimateScan(tt.variants, tt.workers, tt.delay); got != tt.want {
			t.Errorf("EstimateScan(%d, %d, %v) = %v; want %v", tt.variants, tt.workers, tt.delay, got, tt.want)
		}
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"suggestguard/models"
	"suggestguard/utils"
)

func TestBrandID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme", "acme"},
		{"  Best   Market ", "best-market"},
		{"İYİ Kargo", "iyi-kargo"},
		{"Şok Market", "şok-market"},
	}
	for _, tt := range tests {
		if got := BrandID(tt.name); got != tt.want {
			t.Errorf("BrandID(%q): got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBrandAdd(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewBrandService(store, utils.NewLogger())

	b, err := svc.Add(ctx, models.Brand{Name: "Best Market", Keywords: []string{" best market ", "", "best market", "bestmarket"}, Expand: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.ID != "best-market" || !b.Active || b.CreatedAt.IsZero() {
		t.Errorf("brand: got %+v", b)
	}
	if len(b.Keywords) != 2 || b.Keywords[0] != "best market" {
		t.Errorf("keywords: got %q", b.Keywords)
	}

	if _, err := svc.Add(ctx, models.Brand{Name: "best  market"}); !errors.Is(err, ErrBrandExists) {
		t.Errorf("duplicate Add: got %v, want ErrBrandExists", err)
	}
	if _, err := svc.Add(ctx, models.Brand{Name: "  "}); err == nil {
		t.Errorf("empty name should fail")
	}

	solo, err := svc.Add(ctx, models.Brand{Name: "Acme"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(solo.Keywords) != 1 || solo.Keywords[0] != "Acme" {
		t.Errorf("default keywords: got %q", solo.Keywords)
	}
}

func TestBrandUpdateAndDeactivate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewBrandService(store, utils.NewLogger())
	if _, err := svc.Add(ctx, models.Brand{Name: "Acme"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	name := "ACME Corp"
	expand := true
	b, err := svc.Update(ctx, "acme", BrandUpdate{Name: &name, Keywords: []string{"acme", "acme corp"}, Expand: &expand})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if b.ID != "acme" || b.Name != name || len(b.Keywords) != 2 || !b.Expand {
		t.Errorf("updated brand: got %+v", b)
	}

	if _, err := svc.SetActive(ctx, "acme", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, _ := store.ListBrands(ctx, true)
	if len(active) != 0 {
		t.Errorf("deactivated brand still active: %+v", active)
	}
	all, _ := store.ListBrands(ctx, false)
	if len(all) != 1 {
		t.Errorf("brands: got %d, want 1", len(all))
	}

	if _, err := svc.SetActive(ctx, "missing", true); err == nil {
		t.Errorf("updating a missing brand should fail")
	}
}

func TestBrandSeedKeepsActiveFlag(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewBrandService(store, utils.NewLogger())

	first, err := svc.Seed(ctx, models.Brand{Name: "Acme", Keywords: []string{"acme"}})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := svc.SetActive(ctx, first.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	again, err := svc.Seed(ctx, models.Brand{Name: "Acme", Keywords: []string{"acme", "acme tr"}})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if again.Active {
		t.Errorf("seed reactivated a paused brand")
	}
	if len(again.Keywords) != 2 || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("seeded brand: got %+v", again)
	}
}

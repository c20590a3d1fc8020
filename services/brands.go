package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"suggestguard/models"
	"suggestguard/storage"
	"suggestguard/utils"
)

// ErrBrandExists is returned when adding a brand whose ID is taken.
var ErrBrandExists = errors.New("brand already exists")

// BrandID derives the stable brand ID from a display name.
func BrandID(name string) string {
	return strings.Join(strings.Fields(utils.FoldForMatch(name)), "-")
}

// BrandUpdate lists the fields to change; nil fields are left alone.
type BrandUpdate struct {
	Name     *string
	Keywords []string
	Expand   *bool
	Active   *bool
	Language *string
	Country  *string
}

// BrandService registers and edits monitored brands.
type BrandService struct {
	store  storage.BrandStore
	logger *utils.Logger
	now    func() time.Time
}

func NewBrandService(store storage.BrandStore, logger *utils.Logger) *BrandService {
	return &BrandService{store: store, logger: logger, now: time.Now}
}

// Add registers a new active brand. Keywords default to the name.
func (s *BrandService) Add(ctx context.Context, b models.Brand) (*models.Brand, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return nil, errors.New("brand: name is required")
	}
	if b.ID == "" {
		b.ID = BrandID(b.Name)
	}
	if _, err := s.store.LoadBrand(ctx, b.ID); err == nil {
		return nil, fmt.Errorf("brand %s: %w", b.ID, ErrBrandExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("brand: load %s: %w", b.ID, err)
	}

	b.Keywords = cleanKeywords(b.Keywords)
	if len(b.Keywords) == 0 {
		b.Keywords = []string{b.Name}
	}
	b.Active = true
	b.CreatedAt = s.now().UTC()

	if err := s.store.SaveBrand(ctx, &b); err != nil {
		return nil, fmt.Errorf("brand: save %s: %w", b.ID, err)
	}
	s.logger.Info("[brands] Added %q (%s) with %d keywords", b.Name, b.ID, len(b.Keywords))
	return &b, nil
}

// Update applies u to brand id. The ID never changes, even on rename.
func (s *BrandService) Update(ctx context.Context, id string, u BrandUpdate) (*models.Brand, error) {
	b, err := s.store.LoadBrand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("brand: load %s: %w", id, err)
	}
	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			b.Name = name
		}
	}
	if kws := cleanKeywords(u.Keywords); len(kws) > 0 {
		b.Keywords = kws
	}
	if u.Expand != nil {
		b.Expand = *u.Expand
	}
	if u.Active != nil {
		b.Active = *u.Active
	}
	if u.Language != nil {
		b.Language = *u.Language
	}
	if u.Country != nil {
		b.Country = *u.Country
	}

	if err := s.store.SaveBrand(ctx, b); err != nil {
		return nil, fmt.Errorf("brand: save %s: %w", id, err)
	}
	return b, nil
}

// SetActive pauses or resumes scanning of brand id.
func (s *BrandService) SetActive(ctx context.Context, id string, active bool) (*models.Brand, error) {
	b, err := s.Update(ctx, id, BrandUpdate{Active: &active})
	if err != nil {
		return nil, err
	}
	s.logger.Info("[brands] %q active=%v", b.Name, active)
	return b, nil
}

// Seed stores b when absent and refreshes its keywords otherwise, keeping
// the stored active flag and creation time.
func (s *BrandService) Seed(ctx context.Context, b models.Brand) (*models.Brand, error) {
	if b.ID == "" {
		b.ID = BrandID(b.Name)
	}
	if _, err := s.store.LoadBrand(ctx, b.ID); errors.Is(err, storage.ErrNotFound) {
		return s.Add(ctx, b)
	} else if err != nil {
		return nil, fmt.Errorf("brand: load %s: %w", b.ID, err)
	}
	return s.Update(ctx, b.ID, BrandUpdate{
		Name:     &b.Name,
		Keywords: b.Keywords,
		Expand:   &b.Expand,
		Language: &b.Language,
		Country:  &b.Country,
	})
}

func cleanKeywords(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

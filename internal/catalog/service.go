package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/pricing"
	"github.com/noah-isme/backend-erp/internal/staging"
	"github.com/noah-isme/backend-erp/internal/tax"
)

// ErrNotFound indicates the reference item does not exist.
var ErrNotFound = errors.New("item not found")

// Item is the read-only master-data view staging flows resolve lines against.
type Item struct {
	ID        uuid.UUID     `json:"id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	TaxClass  tax.Class     `json:"taxClass"`
	UnitCost  pricing.Money `json:"unitCost"`
	ListPrice pricing.Money `json:"listPrice"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store defines the master-data lookups the resolver needs.
type Store interface {
	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
}

// Service resolves reference items, caching lookups since staging flows hit
// the same handful of items repeatedly while an operator keys in a document.
type Service struct {
	Store Store
	Cache *Cache
}

func itemKey(id uuid.UUID) string {
	return "item:" + id.String()
}

// Resolve loads a reference item by id.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("catalog service not configured")
	}
	if id == uuid.Nil {
		return Item{}, fmt.Errorf("empty item id: %w", ErrNotFound)
	}
	var cached Item
	if hit, err := s.Cache.GetJSON(ctx, itemKey(id), &cached); err == nil && hit {
		return cached, nil
	}
	item, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	_ = s.Cache.SetJSON(ctx, itemKey(id), item)
	return item, nil
}

// ResolveItem adapts the catalog service to the staging resolver contract.
func (s *Service) ResolveItem(ctx context.Context, id uuid.UUID) (staging.ItemInfo, error) {
	item, err := s.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return staging.ItemInfo{}, staging.ErrInvalidLine
		}
		return staging.ItemInfo{}, err
	}
	return staging.ItemInfo{
		ID:       item.ID,
		Name:     item.Name,
		TaxClass: item.TaxClass,
		UnitCost: item.UnitCost,
	}, nil
}

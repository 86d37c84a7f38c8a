package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// StockReader is the projection source.
type StockReader interface {
	StockRows(ctx context.Context, storeID int64) ([]StockRow, error)
	StoreIDs(ctx context.Context) ([]int64, error)
}

// Service serves the stock projection, cached in Redis and collapsed through
// singleflight so a cold key triggers one database query no matter how many
// requests race on it.
type Service struct {
	reader StockReader
	cache  *Cache
	group  singleflight.Group
}

// NewService constructs the report service.
func NewService(reader StockReader, cache *Cache) *Service {
	return &Service{reader: reader, cache: cache}
}

// Stock returns the stock projection for a store.
func (s *Service) Stock(ctx context.Context, storeID int64) ([]StockRow, error) {
	key, err := s.cache.BuildKey(ctx, keyStock(storeID)...)
	if err != nil {
		return nil, err
	}

	resultChan := s.group.DoChan(key, func() (any, error) {
		var rows []StockRow
		err := s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (any, error) {
			return s.reader.StockRows(ctx, storeID)
		})
		return rows, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		rows, _ := res.Val.([]StockRow)
		return rows, nil
	}
}

// LowStock returns only the rows classified low or out of stock, across all
// stores with ledger activity. Used by the periodic scan.
func (s *Service) LowStock(ctx context.Context) ([]StockRow, error) {
	stores, err := s.reader.StoreIDs(ctx)
	if err != nil {
		return nil, err
	}
	var out []StockRow
	for _, storeID := range stores {
		rows, err := s.Stock(ctx, storeID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Class != StockOK {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// Invalidate drops all cached projections.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

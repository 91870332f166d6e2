package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemStore keeps products in process memory. Used for local runs without a
// database and in tests.
type MemStore struct {
	mu     sync.RWMutex
	rows   []Row
	nextID int64
}

func NewMemStore(rows ...Row) *MemStore {
	s := &MemStore{}
	for _, r := range rows {
		if r.ID == 0 {
			r.ID = s.nextID + 1
		}
		if r.ID > s.nextID {
			s.nextID = r.ID
		}
		s.rows = append(s.rows, r)
	}
	return s
}

// DemoRows seeds local runs.
func DemoRows() []Row {
	return []Row{
		{Name: "Rifle M4 CQB", Category: "Rifles", Specs: "Gearbox V2, 350 FPS", PriceUSD: "320"},
		{Name: "Mira holográfica", Category: "Accesorios", Specs: "Punto rojo, montura 20mm", PriceUSD: "45.50"},
		{Name: "Kit de limpieza", Category: "Kits", Specs: "Baqueta, aceite de silicona", PriceUSD: "18"},
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context, c Criteria) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		if c.Match(r) {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.rows))
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}

	sort.Strings(out)
	return out, nil
}

func (s *MemStore) Insert(ctx context.Context, p NewProduct) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.rows = append(s.rows, Row{
		ID:        s.nextID,
		Name:      p.Name,
		Category:  p.Category,
		Specs:     p.Specs,
		PriceUSD:  p.PriceUSD.String(),
		PriceCOP:  p.PriceCOP.String(),
		ImageURLs: p.joinedImages(),
	})
	return s.nextID, nil
}

// Get returns one stored row; handy for tests and the admin response.
func (s *MemStore) Get(id int64) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

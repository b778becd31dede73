package catalog

import (
	_ "embed"
	"sort"

	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"gopkg.in/yaml.v3"
)

// AllCategories is the sentinel category that disables filtering.
const AllCategories = "All"

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Categories []string             `yaml:"categories"`
	Products   []domain.CatalogItem `yaml:"products"`
}

// Store is the immutable product list shipped with the binary.
type Store struct {
	items      []domain.CatalogItem
	categories []string
	index      map[int64]int
	maxID      int64
}

// Load parses the embedded catalog.
func Load() (*Store, error) {
	return Parse(catalogYAML)
}

// MustLoad is Load for process start.
func MustLoad() *Store {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse builds a Store from yaml data.
func Parse(data []byte) (*Store, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	s := &Store{
		items:      f.Products,
		categories: f.Categories,
		index:      make(map[int64]int, len(f.Products)),
	}
	for i, it := range f.Products {
		if it.ID <= 0 {
			return nil, errors.Errorf("catalog entry %q has invalid id %d", it.Name, it.ID)
		}
		if _, dup := s.index[it.ID]; dup {
			return nil, errors.Errorf("duplicate catalog id %d", it.ID)
		}
		s.index[it.ID] = i
		if it.ID > s.maxID {
			s.maxID = it.ID
		}
	}
	return s, nil
}

// Items returns catalog entries in declaration order.
func (s *Store) Items() []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Get(id int64) (domain.CatalogItem, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.CatalogItem{}, false
	}
	return s.items[i], true
}

func (s *Store) Has(id int64) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store) MaxID() int64 {
	return s.maxID
}

// Categories returns the declared categories, without the "All" sentinel.
func (s *Store) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// IDs returns catalog ids sorted ascending.
func (s *Store) IDs() []int64 {
	ids := make([]int64, 0, len(s.items))
	for _, it := range s.items {
		ids = append(ids, it.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

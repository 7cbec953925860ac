package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"autofint/internal/core"
	"autofint/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps the ledger and the category registry in process memory.
// Everything is lost on restart.
type Store struct {
	mu     sync.Mutex
	cats   []core.Category
	items  []core.Transaction
	nextID int64
}

func New(cats []core.Category) *Store {
	return &Store{cats: dedupe(cats), nextID: 1}
}

// NewFromFile seeds categories from a text file with one "Type:Name" or
// "Type:Name:savings" entry per line. A missing file yields an empty
// registry, left for the category service to seed.
func NewFromFile(path string) *Store {
	var cats []core.Category
	for _, line := range readLines(path) {
		c, err := parseCategoryLine(line)
		if err != nil {
			continue
		}
		cats = append(cats, c)
	}
	return New(cats)
}

func (s *Store) CountCategories(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cats), nil
}

func (s *Store) InsertCategory(_ context.Context, c core.Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.Name == c.Name {
			return false, nil
		}
	}
	s.cats = append(s.cats, c)
	return true, nil
}

func (s *Store) GetCategory(_ context.Context, name string) (core.Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.Name == name {
			return c, true, nil
		}
	}
	return core.Category{}, false, nil
}

func (s *Store) ListCategories(_ context.Context, typ core.TxType) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if typ == "" || c.Type == typ {
			out = append(out, c)
		}
	}
	return out, nil
}

// InsertTransaction stores t under a fresh id.
func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	s.items = append(s.items, t)
	return t.ID, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(t.ID)
	if i < 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	s.items[i] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return s.items[i], nil
}

func (s *Store) QueryTransactions(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Apply(s.items), nil
}

func (s *Store) SumTotals(_ context.Context, f core.Filter) (core.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(f.WithoutLimit().Apply(s.items)), nil
}

func (s *Store) SumExpensesByCategory(_ context.Context, f core.Filter) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.GroupExpenses(f.WithoutLimit().Apply(s.items)), nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) indexOf(id int64) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func parseCategoryLine(line string) (core.Category, error) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Category{}, fmt.Errorf("malformed category line %q", line)
	}
	typ, err := core.ParseTxType(parts[0])
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: strings.TrimSpace(parts[1]), Type: typ}
	if len(parts) == 3 {
		c.IsSavings = strings.EqualFold(strings.TrimSpace(parts[2]), "savings")
	}
	return c, c.Validate()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe keeps the first category for each name, preserving order.
func dedupe(in []core.Category) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

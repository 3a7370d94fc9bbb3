package script

import (
	"strings"

	"github.com/zurustar/jxscript/pkg/fileutil"
)

// ProgramLoader obtains a parsed program for a script path.
type ProgramLoader interface {
	Load(path string) (*Program, error)
}

// Cache memoizes parsed programs by normalized, case-folded path.
// Failed loads are not cached. A Cache belongs to one session and is not
// safe for concurrent use.
type Cache struct {
	loader   ProgramLoader
	programs map[string]*Program
}

// NewCache creates an empty cache in front of loader.
func NewCache(loader ProgramLoader) *Cache {
	return &Cache{
		loader:   loader,
		programs: make(map[string]*Program),
	}
}

// Get returns the cached program for path, loading and parsing it on first use.
func (c *Cache) Get(path string) (*Program, error) {
	key := cacheKey(path)
	if p, ok := c.programs[key]; ok {
		return p, nil
	}
	p, err := c.loader.Load(path)
	if err != nil {
		return nil, err
	}
	c.programs[key] = p
	return p, nil
}

// Put stores an already parsed program under path.
func (c *Cache) Put(path string, p *Program) {
	c.programs[cacheKey(path)] = p
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	return len(c.programs)
}

// Purge drops every cached program.
func (c *Cache) Purge() {
	c.programs = make(map[string]*Program)
}

func cacheKey(path string) string {
	return strings.ToLower(fileutil.NormalizePath(path))
}

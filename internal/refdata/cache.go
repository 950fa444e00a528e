package refdata

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/domain"
)

// Source lists the reference endpoints the cache is populated from.
type Source interface {
	ListStatuses(ctx context.Context) ([]domain.ReferenceItem, error)
	ListPriorities(ctx context.Context) ([]domain.ReferenceItem, error)
	ListDepartments(ctx context.Context) ([]domain.ReferenceItem, error)
	ListTypes(ctx context.Context) ([]domain.ReferenceItem, error)
	ListAgents(ctx context.Context) ([]domain.UserRef, error)
}

// Sets bundles one full copy of every lookup set.
type Sets struct {
	Statuses    []domain.ReferenceItem `json:"statuses"`
	Priorities  []domain.ReferenceItem `json:"priorities"`
	Departments []domain.ReferenceItem `json:"departments"`
	Types       []domain.ReferenceItem `json:"types"`
	Agents      []domain.UserRef       `json:"agents"`
}

type refSet struct {
	items  []domain.ReferenceItem
	byID   map[string]domain.ReferenceItem
	byName map[string]domain.ReferenceItem
}

// Cache holds the session's slowly-changing lookup sets. It is read-only
// after population; a refresh is a full replace so in-flight normalizer
// calls never observe a half-updated table.
type Cache struct {
	mu       sync.RWMutex
	sets     map[domain.ReferenceKind]refSet
	agents   []domain.UserRef
	agentIDs map[string]domain.UserRef
	loaded   bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		sets:     make(map[domain.ReferenceKind]refSet),
		agentIDs: make(map[string]domain.UserRef),
	}
}

// Load populates the cache from the backend, falling back to the snapshot
// store when the backend is unreachable. Snapshot writes are best effort.
func (c *Cache) Load(ctx context.Context, src Source, snap *Snapshot, logger *zap.Logger) error {
	sets, err := fetchSets(ctx, src)
	if err != nil {
		if snap != nil {
			if cached, ok := snap.Load(ctx); ok {
				logger.Warn("reference fetch failed, using snapshot", zap.Error(err))
				c.Replace(*cached)
				return nil
			}
		}
		return err
	}

	c.Replace(*sets)
	if snap != nil {
		if saveErr := snap.Save(ctx, *sets); saveErr != nil {
			logger.Warn("reference snapshot save failed", zap.Error(saveErr))
		}
	}
	return nil
}

// Replace installs a full copy of every lookup set atomically.
func (c *Cache) Replace(sets Sets) {
	next := map[domain.ReferenceKind]refSet{
		domain.RefStatus:     buildSet(sets.Statuses),
		domain.RefPriority:   buildSet(sets.Priorities),
		domain.RefDepartment: buildSet(sets.Departments),
		domain.RefType:       buildSet(sets.Types),
	}
	agentIDs := make(map[string]domain.UserRef, len(sets.Agents))
	for _, agent := range sets.Agents {
		agentIDs[agent.ID] = agent
	}

	c.mu.Lock()
	c.sets = next
	c.agents = append([]domain.UserRef(nil), sets.Agents...)
	c.agentIDs = agentIDs
	c.loaded = true
	c.mu.Unlock()
}

// Loaded reports whether the cache has been populated this session.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Resolve looks a reference value up by id, falling back to a
// case-insensitive name match when the id misses.
func (c *Cache) Resolve(kind domain.ReferenceKind, idOrName string) (domain.ReferenceItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[kind]
	if !ok {
		return domain.ReferenceItem{}, false
	}
	if item, ok := set.byID[idOrName]; ok {
		return item, true
	}
	item, ok := set.byName[strings.ToLower(idOrName)]
	return item, ok
}

// Items returns the loaded items of one kind in fetch order.
func (c *Cache) Items(kind domain.ReferenceKind) []domain.ReferenceItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.ReferenceItem(nil), c.sets[kind].items...)
}

// Agent returns the directory entry for an agent id.
func (c *Cache) Agent(id string) (domain.UserRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agent, ok := c.agentIDs[id]
	return agent, ok
}

// Agents returns the loaded agent directory in fetch order.
func (c *Cache) Agents() []domain.UserRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.UserRef(nil), c.agents...)
}

func buildSet(items []domain.ReferenceItem) refSet {
	set := refSet{
		items:  append([]domain.ReferenceItem(nil), items...),
		byID:   make(map[string]domain.ReferenceItem, len(items)),
		byName: make(map[string]domain.ReferenceItem, len(items)),
	}
	for _, item := range items {
		set.byID[item.ID] = item
		set.byName[strings.ToLower(item.Name)] = item
	}
	return set
}

func fetchSets(ctx context.Context, src Source) (*Sets, error) {
	statuses, err := src.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := src.ListPriorities(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := src.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	types, err := src.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := src.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return &Sets{
		Statuses:    statuses,
		Priorities:  priorities,
		Departments: departments,
		Types:       types,
		Agents:      agents,
	}, nil
}

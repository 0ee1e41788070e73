package capability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrProviderExists  = errors.New("provider already exists")
	ErrProviderNil     = errors.New("provider is nil")
	ErrInvalidMetadata = errors.New("invalid provider metadata")
)

// Registry stores providers by stable identifier.
type Registry struct {
	items map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Provider)}
}

// ValidateMetadata checks required metadata fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	name := strings.TrimSpace(meta.Name)
	if id == "" || name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidMetadata)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return ErrProviderNil
	}
	meta := p.Metadata()
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := r.items[meta.ID]; ok {
		return ErrProviderExists
	}
	r.items[meta.ID] = p
	return nil
}

// Resolve returns a provider by id.
func (r *Registry) Resolve(id string) (Provider, bool) {
	p, ok := r.items[id]
	return p, ok
}

// Status is one provider's probed state for listings.
type Status struct {
	Metadata
	Available bool     `json:"available"`
	Actions   []string `json:"actions"`
}

// Snapshot loads every provider and returns their states ordered by id.
func (r *Registry) Snapshot() []Status {
	list := make([]Status, 0, len(r.items))
	for _, p := range r.items {
		set := p.Load()
		list = append(list, Status{
			Metadata:  p.Metadata(),
			Available: !set.Empty(),
			Actions:   set.Tags(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

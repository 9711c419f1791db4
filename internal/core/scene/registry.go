package scene

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/citrus/internal/core/ecs"
)

// Creator attaches a fresh copy of a registered default to e.
type Creator func(e *ecs.Entity) (ecs.ErasedElementAddr, error)

// CreatorEntry binds a persisted type name to a Go element type.
type CreatorEntry struct {
	Name   string
	Type   reflect.Type
	Create Creator
}

type elementPtr[T any] interface {
	*T
	ecs.Element
}

// Registry maps element type names to creators. It is not safe for concurrent
// registration.
type Registry struct {
	entries []*CreatorEntry
	byName  map[uint64][]*CreatorEntry
	byType  map[reflect.Type]*CreatorEntry
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[uint64][]*CreatorEntry),
		byType: make(map[reflect.Type]*CreatorEntry),
	}
}

// Register makes T persistable under name. Elements created while loading a
// scene start as a deep copy of def before their payload is decoded into them:
// maps, slices and pointers reachable through exported fields are never shared
// between elements. Types implementing Cloner[T] are copied with Clone.
// Registering the same name and type again replaces the default.
func Register[T any, PT elementPtr[T]](r *Registry, def T, name string) error {
	return RegisterFunc[T, PT](r, func() T { return cloneDefault(def) }, name)
}

// RegisterFunc is Register with a constructor called once per created element.
func RegisterFunc[T any, PT elementPtr[T]](r *Registry, newFn func() T, name string) error {
	typ := reflect.TypeFor[T]()

	if prev := r.FindExact(name); prev != nil && prev.Type != typ {
		return fmt.Errorf("%w: %q is %s", ErrNameTaken, name, prev.Type)
	}
	if prev := r.FindByType(typ); prev != nil && prev.Name != name {
		return fmt.Errorf("%w: %s is %q", ErrTypeRegistered, typ, prev.Name)
	}

	entry := &CreatorEntry{
		Name: name,
		Type: typ,
		Create: func(e *ecs.Entity) (ecs.ErasedElementAddr, error) {
			addr, err := ecs.AddElement[T, PT](e, newFn())
			if err != nil {
				return ecs.ErasedElementAddr{}, err
			}
			return addr.Erase(), nil
		},
	}

	if prev := r.byType[typ]; prev != nil {
		*prev = *entry
		return nil
	}
	r.entries = append(r.entries, entry)
	key := xxhash.Sum64String(name)
	r.byName[key] = append(r.byName[key], entry)
	r.byType[typ] = entry
	return nil
}

// FindExact returns the entry registered under name, or nil.
func (r *Registry) FindExact(name string) *CreatorEntry {
	for _, e := range r.byName[xxhash.Sum64String(name)] {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindByType returns the entry for the element type t, or nil.
func (r *Registry) FindByType(t reflect.Type) *CreatorEntry {
	return r.byType[t]
}

// FindCreators returns every entry whose name contains substr, sorted by name.
func (r *Registry) FindCreators(substr string) []CreatorEntry {
	var out []CreatorEntry
	for _, e := range r.entries {
		if strings.Contains(e.Name, substr) {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b CreatorEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.entries)
}

package capability

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

const registryLogPrefix = "capability:registry"

// Registry maps discriminators to capability factories for one namespace.
// Registries are populated by explicit startup registration calls and are
// never mutated afterwards; Lookup is safe for concurrent readers.
type Registry struct {
	entries map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Factory)}
}

// Register adds a factory under its default discriminator: the name of the
// concrete type the factory produces. Registration happens once at startup;
// a duplicate or unnameable registration is a programming error and panics.
func (r *Registry) Register(f Factory) {
	r.RegisterAs(defaultDiscriminator(f), f)
}

// RegisterAs adds a factory under an explicit discriminator, overriding the
// type-name default.
func (r *Registry) RegisterAs(name string, f Factory) {
	if name == "" {
		panic(fmt.Sprintf("%s - empty discriminator", registryLogPrefix))
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("%s - duplicate discriminator %q", registryLogPrefix, name))
	}
	r.entries[name] = f
}

// Lookup resolves a discriminator to its factory.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.entries[name]
	return f, ok
}

// Names returns all registered discriminators, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Describe produces the descriptor set of every registered capability,
// keyed by discriminator. This is the schema advertised in the join
// handshake.
func (r *Registry) Describe() (map[string]schema.Descriptor, error) {
	out := make(map[string]schema.Descriptor, len(r.entries))
	for name, f := range r.entries {
		d, err := schema.Describe(f())
		if err != nil {
			return nil, fmt.Errorf("%s - describe %q: %w", registryLogPrefix, name, err)
		}
		out[name] = d
	}
	return out, nil
}

// defaultDiscriminator derives the registration key from the concrete type
// name of the factory's product.
func defaultDiscriminator(f Factory) string {
	t := reflect.TypeOf(f())
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

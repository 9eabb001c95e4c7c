package fbtft

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/BeatGlow/fbtft/framebuffer"
)

// Registry errors.
var (
	ErrNameInUse  = errors.New("fbtft: frame buffer id already registered")
	ErrNoSuchNode = errors.New("fbtft: no such frame buffer node")
	ErrEmptyID    = errors.New("fbtft: empty frame buffer id")
)

// Node is a registered frame buffer.
type Node struct {
	// ID is the driver id passed to Register.
	ID string

	// Name is the assigned node name, fb0, fb1, ...
	Name string

	// Info is the screen information, built from the buffer metadata.
	Info framebuffer.Info
}

func (n Node) String() string {
	return n.Name + ": " + n.Info.String()
}

// Registry is an in-process registration consumer. It names buffers in
// registration order and reports their metadata verbatim. The zero value is
// an empty registry.
type Registry struct {
	mu    sync.Mutex
	next  int
	nodes map[string]Node
	ids   map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]Node),
		ids:   make(map[string]string),
	}
}

// Register records id with meta and returns the assigned node. Registering
// an id twice fails with KindRegistration.
func (r *Registry) Register(id string, meta Metadata) (Node, error) {
	if id == "" {
		return Node{}, newError(KindRegistration, StageRegister, ErrEmptyID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nodes == nil {
		r.nodes = make(map[string]Node)
		r.ids = make(map[string]string)
	}
	if name, ok := r.ids[id]; ok {
		return Node{}, newError(KindRegistration, StageRegister, fmt.Errorf("%w: %q as %s", ErrNameInUse, id, name))
	}

	node := Node{
		ID:   id,
		Name: fmt.Sprintf("fb%d", r.next),
		Info: framebuffer.Describe(id, meta.Width, meta.Height, meta.Stride, meta.Format),
	}
	r.next++
	r.nodes[node.Name] = node
	r.ids[id] = node.Name
	return node, nil
}

// Unregister removes a node by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchNode, name)
	}
	delete(r.nodes, name)
	delete(r.ids, node.ID)
	return nil
}

// Lookup returns the node registered under name.
func (r *Registry) Lookup(name string) (Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[name]
	return node, ok
}

// Nodes returns all registered nodes ordered by name.
func (r *Registry) Nodes() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	nodes := make([]Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if len(nodes[i].Name) != len(nodes[j].Name) {
			return len(nodes[i].Name) < len(nodes[j].Name)
		}
		return nodes[i].Name < nodes[j].Name
	})
	return nodes
}

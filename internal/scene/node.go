package scene

import (
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/monitoring"
)

// NodeKind identifies the type of a scene node.
type NodeKind int

const (
	MeshNode             NodeKind = 0
	LineNode             NodeKind = 1 // connected polyline
	LineSegmentsNode     NodeKind = 2 // independent segment pairs
	SpriteNode           NodeKind = 3
	AmbientLightNode     NodeKind = 4
	DirectionalLightNode NodeKind = 5
	AxesHelperNode       NodeKind = 6
)

func (k NodeKind) String() string {
	switch k {
	case MeshNode:
		return "mesh"
	case LineNode:
		return "line"
	case LineSegmentsNode:
		return "line_segments"
	case SpriteNode:
		return "sprite"
	case AmbientLightNode:
		return "ambient_light"
	case DirectionalLightNode:
		return "directional_light"
	case AxesHelperNode:
		return "axes_helper"
	default:
		return "unknown"
	}
}

// Node is a graphics object attached to a Scene. Every node that carries a
// geometry or material must be released through the Owner that added it.
type Node struct {
	ID       string
	Kind     NodeKind
	Name     string
	Geometry *Geometry
	Material *Material
	Position r3.Vec
	Scale    r3.Vec

	// Text is the string rasterised into a sprite's texture.
	Text string

	// Lights only.
	LightColor Color
	Intensity  float64
}

func newNode(kind NodeKind, g *Geometry, m *Material) *Node {
	return &Node{
		ID:       uuid.NewString(),
		Kind:     kind,
		Geometry: g,
		Material: m,
		Scale:    r3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// NewMesh returns a triangle mesh node.
func NewMesh(g *Geometry, m *Material) *Node { return newNode(MeshNode, g, m) }

// NewLine returns a polyline node.
func NewLine(g *Geometry, m *Material) *Node { return newNode(LineNode, g, m) }

// NewLineSegments returns a line segment node.
func NewLineSegments(g *Geometry, m *Material) *Node { return newNode(LineSegmentsNode, g, m) }

// NewSprite returns a camera-facing textured quad.
func NewSprite(m *Material) *Node { return newNode(SpriteNode, nil, m) }

// NewAmbientLight returns an ambient light.
func NewAmbientLight(c Color, intensity float64) *Node {
	n := newNode(AmbientLightNode, nil, nil)
	n.LightColor, n.Intensity = c, intensity
	return n
}

// NewDirectionalLight returns a directional light shining from pos towards the origin.
func NewDirectionalLight(c Color, intensity float64, pos r3.Vec) *Node {
	n := newNode(DirectionalLightNode, nil, nil)
	n.LightColor, n.Intensity, n.Position = c, intensity, pos
	return n
}

// NewAxesHelper returns the three coloured axis segments of the given length.
func NewAxesHelper(size float64) *Node {
	return newNode(AxesHelperNode, AxesGeometry(size), &Material{Kind: LineBasicMaterial, VertexColors: true, Opacity: 1, LineWidth: 1, DepthTest: true})
}

func (n *Node) dispose() {
	n.Geometry.Dispose()
	n.Material.Dispose()
}

// Scene is the ordered set of nodes drawn each frame. Nodes are attached and
// detached only through an Owner.
type Scene struct {
	Background Color

	mu       sync.RWMutex
	children []*Node
	closed   bool
}

// NewScene returns an empty scene with the given background colour.
func NewScene(background Color) *Scene {
	return &Scene{Background: background}
}

// Children returns a copy of the attached nodes in insertion order.
func (s *Scene) Children() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, len(s.children))
	copy(out, s.children)
	return out
}

// Len returns the number of attached nodes.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Contains reports whether n is attached.
func (s *Scene) Contains(n *Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(n) >= 0
}

// CountKind returns the number of attached nodes of the given kind.
func (s *Scene) CountKind(kind NodeKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := 0
	for _, n := range s.children {
		if n.Kind == kind {
			c++
		}
	}
	return c
}

// Read calls fn with the attached nodes while holding the read lock, so no
// node is released mid-render. fn must not retain the slice.
func (s *Scene) Read(fn func(nodes []*Node)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.children)
}

// Closed reports whether the scene has been torn down.
func (s *Scene) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Scene) indexOf(n *Node) int {
	for i, c := range s.children {
		if c == n {
			return i
		}
	}
	return -1
}

func (s *Scene) attach(n *Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.indexOf(n) >= 0 {
		return false
	}
	s.children = append(s.children, n)
	return true
}

// release detaches n and disposes its resources under the write lock.
func (s *Scene) release(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(n); i >= 0 {
		s.children = append(s.children[:i], s.children[i+1:]...)
	}
	n.dispose()
}

func (s *Scene) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Owner records the nodes one component added to a scene so that it, or the
// scene's Manager on teardown, can release exactly those nodes.
type Owner struct {
	name  string
	scene *Scene

	mu    sync.Mutex
	nodes []*Node
}

// NewOwner returns an empty registry bound to s.
func NewOwner(name string, s *Scene) *Owner {
	return &Owner{name: name, scene: s}
}

// Name returns the owner's label used in log lines.
func (o *Owner) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// Add attaches n to the scene and records it. On a closed or missing scene
// the node is disposed immediately and Add returns false.
func (o *Owner) Add(n *Node) bool {
	if o == nil || n == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scene == nil || !o.scene.attach(n) {
		monitoring.Warnf("Scene", "%s: scene unavailable, dropping %s node", o.name, n.Kind)
		n.dispose()
		return false
	}
	o.nodes = append(o.nodes, n)
	return true
}

// Release detaches and disposes one owned node. Unknown nodes are ignored.
func (o *Owner) Release(n *Node) bool {
	if o == nil || n == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.nodes {
		if c == n {
			o.nodes = append(o.nodes[:i], o.nodes[i+1:]...)
			o.scene.release(n)
			return true
		}
	}
	return false
}

// ReleaseAll detaches and disposes every owned node and returns how many
// were released. Calling it on an empty owner is a no-op.
func (o *Owner) ReleaseAll() int {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	released := len(o.nodes)
	for _, n := range o.nodes {
		o.scene.release(n)
	}
	o.nodes = nil
	return released
}

// Owned returns a copy of the owned nodes.
func (o *Owner) Owned() []*Node {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Node, len(o.nodes))
	copy(out, o.nodes)
	return out
}

// Len returns the number of owned nodes.
func (o *Owner) Len() int {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.nodes)
}

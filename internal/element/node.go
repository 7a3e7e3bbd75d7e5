// internal/element/node.go
package element

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/elementcore/internal/geometry"
	"github.com/xkilldash9x/elementcore/internal/property"
	"github.com/xkilldash9x/elementcore/internal/resource"
	"github.com/xkilldash9x/elementcore/internal/styling"
)

// Kind is the closed set of built-in element kinds. Custom behavior plugs
// in through Measurer and Arranger rather than new kinds.
type Kind int

const (
	KindElement Kind = iota
	KindTextBlock
	KindBorder
	KindStackPanel
	KindCanvas
	KindControl
)

var kindNames = []string{"Element", "TextBlock", "Border", "StackPanel", "Canvas", "Control"}

func (k Kind) String() string { return enumName(kindNames, int(k)) }

// ParseKind maps a kind name to a Kind.
func ParseKind(s string) (Kind, bool) {
	i, err := parseEnum(kindNames, s)
	if err != nil {
		return KindElement, false
	}
	return Kind(i), true
}

// Handle is a reference into a Tree's node arena. The zero Handle refers
// to no node. A handle goes stale when its node is released.
type Handle struct {
	index uint32
	gen   uint32
}

// NoHandle is the zero handle.
var NoHandle Handle

func (h Handle) IsValid() bool { return h.index != 0 }

func (h Handle) String() string {
	if !h.IsValid() {
		return "#none"
	}
	return fmt.Sprintf("#%d.%d", h.index, h.gen)
}

// LayoutTransformData is the snapshot of a layout transform taken during
// the last measure pass.
type LayoutTransformData struct {
	Transform              geometry.Matrix
	UntransformedDS        geometry.Size
	TransformedUnroundedDS geometry.Size
}

// LayoutState holds the per-node caches and flags owned by the layout
// engine. The element package only flips the dirty flags.
type LayoutState struct {
	DesiredSize          geometry.Size
	UnclippedDesiredSize geometry.Size
	// HasUnclippedDesiredSize is set when measure clipped the desired size
	// and arrange cannot reconstruct the unclipped one from it.
	HasUnclippedDesiredSize bool
	RenderSize              geometry.Size
	PreviousAvailable       geometry.Size
	PreviousFinalRect       geometry.Rect
	VisualOffset            geometry.Point
	// Transform is the composed layout transform: flow-direction mirror,
	// then layout transform, then render transform.
	Transform       geometry.Matrix
	LayoutTransform *LayoutTransformData

	MeasureDirty         bool
	ArrangeDirty         bool
	NeverMeasured        bool
	NeverArranged        bool
	InMeasure            bool
	InArrange            bool
	MeasureDuringArrange bool
	NeedsClipBounds      bool
	RenderDirty          bool
}

// Node is one element of a Tree. Relations to other nodes are handles;
// all access goes through the owning Tree.
type Node struct {
	tree     *Tree
	handle   Handle
	kind     Kind
	typeName string
	alive    bool

	logicalParent   Handle
	logicalChildren []Handle
	visualParent    Handle
	visualChildren  []Handle
	mentor          Handle
	mentees         []Handle

	local     map[*property.Key]any
	cache     map[*property.Key]property.Entry
	resolving map[*property.Key]bool

	resources *resource.Dictionary
	owned     []*resource.Dictionary

	themeStyle      *styling.Style
	themeStyleValid bool

	templatedParent  Handle
	templateIndex    int
	templateName     string
	templateChildren []Handle
	appliedTemplate  *styling.Template
	applyingTemplate bool
	updatingStyle    int

	inheritance  InheritanceBehavior
	initialized  bool
	sip          bool
	sipValid     bool
	sipComputing bool

	layout   LayoutState
	measurer Measurer
	arranger Arranger
}

var _ property.Object = (*Node)(nil)
var _ resource.Owner = (*Node)(nil)

func (n *Node) Handle() Handle { return n.handle }
func (n *Node) Tree() *Tree { return n.tree }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) TypeName() string { return n.typeName }
func (n *Node) LogicalParent() Handle { return n.logicalParent }
func (n *Node) VisualParent() Handle { return n.visualParent }
func (n *Node) Mentor() Handle { return n.mentor }
func (n *Node) TemplatedParent() Handle { return n.templatedParent }
func (n *Node) TemplateName() string { return n.templateName }
func (n *Node) InheritanceBehavior() InheritanceBehavior { return n.inheritance }
func (n *Node) IsInitialized() bool { return n.initialized }
func (n *Node) Resources() *resource.Dictionary { return n.resources }

// Layout exposes the layout caches. Only the layout engine writes them.
func (n *Node) Layout() *LayoutState { return &n.layout }

// TemplateChildIndex is the node's pre-order position in the template that
// generated it, or -1.
func (n *Node) TemplateChildIndex() int { return n.templateIndex }

func (n *Node) LogicalChildren() []Handle { return append([]Handle(nil), n.logicalChildren...) }
func (n *Node) VisualChildren() []Handle { return append([]Handle(nil), n.visualChildren...) }

// TemplateChildren returns the nodes generated by the applied template,
// indexed by TemplateChildIndex.
func (n *Node) TemplateChildren() []Handle { return append([]Handle(nil), n.templateChildren...) }

// SetLayoutOverrides installs custom sizing behavior; nil keeps the
// built-in behavior of the node's kind.
func (n *Node) SetLayoutOverrides(m Measurer, a Arranger) {
	n.measurer, n.arranger = m, a
}

func (n *Node) Measurer() Measurer { return n.measurer }
func (n *Node) Arranger() Arranger { return n.arranger }

// GetValue returns the effective value of k.
func (n *Node) GetValue(k *property.Key) (any, error) {
	return n.tree.GetValue(n.handle, k)
}

// ResourcesChanged reacts to a change in any dictionary the node depends on.
func (n *Node) ResourcesChanged(c resource.Change) {
	n.tree.onResourcesChanged(n, c)
}

// Name returns the Name property, falling back to the template name.
func (n *Node) Name() string {
	if v, ok := n.local[NameProperty]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return n.templateName
}

func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(n.typeName)
	if name := n.Name(); name != "" {
		b.WriteString("#")
		b.WriteString(name)
	}
	b.WriteString(n.handle.String())
	return b.String()
}

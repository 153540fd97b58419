package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <section>, etc.
	KindText                  // plain text node
	KindFragment              // grouping without wrapper
	KindRaw                   // raw HTML (dangerous)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Props holds element attributes.
type Props map[string]any

// VNode is a node in the server-rendered tree.
type VNode struct {
	Kind     VKind    // node type
	Tag      string   // element tag name (e.g. "div")
	Props    Props    // attributes
	Children []*VNode // child nodes
	Text     string   // for KindText and KindRaw
}

// SetAttr sets an attribute, allocating Props on first use.
func (v *VNode) SetAttr(key string, value any) {
	if v.Props == nil {
		v.Props = make(Props)
	}
	v.Props[key] = value
}

// Attr returns the attribute value and whether it is present.
func (v *VNode) Attr(key string) (any, bool) {
	if v.Props == nil {
		return nil, false
	}
	val, ok := v.Props[key]
	return val, ok
}

// Walk visits v and every descendant in document order. Returning false
// from fn stops the walk.
func Walk(v *VNode, fn func(*VNode) bool) bool {
	if v == nil {
		return true
	}
	if !fn(v) {
		return false
	}
	for _, child := range v.Children {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree.
func Count(v *VNode) int {
	n := 0
	Walk(v, func(*VNode) bool {
		n++
		return true
	})
	return n
}

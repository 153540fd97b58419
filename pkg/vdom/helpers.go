package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates an unescaped HTML node.
// Use with caution - can lead to XSS if content is user-provided.
func Raw(html string) *VNode {
	return &VNode{
		Kind: KindRaw,
		Text: html,
	}
}

// El creates an element node. Children may be *VNode, []*VNode, strings
// (converted to text nodes) or Props (merged into the attributes); nil
// entries are skipped.
func El(tag string, children ...any) *VNode {
	node := &VNode{
		Kind: KindElement,
		Tag:  tag,
	}
	appendChildren(node, children)
	return node
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *VNode {
	node := &VNode{
		Kind: KindFragment,
	}
	appendChildren(node, children)
	return node
}

func appendChildren(node *VNode, children []any) {
	for _, child := range children {
		switch v := child.(type) {
		case nil:
			continue
		case *VNode:
			if v != nil {
				node.Children = append(node.Children, v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}
		case string:
			node.Children = append(node.Children, Text(v))
		case Props:
			for key, val := range v {
				node.SetAttr(key, val)
			}
		default:
			node.Children = append(node.Children, Textf("%v", v))
		}
	}
}

// Common element constructors used by page handlers and tests.

func Div(children ...any) *VNode  { return El("div", children...) }
func Span(children ...any) *VNode { return El("span", children...) }
func Main(children ...any) *VNode { return El("main", children...) }
func Nav(children ...any) *VNode  { return El("nav", children...) }
func H1(children ...any) *VNode   { return El("h1", children...) }
func H2(children ...any) *VNode   { return El("h2", children...) }
func P(children ...any) *VNode    { return El("p", children...) }
func Ul(children ...any) *VNode   { return El("ul", children...) }
func Li(children ...any) *VNode   { return El("li", children...) }
func A(children ...any) *VNode    { return El("a", children...) }

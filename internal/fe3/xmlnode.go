package fe3

import "encoding/xml"

// node is a generic, loosely-typed XML tree used to walk the FE3 SOAP
// response the way spec §4.7/§9 describes: by local element name and by
// ancestor chain, rather than by a rigid schema. FE3's actual response
// shape nests "File" and "SecuredFragment" elements at varying depths
// depending on update type, so a fixed struct tree would miss entries a
// generic walk catches.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func parseXML(data []byte) (*node, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// visitFunc receives the current node and its ancestor chain, outermost
// first, NOT including the node itself.
type visitFunc func(n *node, ancestors []*node)

func walk(n *node, ancestors []*node, visit visitFunc) {
	visit(n, ancestors)
	childAncestors := append(ancestors, n)
	for i := range n.Nodes {
		walk(&n.Nodes[i], childAncestors, visit)
	}
}

func localName(n *node) string {
	return n.XMLName.Local
}

package domain

import "fmt"

// NodeType classifies knowledge graph nodes.
type NodeType string

const (
	// NodeDoc is a document node.
	NodeDoc NodeType = "doc"
	// NodeChunk is a chunk node.
	NodeChunk NodeType = "chunk"
	// NodeEntity is an extracted keyword node.
	NodeEntity NodeType = "entity"
	// NodeQuery is the root node of a query roadmap.
	NodeQuery NodeType = "query"
)

// LinkType classifies knowledge graph links.
type LinkType string

const (
	// LinkContains connects a document to its chunks.
	LinkContains LinkType = "contains"
	// LinkMentions connects a chunk to an entity it mentions.
	LinkMentions LinkType = "mentions"
	// LinkRelated connects two related entities.
	LinkRelated LinkType = "related"
	// LinkSimilarTo connects a query to a retrieved chunk.
	LinkSimilarTo LinkType = "similar_to"
)

// GraphNode is a single node of a knowledge graph snapshot.
// Val drives visual weight in the rendering layer, not semantics.
type GraphNode struct {
	ID    string   `json:"id"`
	Type  NodeType `json:"type"`
	Label string   `json:"label"`
	Val   float64  `json:"val,omitempty"`
}

// GraphLink connects two nodes of the same graph snapshot by id.
type GraphLink struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   LinkType `json:"type"`
	Weight float64  `json:"weight,omitempty"`
}

// KnowledgeGraph is a derived, rebuildable view over documents and chunks.
// It is never the source of truth.
type KnowledgeGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Validate checks the structural invariants of a graph snapshot: node ids are
// unique and every link references existing nodes.
func (g *KnowledgeGraph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, l := range g.Links {
		if _, ok := ids[l.Source]; !ok {
			return fmt.Errorf("link source %q references missing node", l.Source)
		}
		if _, ok := ids[l.Target]; !ok {
			return fmt.Errorf("link target %q references missing node", l.Target)
		}
	}
	return nil
}

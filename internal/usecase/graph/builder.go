// Package graph derives knowledge-graph views from the corpus or from a
// single retrieval result set. Graphs are rebuildable projections, never a
// source of truth, and every snapshot satisfies domain.KnowledgeGraph
// invariants by construction.
package graph

import (
	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/text"
)

// Node visual weights. Rendering hints only.
const (
	docNodeVal    = 10
	chunkNodeVal  = 4
	entityNodeVal = 2
	queryNodeVal  = 12
)

// queryNodeID is the fixed id of a roadmap's root node.
const queryNodeID = "query"

// BuildCorpusGraph builds the full-corpus view: one node per document, one
// per chunk linked to its parent, and up to five entity nodes per chunk,
// deduplicated globally by term. Deterministic for fixed inputs.
func BuildCorpusGraph(docs []domain.Document, chunks []domain.Chunk) domain.KnowledgeGraph {
	g := domain.KnowledgeGraph{}
	seenDocs := make(map[string]struct{}, len(docs))
	seenEntities := make(map[string]struct{})

	for _, d := range docs {
		seenDocs[d.ID] = struct{}{}
		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:    docNodeID(d.ID),
			Type:  domain.NodeDoc,
			Label: d.Title,
			Val:   docNodeVal,
		})
	}

	for _, c := range chunks {
		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:    chunkNodeID(c.ID),
			Type:  domain.NodeChunk,
			Label: snippet(c.Text),
			Val:   chunkNodeVal,
		})
		// Orphan chunks (parent deleted mid-scan) get no contains link.
		if _, ok := seenDocs[c.DocID]; ok {
			g.Links = append(g.Links, domain.GraphLink{
				Source: docNodeID(c.DocID),
				Target: chunkNodeID(c.ID),
				Type:   domain.LinkContains,
			})
		}
		addEntities(&g, chunkNodeID(c.ID), text.Entities(c.Text), seenEntities)
	}

	return g
}

// BuildRoadmap builds the query-centric view: a root query node with a
// similar_to link per retrieved chunk weighted by its score, plus the
// deduplicated parent documents and mentioned entities. It answers "why was
// this retrieved", not "what is in the corpus".
func BuildRoadmap(query string, contexts []domain.RetrievalContext) domain.KnowledgeGraph {
	g := domain.KnowledgeGraph{
		Nodes: []domain.GraphNode{{
			ID:    queryNodeID,
			Type:  domain.NodeQuery,
			Label: query,
			Val:   queryNodeVal,
		}},
	}

	seenChunks := make(map[string]struct{}, len(contexts))
	seenDocs := make(map[string]struct{})
	seenEntities := make(map[string]struct{})

	for _, rc := range contexts {
		if _, dup := seenChunks[rc.ChunkID]; dup {
			continue
		}
		seenChunks[rc.ChunkID] = struct{}{}

		g.Nodes = append(g.Nodes, domain.GraphNode{
			ID:    chunkNodeID(rc.ChunkID),
			Type:  domain.NodeChunk,
			Label: snippet(rc.Content),
			Val:   chunkNodeVal,
		})
		g.Links = append(g.Links, domain.GraphLink{
			Source: queryNodeID,
			Target: chunkNodeID(rc.ChunkID),
			Type:   domain.LinkSimilarTo,
			Weight: rc.Score,
		})

		if _, dup := seenDocs[rc.DocID]; !dup {
			seenDocs[rc.DocID] = struct{}{}
			g.Nodes = append(g.Nodes, domain.GraphNode{
				ID:    docNodeID(rc.DocID),
				Type:  domain.NodeDoc,
				Label: rc.DocTitle,
				Val:   docNodeVal,
			})
		}
		g.Links = append(g.Links, domain.GraphLink{
			Source: chunkNodeID(rc.ChunkID),
			Target: docNodeID(rc.DocID),
			Type:   domain.LinkContains,
		})

		addEntities(&g, chunkNodeID(rc.ChunkID), rc.RelatedEntities, seenEntities)
	}

	return g
}

// addEntities appends entity nodes (deduplicated by term across the whole
// graph) and mentions links from the given chunk node.
func addEntities(g *domain.KnowledgeGraph, chunkNode string, terms []string, seen map[string]struct{}) {
	for _, term := range terms {
		if _, dup := seen[term]; !dup {
			seen[term] = struct{}{}
			g.Nodes = append(g.Nodes, domain.GraphNode{
				ID:    entityNodeID(term),
				Type:  domain.NodeEntity,
				Label: term,
				Val:   entityNodeVal,
			})
		}
		g.Links = append(g.Links, domain.GraphLink{
			Source: chunkNode,
			Target: entityNodeID(term),
			Type:   domain.LinkMentions,
		})
	}
}

func docNodeID(id string) string      { return "doc:" + id }
func chunkNodeID(id string) string    { return "chunk:" + id }
func entityNodeID(term string) string { return "entity:" + term }

// snippet shortens chunk text for node labels.
func snippet(s string) string {
	const max = 60
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

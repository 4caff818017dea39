package main

import (
	"fmt"
	"slices"
)

// aggregateJoinTable collapses the vertex type of join entity e into an
// aggregator edge type from outRel's parent to inRel's parent. An empty name
// reuses the join table's vertex type name.
func aggregateJoinTable(m *GraphModel, e *Entity, outRel, inRel *Relationship, name string) (*EdgeType, error) {
	mapping, ok := m.Mappings[e]
	if !ok {
		return nil, fmt.Errorf("join table %s has no vertex type", e.Name)
	}
	out, ok := m.Mappings[outRel.ParentEntity]
	if !ok {
		return nil, fmt.Errorf("join table %s references %s which has no vertex type", e.Name, outRel.ParentEntity.Name)
	}
	in, ok := m.Mappings[inRel.ParentEntity]
	if !ok {
		return nil, fmt.Errorf("join table %s references %s which has no vertex type", e.Name, inRel.ParentEntity.Name)
	}
	if name == "" {
		name = mapping.Vertex.Name
	}

	m.unbindRelationship(outRel)
	m.unbindRelationship(inRel)
	m.removeVertexType(mapping.Vertex)
	delete(m.Mappings, e)

	name = edgeTypeName(m, name)
	et := m.edgeType(name)
	if et == nil {
		et = &EdgeType{ElementType: ElementType{Name: name}, Out: out.Vertex, In: in.Vertex, Aggregator: true}
		m.EdgeTypes = append(m.EdgeTypes, et)
	} else if !et.Aggregator || et.Out != out.Vertex || et.In != in.Vertex {
		return nil, fmt.Errorf("join table %s: edge type %s already connects other vertex types", e.Name, name)
	}

	agg := &Aggregation{JoinEntity: e, Edge: et, OutRel: outRel, InRel: inRel, Columns: make(map[string]string)}
	for _, p := range mapping.Vertex.Properties {
		a := e.attribute(p.SourceColumn)
		if a == nil || outRel.ForeignKey.contains(a) || inRel.ForeignKey.contains(a) {
			continue
		}
		if et.property(p.Name) == nil {
			prop := *p
			prop.FromPrimaryKey = false
			et.Properties = append(et.Properties, &prop)
		}
		agg.Columns[a.Name] = p.Name
	}
	et.sortProperties()
	m.Aggregations[e] = agg
	return et, nil
}

// joinRelationships orders a join table's two relationships by the ordinal
// position of their first foreign key attribute.
func joinRelationships(e *Entity) (first, second *Relationship) {
	rels := e.edgeRelationships()
	slices.SortStableFunc(rels, func(a, b *Relationship) int {
		return a.ForeignKey.Attributes[0].OrdinalPosition - b.ForeignKey.Attributes[0].OrdinalPosition
	})
	return rels[0], rels[1]
}

// autoAggregate aggregates every join table whose vertex type is still a
// plain join-table vertex. Entities in pinned were configured explicitly.
func autoAggregate(m *GraphModel, ds *DatabaseSchema, pinned map[*Entity]bool) error {
	for _, e := range ds.Entities {
		if pinned[e] || !e.aggregable() {
			continue
		}
		if _, done := m.Aggregations[e]; done {
			continue
		}
		mapping, ok := m.Mappings[e]
		if !ok || len(mapping.Vertex.Entities) != 1 {
			continue
		}
		outRel, inRel := joinRelationships(e)
		if _, err := aggregateJoinTable(m, e, outRel, inRel, ""); err != nil {
			return err
		}
		logger.Debugf("  aggregated join table %s into edge type %s", e.Name, m.Aggregations[e].Edge.Name)
	}
	refreshEdgeEndpoints(m, ds)
	m.linkEdges()
	return nil
}

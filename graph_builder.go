package main

import (
	"fmt"
	"slices"
	"strings"
)

// typeMapper maps a source column to a graph property type.
type typeMapper func(col Column) (PropertyType, error)

// buildGraphModel derives vertex types from entities and edge types from
// relationships.
func buildGraphModel(ds *DatabaseSchema, resolver NameResolver, mapType typeMapper) (*GraphModel, error) {
	m := newGraphModel()

	entities := slices.Clone(ds.Entities)
	slices.SortStableFunc(entities, func(a, b *Entity) int { return a.InheritanceLevel - b.InheritanceLevel })

	for _, e := range entities {
		if err := addEntityVertex(m, e, resolver, mapType); err != nil {
			return nil, err
		}
	}

	for _, rel := range ds.Relationships {
		if rel.InheritanceLink {
			continue
		}
		bindRelationshipEdge(m, rel, resolver.EdgeName(rel))
	}

	refreshEdgeEndpoints(m, ds)
	m.refreshInheritedProperties()
	m.linkEdges()
	return m, nil
}

func addEntityVertex(m *GraphModel, e *Entity, resolver NameResolver, mapType typeMapper) error {
	v := &VertexType{
		ElementType:   ElementType{Name: resolver.VertexName(e)},
		Entities:      []*Entity{e},
		FromJoinTable: e.aggregable(),
	}
	mapping := &EntityMapping{Entity: e, Vertex: v, Columns: make(map[string]string)}

	if e.Parent != nil {
		pm, ok := m.Mappings[e.Parent]
		if !ok {
			return fmt.Errorf("entity %s: parent %s has no vertex type", e.Name, e.Parent.Name)
		}
		v.Parent = pm.Vertex
		if p := e.Bag.Pattern; p == TablePerHierarchy || p == TablePerType {
			root := v.Parent
			for root.Parent != nil {
				root = root.Parent
			}
			v.KeyScope = root
		}
	}

	// Union subclasses repeat their ancestors' columns; those map onto the
	// inherited properties.
	inherited := make(map[string]string)
	if e.Bag != nil && e.Bag.Pattern == TablePerConcreteType {
		for anc := v.Parent; anc != nil; anc = anc.Parent {
			for _, p := range anc.Properties {
				if p.SourceColumn != "" {
					inherited[strings.ToLower(p.SourceColumn)] = p.Name
				}
			}
		}
	}

	for _, a := range e.Attributes {
		if _, ok := e.InheritedKey[a.Name]; ok {
			continue
		}
		if name, ok := inherited[strings.ToLower(a.Name)]; ok {
			mapping.Columns[a.Name] = name
			continue
		}
		typ, err := mapType(a.Column)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", e.Name, a.Name, err)
		}
		name := resolver.PropertyName(a)
		if v.property(name) != nil {
			return fmt.Errorf("vertex type %s: columns of %s resolve to the same property name %q", v.Name, e.Name, name)
		}
		originalType := a.Column.ColumnType
		if originalType == "" {
			originalType = a.DataType
		}
		v.Properties = append(v.Properties, &ModelProperty{
			Name:            name,
			OrdinalPosition: a.OrdinalPosition,
			OriginalType:    originalType,
			Type:            typ,
			FromPrimaryKey:  e.PrimaryKey.contains(a),
			NotNull:         !a.Nullable,
			Included:        true,
			SourceColumn:    a.Name,
			AllowedValues:   a.Column.Values,
		})
		mapping.Columns[a.Name] = name
	}
	v.sortProperties()

	switch {
	case v.KeyScope != nil && e.InheritedKey != nil:
		// Joined subclass: own key columns in the order of the root key.
		rootMapping := m.Mappings[rootEntity(e)]
		for _, rootCol := range rootMapping.KeyColumns {
			for child, target := range e.InheritedKey {
				if strings.EqualFold(target, rootCol) {
					mapping.KeyColumns = append(mapping.KeyColumns, child)
				}
			}
		}
	case v.KeyScope != nil:
		// Single-table subclass: rows carry the root key.
		mapping.KeyColumns = slices.Clone(m.Mappings[rootEntity(e)].KeyColumns)
	case e.PrimaryKey != nil:
		for _, a := range e.PrimaryKey.Attributes {
			mapping.KeyColumns = append(mapping.KeyColumns, a.Name)
			v.ExternalKey = append(v.ExternalKey, mapping.Columns[a.Name])
		}
	}

	if err := m.addVertexType(v); err != nil {
		return fmt.Errorf("%w (from table %s; use name_resolver or a mapping document to rename)", err, e.Name)
	}
	m.Mappings[e] = mapping
	return nil
}

func rootEntity(e *Entity) *Entity {
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}

// edgeTypeName keeps edge type names distinct from vertex type names.
func edgeTypeName(m *GraphModel, name string) string {
	if m.vertexType(name) != nil {
		return name + "-edge"
	}
	return name
}

// bindRelationshipEdge attaches rel to the edge type called name, creating
// it when needed.
func bindRelationshipEdge(m *GraphModel, rel *Relationship, name string) *EdgeType {
	name = edgeTypeName(m, name)
	et := m.edgeType(name)
	if et == nil {
		et = &EdgeType{ElementType: ElementType{Name: name}}
		et.Out, et.In = relationshipEndpoints(m, rel)
	}
	m.bindRelationship(rel, et)
	return et
}

// relationshipEndpoints returns the out and in vertex types of rel's edges.
func relationshipEndpoints(m *GraphModel, rel *Relationship) (out, in *VertexType) {
	if fm, ok := m.Mappings[rel.ForeignEntity]; ok {
		out = fm.Vertex
	}
	if pm, ok := m.Mappings[rel.ParentEntity]; ok {
		in = pm.Vertex
	}
	if rel.Direction == DirectionInverse {
		return in, out
	}
	return out, in
}

// refreshEdgeEndpoints sets the out and in vertex types of every edge type
// from the relationships it represents. A side the relationships disagree on
// is left nil. Aggregator edge types keep their endpoints.
func refreshEdgeEndpoints(m *GraphModel, ds *DatabaseSchema) {
	for _, et := range m.EdgeTypes {
		if et.Aggregator {
			continue
		}
		rels := m.relationshipsOf(et, ds)
		if len(rels) == 0 {
			continue
		}
		et.Out, et.In = relationshipEndpoints(m, rels[0])
		for _, rel := range rels[1:] {
			out, in := relationshipEndpoints(m, rel)
			if out != et.Out {
				et.Out = nil
			}
			if in != et.In {
				et.In = nil
			}
		}
	}
}

// propertyFor returns the property an attribute of e is stored in, walking up
// single-table hierarchies.
func (m *GraphModel) propertyFor(e *Entity, attr string) (*VertexType, *ModelProperty, bool) {
	for cur := e; cur != nil; cur = cur.Parent {
		mapping, ok := m.Mappings[cur]
		if !ok {
			return nil, nil, false
		}
		if i := slices.IndexFunc(mapping.KeyColumns, func(c string) bool { return strings.EqualFold(c, attr) }); i >= 0 {
			scope := mapping.Vertex.keyScope()
			if i < len(scope.ExternalKey) {
				return mapping.Vertex, lookupProperty(mapping.Vertex, scope.ExternalKey[i]), true
			}
		}
		for col, name := range mapping.Columns {
			if strings.EqualFold(col, attr) {
				return mapping.Vertex, lookupProperty(mapping.Vertex, name), true
			}
		}
		if !cur.Virtual {
			break
		}
	}
	return nil, nil, false
}

// lookupProperty finds a property on v or one of its ancestors.
func lookupProperty(v *VertexType, name string) *ModelProperty {
	for t := v; t != nil; t = t.Parent {
		if p := t.property(name); p != nil {
			return p
		}
	}
	return nil
}

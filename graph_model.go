package main

import (
	"fmt"
	"slices"
	"strings"
)

// PropertyType is the type of a vertex or edge property in the graph model.
type PropertyType string

const (
	PropertyBoolean      PropertyType = "BOOLEAN"
	PropertyShort        PropertyType = "SHORT"
	PropertyInteger      PropertyType = "INTEGER"
	PropertyLong         PropertyType = "LONG"
	PropertyFloat        PropertyType = "FLOAT"
	PropertyDouble       PropertyType = "DOUBLE"
	PropertyDecimal      PropertyType = "DECIMAL"
	PropertyString       PropertyType = "STRING"
	PropertyBinary       PropertyType = "BINARY"
	PropertyDate         PropertyType = "DATE"
	PropertyDatetime     PropertyType = "DATETIME"
	PropertyEmbeddedList PropertyType = "EMBEDDEDLIST"
)

var propertyTypes = []PropertyType{
	PropertyBoolean, PropertyShort, PropertyInteger, PropertyLong, PropertyFloat, PropertyDouble,
	PropertyDecimal, PropertyString, PropertyBinary, PropertyDate, PropertyDatetime, PropertyEmbeddedList,
}

// parsePropertyType accepts type names case-insensitively.
func parsePropertyType(s string) (PropertyType, bool) {
	t := PropertyType(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(propertyTypes, t) {
		return t, true
	}
	return "", false
}

// ModelProperty is a property declared on a vertex or edge type.
type ModelProperty struct {
	Name            string
	OrdinalPosition int
	OriginalType    string // source column type, empty for properties not backed by a column
	Type            PropertyType
	FromPrimaryKey  bool
	Mandatory       bool
	ReadOnly        bool
	NotNull         bool
	Included        bool
	SourceColumn    string
	AllowedValues   []string
}

// ElementType holds what vertex and edge types have in common.
type ElementType struct {
	Name                string
	Properties          []*ModelProperty
	InheritedProperties []*ModelProperty
	InheritanceLevel    int
}

func (t *ElementType) property(name string) *ModelProperty {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (t *ElementType) removeProperty(name string) {
	t.Properties = slices.DeleteFunc(t.Properties, func(p *ModelProperty) bool { return p.Name == name })
}

// sortProperties orders properties by ordinal position, then name.
func (t *ElementType) sortProperties() {
	slices.SortStableFunc(t.Properties, func(a, b *ModelProperty) int {
		if a.OrdinalPosition != b.OrdinalPosition {
			return a.OrdinalPosition - b.OrdinalPosition
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// includedProperties returns the properties written to the target.
func (t *ElementType) includedProperties() []*ModelProperty {
	var out []*ModelProperty
	for _, p := range t.Properties {
		if p.Included {
			out = append(out, p)
		}
	}
	return out
}

// VertexType is a vertex class of the graph model.
type VertexType struct {
	ElementType
	Parent        *VertexType
	InEdges       []*EdgeType
	OutEdges      []*EdgeType
	ExternalKey   []string // property names identifying a vertex within KeyScope
	FromJoinTable bool
	Entities      []*Entity
	// KeyScope is the type the external key is unique in: the hierarchy root
	// for single-table and joined hierarchies, the type itself otherwise.
	KeyScope *VertexType
}

// labels returns the type name followed by its ancestors.
func (v *VertexType) labels() []string {
	var out []string
	for t := v; t != nil; t = t.Parent {
		out = append(out, t.Name)
	}
	return out
}

func (v *VertexType) keyScope() *VertexType {
	if v.KeyScope != nil {
		return v.KeyScope
	}
	return v
}

// allProperties returns inherited properties followed by the type's own.
func (v *VertexType) allProperties() []*ModelProperty {
	out := make([]*ModelProperty, 0, len(v.InheritedProperties)+len(v.Properties))
	out = append(out, v.InheritedProperties...)
	return append(out, v.Properties...)
}

// EdgeType is an edge class of the graph model.
type EdgeType struct {
	ElementType
	Out *VertexType
	In  *VertexType
	// Relationships counts the source relationships represented by this type.
	Relationships int
	Splitting     bool
	Aggregator    bool
}

// EntityMapping records how the rows of one entity become vertices.
type EntityMapping struct {
	Entity *Entity
	Vertex *VertexType
	// Columns maps source attribute names to property names for every
	// attribute that is imported.
	Columns map[string]string
	// KeyColumns lists the attributes whose values form the external key of
	// Vertex.KeyScope(), in ExternalKey order.
	KeyColumns []string
}

// Aggregation records a join table collapsed into an edge type.
type Aggregation struct {
	JoinEntity *Entity
	Edge       *EdgeType
	// OutRel and InRel are the join table's relationships towards the out and
	// in vertices of Edge.
	OutRel *Relationship
	InRel  *Relationship
	// Columns maps join table attributes to edge properties.
	Columns map[string]string
}

// GraphModel is the graph schema inferred from a DatabaseSchema.
type GraphModel struct {
	VertexTypes  []*VertexType
	EdgeTypes    []*EdgeType
	Mappings     map[*Entity]*EntityMapping
	EdgeByRel    map[*Relationship]*EdgeType
	Aggregations map[*Entity]*Aggregation
}

func newGraphModel() *GraphModel {
	return &GraphModel{
		Mappings:     make(map[*Entity]*EntityMapping),
		EdgeByRel:    make(map[*Relationship]*EdgeType),
		Aggregations: make(map[*Entity]*Aggregation),
	}
}

func (m *GraphModel) vertexType(name string) *VertexType {
	for _, v := range m.VertexTypes {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (m *GraphModel) edgeType(name string) *EdgeType {
	for _, e := range m.EdgeTypes {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (m *GraphModel) addVertexType(v *VertexType) error {
	if existing := m.vertexType(v.Name); existing != nil {
		return fmt.Errorf("vertex type %q is defined twice", v.Name)
	}
	m.VertexTypes = append(m.VertexTypes, v)
	return nil
}

func (m *GraphModel) removeVertexType(v *VertexType) {
	m.VertexTypes = slices.DeleteFunc(m.VertexTypes, func(x *VertexType) bool { return x == v })
}

func (m *GraphModel) removeEdgeType(e *EdgeType) {
	m.EdgeTypes = slices.DeleteFunc(m.EdgeTypes, func(x *EdgeType) bool { return x == e })
}

// bindRelationship makes et represent rel.
func (m *GraphModel) bindRelationship(rel *Relationship, et *EdgeType) {
	if slices.Index(m.EdgeTypes, et) < 0 {
		m.EdgeTypes = append(m.EdgeTypes, et)
	}
	m.EdgeByRel[rel] = et
	et.Relationships++
}

// unbindRelationship detaches rel from its edge type, dropping the type once
// it represents nothing.
func (m *GraphModel) unbindRelationship(rel *Relationship) {
	et, ok := m.EdgeByRel[rel]
	if !ok {
		return
	}
	delete(m.EdgeByRel, rel)
	et.Relationships--
	if et.Relationships <= 0 && !et.Aggregator {
		m.removeEdgeType(et)
	}
}

// relationshipsOf returns the relationships represented by et, in a stable order.
func (m *GraphModel) relationshipsOf(et *EdgeType, schema *DatabaseSchema) []*Relationship {
	var out []*Relationship
	for _, rel := range schema.Relationships {
		if m.EdgeByRel[rel] == et {
			out = append(out, rel)
		}
	}
	return out
}

// linkEdges rebuilds the in/out edge lists of every vertex type.
func (m *GraphModel) linkEdges() {
	for _, v := range m.VertexTypes {
		v.InEdges = nil
		v.OutEdges = nil
	}
	for _, e := range m.EdgeTypes {
		if e.Out != nil && !slices.Contains(e.Out.OutEdges, e) {
			e.Out.OutEdges = append(e.Out.OutEdges, e)
		}
		if e.In != nil && !slices.Contains(e.In.InEdges, e) {
			e.In.InEdges = append(e.In.InEdges, e)
		}
	}
}

// descendants returns every type that has v as an ancestor.
func (m *GraphModel) descendants(v *VertexType) []*VertexType {
	var out []*VertexType
	for _, c := range m.VertexTypes {
		for p := c.Parent; p != nil; p = p.Parent {
			if p == v {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// refreshInheritedProperties recomputes inherited properties from the parent chain.
func (m *GraphModel) refreshInheritedProperties() {
	for _, v := range m.VertexTypes {
		v.InheritedProperties = nil
		v.InheritanceLevel = 0
		for p := v.Parent; p != nil; p = p.Parent {
			v.InheritanceLevel++
			v.InheritedProperties = append(slices.Clone(p.Properties), v.InheritedProperties...)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// generateGraphDDL produces the statements creating the catalog and data
// tables of a graph stored in PostgreSQL.
func generateGraphDDL(pgSchema string) []string {
	s := pgIdent(pgSchema)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.vertex_types (
  name text PRIMARY KEY,
  parent text,
  inheritance_level integer NOT NULL,
  external_key text[] NOT NULL,
  from_join_table boolean NOT NULL
)`, s),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.edge_types (
  name text PRIMARY KEY,
  out_type text,
  in_type text,
  relationships integer NOT NULL,
  splitting boolean NOT NULL,
  aggregator boolean NOT NULL
)`, s),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.properties (
  owner_kind text NOT NULL,
  owner text NOT NULL,
  name text NOT NULL,
  ordinal_position integer NOT NULL,
  original_type text,
  type text NOT NULL,
  from_primary_key boolean NOT NULL,
  mandatory boolean NOT NULL,
  read_only boolean NOT NULL,
  not_null boolean NOT NULL,
  allowed_values text[],
  PRIMARY KEY (owner_kind, owner, name)
)`, s),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.vertices (
  id bigserial PRIMARY KEY,
  label text NOT NULL,
  labels text[] NOT NULL,
  root_label text NOT NULL,
  level integer NOT NULL,
  key jsonb,
  props jsonb NOT NULL DEFAULT '{}'
)`, s),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS vertices_key ON %s.vertices (root_label, key) WHERE key IS NOT NULL", s),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS vertices_labels ON %s.vertices USING gin (labels)", s),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.edges (
  id bigserial PRIMARY KEY,
  label text NOT NULL,
  out_id bigint NOT NULL REFERENCES %s.vertices (id) ON DELETE CASCADE,
  in_id bigint NOT NULL REFERENCES %s.vertices (id) ON DELETE CASCADE,
  props jsonb NOT NULL DEFAULT '{}'
)`, s, s, s),
	}
}

// createGraphTables creates the graph tables in pgSchema.
func createGraphTables(ctx context.Context, exec schemaExecutor, pgSchema string) error {
	for _, ddl := range generateGraphDDL(pgSchema) {
		if _, err := exec.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create graph tables: %w\nDDL: %s", err, ddl)
		}
	}
	return nil
}

// catalogBatch queues upserts describing every vertex type, edge type and
// property of model.
func catalogBatch(model *GraphModel, pgSchema string) *pgx.Batch {
	s := pgIdent(pgSchema)
	b := &pgx.Batch{}
	vertexSQL := fmt.Sprintf(`INSERT INTO %s.vertex_types (name, parent, inheritance_level, external_key, from_join_table)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO UPDATE SET parent = EXCLUDED.parent, inheritance_level = EXCLUDED.inheritance_level,
  external_key = EXCLUDED.external_key, from_join_table = EXCLUDED.from_join_table`, s)
	edgeSQL := fmt.Sprintf(`INSERT INTO %s.edge_types (name, out_type, in_type, relationships, splitting, aggregator)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET out_type = EXCLUDED.out_type, in_type = EXCLUDED.in_type,
  relationships = EXCLUDED.relationships, splitting = EXCLUDED.splitting, aggregator = EXCLUDED.aggregator`, s)
	propSQL := fmt.Sprintf(`INSERT INTO %s.properties (owner_kind, owner, name, ordinal_position, original_type, type,
  from_primary_key, mandatory, read_only, not_null, allowed_values)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (owner_kind, owner, name) DO UPDATE SET ordinal_position = EXCLUDED.ordinal_position,
  original_type = EXCLUDED.original_type, type = EXCLUDED.type, from_primary_key = EXCLUDED.from_primary_key,
  mandatory = EXCLUDED.mandatory, read_only = EXCLUDED.read_only, not_null = EXCLUDED.not_null,
  allowed_values = EXCLUDED.allowed_values`, s)

	queueProps := func(kind, owner string, props []*ModelProperty) {
		for _, p := range props {
			b.Queue(propSQL, kind, owner, p.Name, p.OrdinalPosition, nullableText(p.OriginalType), string(p.Type),
				p.FromPrimaryKey, p.Mandatory, p.ReadOnly, p.NotNull, p.AllowedValues)
		}
	}

	for _, v := range model.VertexTypes {
		var parent *string
		if v.Parent != nil {
			parent = &v.Parent.Name
		}
		key := v.ExternalKey
		if key == nil {
			key = []string{}
		}
		b.Queue(vertexSQL, v.Name, parent, v.InheritanceLevel, key, v.FromJoinTable)
		queueProps("vertex", v.Name, v.Properties)
	}
	for _, et := range model.EdgeTypes {
		var out, in *string
		if et.Out != nil {
			out = &et.Out.Name
		}
		if et.In != nil {
			in = &et.In.Name
		}
		b.Queue(edgeSQL, et.Name, out, in, et.Relationships, et.Splitting, et.Aggregator)
		queueProps("edge", et.Name, et.Properties)
	}
	return b
}

func nullableText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

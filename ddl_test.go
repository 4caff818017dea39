package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateGraphDDL(t *testing.T) {
	ddl := generateGraphDDL("hr_graph")
	require.Len(t, ddl, 7)

	for i, table := range []string{"vertex_types", "edge_types", "properties", "vertices"} {
		if !strings.HasPrefix(ddl[i], "CREATE TABLE IF NOT EXISTS hr_graph."+table+" (") {
			t.Errorf("ddl[%d] does not create %s:\n%s", i, table, ddl[i])
		}
	}
	if ddl[4] != "CREATE UNIQUE INDEX IF NOT EXISTS vertices_key ON hr_graph.vertices (root_label, key) WHERE key IS NOT NULL" {
		t.Errorf("unexpected key index: %s", ddl[4])
	}
	if !strings.Contains(ddl[6], "out_id bigint NOT NULL REFERENCES hr_graph.vertices (id) ON DELETE CASCADE") {
		t.Errorf("edges table does not reference vertices:\n%s", ddl[6])
	}
}

func TestGenerateGraphDDL_ReservedSchemaName(t *testing.T) {
	for _, stmt := range generateGraphDDL("user") {
		if !strings.Contains(stmt, `"user".`) {
			t.Fatalf("schema name not quoted: %s", stmt)
		}
	}
}

func TestCatalogBatch(t *testing.T) {
	ds := mustDatabaseSchema(t, companySchema())
	m := mustGraphModel(t, ds, originalResolver{})
	require.NoError(t, autoAggregate(m, ds, nil))

	b := catalogBatch(m, "graph")

	var vertexRows, edgeRows, propRows int
	var empProject []any
	for _, q := range b.QueuedQueries {
		switch {
		case strings.HasPrefix(q.SQL, "INSERT INTO graph.vertex_types"):
			vertexRows++
		case strings.HasPrefix(q.SQL, "INSERT INTO graph.edge_types"):
			edgeRows++
			if q.Arguments[0] == "emp_project" {
				empProject = q.Arguments
			}
		case strings.HasPrefix(q.SQL, "INSERT INTO graph.properties"):
			propRows++
		default:
			t.Fatalf("unexpected statement: %s", q.SQL)
		}
	}

	require.Equal(t, 3, vertexRows, "department, employee, project")
	require.Equal(t, 3, edgeRows, "has_dept, has_manager, emp_project")
	// department 2 + employee 5 + project 2; the aggregated edge has no own columns.
	require.Equal(t, 9, propRows)
	require.NotNil(t, empProject)
	require.Equal(t, "employee", *empProject[1].(*string))
	require.Equal(t, "project", *empProject[2].(*string))
	require.Equal(t, true, empProject[5], "aggregator flag")
}

func TestNullableText(t *testing.T) {
	if nullableText("  ") != nil {
		t.Error("blank text should be NULL")
	}
	if got := nullableText("int"); got == nil || *got != "int" {
		t.Errorf("nullableText(int) = %v", got)
	}
}

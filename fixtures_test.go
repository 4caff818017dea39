package main

import "testing"

func col(name, dataType string) Column {
	return Column{SourceName: name, DataType: dataType, ColumnType: dataType}
}

func nullCol(name, dataType string) Column {
	c := col(name, dataType)
	c.Nullable = true
	return c
}

// table numbers the columns in declaration order.
func table(name string, pk []string, cols ...Column) Table {
	for i := range cols {
		cols[i].OrdinalPos = i + 1
	}
	t := Table{SourceName: name, Columns: cols}
	if len(pk) > 0 {
		t.PrimaryKey = &Index{Name: "PRIMARY", Columns: pk, Unique: true, IsPrimary: true}
	}
	return t
}

func fk(name string, cols []string, refTable string, refCols ...string) ForeignKey {
	return ForeignKey{Name: name, Columns: cols, RefTable: refTable, RefColumns: refCols}
}

func withFKs(t Table, fks ...ForeignKey) Table {
	t.ForeignKeys = append(t.ForeignKeys, fks...)
	return t
}

// companySchema is a small HR database: departments, employees with a
// manager self reference, projects and a pure join table between employees
// and projects.
func companySchema() *Schema {
	return &Schema{Tables: []Table{
		table("department", []string{"id"},
			col("id", "int"),
			col("name", "varchar"),
		),
		withFKs(table("employee", []string{"id"},
			col("id", "int"),
			col("name", "varchar"),
			nullCol("salary", "decimal"),
			nullCol("dept_id", "int"),
			nullCol("manager_id", "int"),
		),
			fk("fk_emp_dept", []string{"dept_id"}, "department", "id"),
			fk("fk_emp_manager", []string{"manager_id"}, "employee", "id"),
		),
		table("project", []string{"code"},
			col("code", "varchar"),
			col("title", "varchar"),
		),
		withFKs(table("emp_project", []string{"emp_id", "project_code"},
			col("emp_id", "int"),
			col("project_code", "varchar"),
		),
			fk("fk_ep_emp", []string{"emp_id"}, "employee", "id"),
			fk("fk_ep_project", []string{"project_code"}, "project", "code"),
		),
	}}
}

func mustDatabaseSchema(t *testing.T, raw *Schema) *DatabaseSchema {
	t.Helper()
	ds, _, err := buildDatabaseSchema(raw, "testdb", newTableFilter(nil, nil))
	if err != nil {
		t.Fatalf("buildDatabaseSchema() error: %v", err)
	}
	return ds
}

func testTypeMapper(col Column) (PropertyType, error) {
	return mysqlMapType(col, TypeMappingConfig{})
}

func mustGraphModel(t *testing.T, ds *DatabaseSchema, resolver NameResolver) *GraphModel {
	t.Helper()
	m, err := buildGraphModel(ds, resolver, testTypeMapper)
	if err != nil {
		t.Fatalf("buildGraphModel() error: %v", err)
	}
	return m
}

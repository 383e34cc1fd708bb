package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/logger"
	"github.com/koustreak/xmldbms/internal/mapdef"
	"github.com/koustreak/xmldbms/internal/mapping"
)

const doc = `
namespaces:
  ord: urn:example:orders
tables:
  - name: Orders
    columns:
      - {name: id, type: INTEGER, nullable: false}
      - {name: city, type: VARCHAR, length: 40}
    primary_key: {name: pk_orders, columns: [id]}
  - name: Lines
    columns:
      - {name: order_id, type: INTEGER}
      - {name: qty, type: INTEGER}
    foreign_keys:
      - {name: fk_lines, columns: [order_id], references: {table: Orders}}
classes:
  - element: ord:Order
    table: Orders
    attributes: [{name: id, column: id}]
    children:
      - inline: ord:Address
        children: [{element: ord:city, column: city}]
      - class: ord:Line
        link: {parent: {table: Orders}, child: {table: Lines, key: fk_lines}}
  - element: ord:Line
    table: Lines
    pcdata: {column: qty}
`

func newTestServer(t *testing.T, d *dialect.Descriptor) *Server {
	t.Helper()
	m, err := mapdef.Load([]byte(doc))
	require.NoError(t, err)
	return New(m, d, nil)
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, newTestServer(t, nil), "/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestTables(t *testing.T) {
	var tables []tableView
	require.Equal(t, http.StatusOK, get(t, newTestServer(t, nil), "/tables", &tables))
	require.Len(t, tables, 2)

	lines, orders := tables[0], tables[1]
	assert.Equal(t, "Orders", orders.ID)
	require.Len(t, orders.Columns, 2)
	assert.Equal(t, "INTEGER", orders.Columns[0].Type)
	require.NotNil(t, orders.Columns[0].Nullable)
	assert.False(t, *orders.Columns[0].Nullable)
	assert.Nil(t, orders.Columns[1].Nullable)
	assert.Equal(t, 40, *orders.Columns[1].Length)
	assert.Equal(t, "pk_orders", orders.PrimaryKey.Name)
	assert.Equal(t, "document", orders.PrimaryKey.Generation)

	require.Len(t, lines.ForeignKeys, 1)
	assert.Equal(t, "Orders.pk_orders", lines.ForeignKeys[0].References)
}

// child and class mirror the JSON shape; the server's own view types embed
// an unexported struct by pointer, which encoding/json cannot decode into.
type child struct {
	Kind     string
	Element  string
	Class    string
	Property *propertyView
	Children []child
}

type class struct {
	Element    string
	Table      string
	Attributes []propertyView
	PCDATA     *propertyView
	Children   []child
}

func TestClasses(t *testing.T) {
	var classes []class
	require.Equal(t, http.StatusOK, get(t, newTestServer(t, nil), "/classes", &classes))
	require.Len(t, classes, 2)

	line, order := classes[0], classes[1]
	assert.Equal(t, "ord:Line", line.Element)
	require.NotNil(t, line.PCDATA)
	assert.Equal(t, "qty", line.PCDATA.Column)

	assert.Equal(t, "ord:Order", order.Element)
	assert.Equal(t, "Orders", order.Table)
	require.Len(t, order.Attributes, 1)
	assert.Equal(t, "id", order.Attributes[0].Name)

	require.Len(t, order.Children, 2)
	address := order.Children[0]
	assert.Equal(t, mapping.ChildInlineClass.String(), address.Kind)
	assert.Equal(t, "ord:Address", address.Element)
	require.Len(t, address.Children, 1)
	assert.Equal(t, "ord:city", address.Children[0].Element)
	assert.Equal(t, "city", address.Children[0].Property.Column)

	assert.Equal(t, mapping.ChildRelatedClass.String(), order.Children[1].Kind)
	assert.Equal(t, "ord:Line", order.Children[1].Class)
}

func TestDDL(t *testing.T) {
	var body map[string][]string
	require.Equal(t, http.StatusOK, get(t, newTestServer(t, nil), "/ddl", &body))
	stmts := body["statements"]
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE TABLE "Orders" ("id" INTEGER NOT NULL, "city" VARCHAR(40), CONSTRAINT "pk_orders" PRIMARY KEY ("id"))`, stmts[0])
	assert.Contains(t, stmts[1], `FOREIGN KEY ("order_id") REFERENCES "Orders" ("id")`)
}

func TestDML(t *testing.T) {
	d := dialect.Default()
	d.Placeholder = dialect.PlaceholderDollar
	s := newTestServer(t, d)

	var st struct {
		Insert, Select, Update, Delete string
	}
	require.Equal(t, http.StatusOK, get(t, s, "/dml/Orders", &st))
	assert.Equal(t, `INSERT INTO "Orders" ("id", "city") VALUES ($1, $2)`, st.Insert)
	assert.Equal(t, `UPDATE "Orders" SET "city" = $1 WHERE "id" = $2`, st.Update)
	assert.Equal(t, `DELETE FROM "Orders" WHERE "id" = $1`, st.Delete)

	var e errorBody
	assert.Equal(t, http.StatusNotFound, get(t, s, "/dml/Nope", &e))
	assert.Equal(t, "not_found", e.Kind)
}

func TestStatusFor(t *testing.T) {
	cases := map[errs.ErrKind]int{
		errs.ErrKindInvalidInput:     http.StatusBadRequest,
		errs.ErrKindNotFound:         http.StatusNotFound,
		errs.ErrKindConflict:         http.StatusConflict,
		errs.ErrKindMapping:          http.StatusUnprocessableEntity,
		errs.ErrKindTimeout:          http.StatusGatewayTimeout,
		errs.ErrKindConnectionFailed: http.StatusInternalServerError,
		errs.ErrKindUnknown:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), kind.String())
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	m, err := mapdef.Load([]byte(doc))
	require.NoError(t, err)
	s := New(m, nil, logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf}))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/dml/Missing", nil))

	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)

	rejected, done := entries[0], entries[1]
	assert.Equal(t, "warn", rejected["level"])
	assert.Equal(t, "request rejected", rejected["message"])
	assert.Equal(t, "not_found", rejected["kind"])
	assert.Equal(t, "server", rejected["component"])
	assert.NotEmpty(t, rejected["request_id"])

	assert.Equal(t, "debug", done["level"])
	assert.Equal(t, "request", done["message"])
	assert.Equal(t, float64(http.StatusNotFound), done["status"])
	assert.Equal(t, rejected["request_id"], done["request_id"], "same request-scoped logger")
}

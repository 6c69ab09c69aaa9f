package breakdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(values ...string) [][]string {
	out := make([][]string, len(values))
	for i, v := range values {
		if v == "" {
			out[i] = []string{}
		} else {
			out[i] = []string{v}
		}
	}
	return out
}

func TestReconcileAlignsByRowIndex(t *testing.T) {
	rows := Reconcile(
		col("1200", "300"),
		col("Alpha", "Beta"),
		col("Rent", "Supplies"),
		col("Opex", "Opex"),
	)

	require.Len(t, rows, 2)
	assert.Equal(t, Row{Amount: "1200", Article: "Opex", Counterparty: "Alpha", Purpose: "Rent"}, rows[0])
	assert.Equal(t, Row{Amount: "300", Article: "Opex", Counterparty: "Beta", Purpose: "Supplies"}, rows[1])
}

func TestReconcileToleratesRaggedColumns(t *testing.T) {
	// Articles column runs longer than amounts; short columns pad with "".
	rows := Reconcile(
		col("1200"),
		col(),
		col("Rent", "Supplies", "Salary"),
		col("Opex", "Opex", "Payroll"),
	)

	require.Len(t, rows, 3)
	assert.Equal(t, Row{Amount: "1200", Article: "Opex", Counterparty: "", Purpose: "Rent"}, rows[0])
	assert.Equal(t, Row{Amount: "", Article: "Opex", Counterparty: "", Purpose: "Supplies"}, rows[1])
	assert.Equal(t, Row{Amount: "", Article: "Payroll", Counterparty: "", Purpose: "Salary"}, rows[2])
}

func TestReconcileDropsRowsWithNoAmountAndNoArticle(t *testing.T) {
	rows := Reconcile(
		col("1200", "", "  ", "500"),
		col("Alpha", "Ghost", "Ghost", "Delta"),
		col("Rent", "Noise", "Noise", "Fees"),
		col("Opex", "", " ", "Opex"),
	)

	require.Len(t, rows, 2)
	assert.Equal(t, "1200", rows[0].Amount)
	assert.Equal(t, "500", rows[1].Amount)
}

func TestReconcileKeepsRowWithOnlyArticle(t *testing.T) {
	rows := Reconcile(col(""), col(), col(), col("Opex"))
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Amount: "", Article: "Opex"}, rows[0])
}

func TestReconcileStripsNonBreakingSpaces(t *testing.T) {
	rows := Reconcile(col("1 200,50"), col(), col(), col("Opex"))
	require.Len(t, rows, 1)
	assert.Equal(t, "1 200,50", rows[0].Amount)
}

func TestReconcileEmptyColumns(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil, nil, nil))
}

func TestFilterMatchesAnyTextField(t *testing.T) {
	rows := []Row{
		{Amount: "100", Counterparty: "Alpha LLC", Purpose: "Rent", Article: "Opex"},
		{Amount: "200", Counterparty: "Beta", Purpose: "Office rent", Article: "Opex"},
		{Amount: "300", Counterparty: "Gamma", Purpose: "Salary", Article: "Payroll"},
	}

	assert.Len(t, Filter(rows, "rent"), 2)
	assert.Len(t, Filter(rows, "PAYROLL"), 1)
	assert.Len(t, Filter(rows, "alpha"), 1)
	assert.Empty(t, Filter(rows, "insurance"))
}

func TestFilterDoesNotMatchOnAmount(t *testing.T) {
	rows := []Row{{Amount: "777", Counterparty: "Alpha", Purpose: "Rent", Article: "Opex"}}
	assert.Empty(t, Filter(rows, "777"))
}

func TestFilterEmptyQueryKeepsEverything(t *testing.T) {
	rows := []Row{{Amount: "1"}, {Amount: "2"}}
	assert.Equal(t, rows, Filter(rows, "  "))
}

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{Amount: "1", Article: "Opex"}
	}
	return rows
}

func TestPaginateSlices(t *testing.T) {
	page := Paginate(makeRows(250), 2, 100)
	assert.Equal(t, 250, page.Total)
	assert.Len(t, page.Rows, 100)

	page = Paginate(makeRows(250), 3, 100)
	assert.Equal(t, 250, page.Total)
	assert.Len(t, page.Rows, 50)
}

func TestPaginateClampsLimit(t *testing.T) {
	page := Paginate(makeRows(1000), 1, 9999)
	assert.Len(t, page.Rows, MaxLimit)

	page = Paginate(makeRows(10), 1, 0)
	assert.Len(t, page.Rows, 1)

	page = Paginate(makeRows(10), 1, -5)
	assert.Len(t, page.Rows, 1)
}

func TestPaginateClampsPage(t *testing.T) {
	page := Paginate(makeRows(10), 0, 5)
	assert.Len(t, page.Rows, 5)

	page = Paginate(makeRows(10), -3, 5)
	assert.Len(t, page.Rows, 5)
}

func TestPaginatePastEndReturnsEmptyWithTotal(t *testing.T) {
	page := Paginate(makeRows(10), 50, 100)
	assert.Equal(t, 10, page.Total)
	assert.Empty(t, page.Rows)
}

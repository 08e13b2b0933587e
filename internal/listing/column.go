package listing

// Column describes one typed table column: a stable key, a heading, and a
// renderer producing the cell text for a row value.
type Column[T any] struct {
	Key    string
	Title  string
	Render func(T) string
}

// Titles collects the column headings in order.
func Titles[T any](columns []Column[T]) []string {
	titles := make([]string, len(columns))
	for idx, column := range columns {
		titles[idx] = column.Title
	}
	return titles
}

// RenderRow produces the cell values for one item.
func RenderRow[T any](columns []Column[T], item T) []string {
	cells := make([]string, len(columns))
	for idx, column := range columns {
		if column.Render == nil {
			continue
		}
		cells[idx] = column.Render(item)
	}
	return cells
}

// RenderRows produces the cell grid for a list of items.
func RenderRows[T any](columns []Column[T], items []T) [][]string {
	rows := make([][]string, len(items))
	for idx, item := range items {
		rows[idx] = RenderRow(columns, item)
	}
	return rows
}

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/upslist/internal/normalize"
)

// Column widths. Description width is computed from the rows.
const (
	statusWidth  = len("*on battery*")
	batteryWidth = 2 + 15
	runtimeWidth = len("RUNTIME") // wider than "9h 99m"
	loadWidth    = 2 + 10
	pctWidth     = len("100%")
	columnGap    = "  "
)

// Row is one UPS line of the table.
type Row struct {
	Label   string
	Status  string
	Battery *float64 // percent
	Runtime *float64 // seconds
	Load    *float64 // percent
	Err     error
}

// NewRow builds a row from normalized variables.
func NewRow(label string, vars normalize.Vars) Row {
	return Row{
		Label:   label,
		Status:  vars.Str("ups.status"),
		Battery: optional(vars, "battery.charge"),
		Runtime: optional(vars, "battery.runtime"),
		Load:    optional(vars, "ups.load"),
	}
}

// ErrorRow is the placeholder row for a UPS that could not be polled.
func ErrorRow(label string, err error) Row {
	return Row{Label: label, Err: err}
}

func optional(vars normalize.Vars, name string) *float64 {
	f, ok := vars.Float(name)
	if !ok {
		return nil
	}
	return &f
}

func (r Row) cells() []string {
	if r.Err != nil {
		return []string{r.Label, "error", Gauge(nil, batteryWidth, 100), "-", Gauge(nil, loadWidth, 100), "n/a"}
	}
	runtime := "n/a"
	if r.Runtime != nil {
		runtime = HMS(int(RoundRuntime(*r.Runtime)))
	}
	load := "n/a"
	if r.Load != nil {
		load = fmt.Sprintf("%.0f%%", *r.Load)
	}
	return []string{
		r.Label,
		StatusLabel(r.Status),
		Gauge(r.Battery, batteryWidth, 100),
		runtime,
		Gauge(r.Load, loadWidth, 100),
		load,
	}
}

// Styles colours parts of the table. Styling is applied after padding, so
// it never changes column alignment.
type Styles struct {
	Header    lipgloss.Style
	OnBattery lipgloss.Style
	LowBatt   lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles are used when writing to a terminal.
func DefaultStyles() *Styles {
	return &Styles{
		Header:    lipgloss.NewStyle().Bold(true),
		OnBattery: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		LowBatt:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Table is the status listing. A nil Styles renders plain text.
type Table struct {
	Rows   []Row
	Styles *Styles
}

type column struct {
	width int
	right bool
}

func (t *Table) columns() []column {
	descr := lipgloss.Width("UPS")
	for _, r := range t.Rows {
		if w := lipgloss.Width(r.Label); w > descr {
			descr = w
		}
	}
	return []column{
		{width: descr},
		{width: statusWidth},
		{width: batteryWidth},
		{width: runtimeWidth, right: true},
		{width: loadWidth},
		{width: pctWidth, right: true},
	}
}

func pad(s string, c column) string {
	gap := c.width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if c.right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

func (t *Table) line(cols []column, cells []string, style *lipgloss.Style) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = pad(c, cols[i])
	}
	s := strings.TrimRight(strings.Join(out, columnGap), " ")
	if style != nil {
		s = style.Render(s)
	}
	return s
}

func (t *Table) rowStyle(r Row) *lipgloss.Style {
	if t.Styles == nil {
		return nil
	}
	flags := strings.Fields(r.Status)
	switch {
	case r.Err != nil:
		return &t.Styles.Error
	case contains(flags, "LB"):
		return &t.Styles.LowBatt
	case contains(flags, "OB"):
		return &t.Styles.OnBattery
	}
	return nil
}

func contains(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// WriteTo writes the header, the separator line and one line per row.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	cols := t.columns()
	var header *lipgloss.Style
	if t.Styles != nil {
		header = &t.Styles.Header
	}

	lines := []string{
		t.line(cols, []string{"UPS", "STATUS", "BATTERY", "RUNTIME", "LOAD", "LOAD"}, header),
	}
	dashes := make([]string, len(cols))
	for i, c := range cols {
		dashes[i] = strings.Repeat("-", c.width)
	}
	lines = append(lines, t.line(cols, dashes, nil))
	for _, r := range t.Rows {
		lines = append(lines, t.line(cols, r.cells(), t.rowStyle(r)))
	}

	n, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return int64(n), err
}

// String renders the table as text.
func (t *Table) String() string {
	var b strings.Builder
	t.WriteTo(&b) //nolint:errcheck
	return b.String()
}

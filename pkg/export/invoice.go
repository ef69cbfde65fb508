package export

import (
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Issuer is the institution printed on the invoice header.
type Issuer struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
	Email   string
}

// InvoiceLine is a single charged item.
type InvoiceLine struct {
	Description string
	Amount      decimal.Decimal
}

// Invoice is everything printed on a payment receipt.
type Invoice struct {
	Number        string
	IssuedAt      time.Time
	Currency      string
	StudentName   string
	StudentID     string
	StudentEmail  string
	TransactionID string
	Lines         []InvoiceLine
	VerifyURL     string
}

// Total sums the invoice lines.
func (i Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// InvoiceRenderer lays out payment receipts with maroto.
type InvoiceRenderer struct {
	issuer Issuer
}

// NewInvoiceRenderer builds a renderer for issuer.
func NewInvoiceRenderer(issuer Issuer) *InvoiceRenderer {
	return &InvoiceRenderer{issuer: issuer}
}

// Render returns the invoice as PDF bytes.
func (r *InvoiceRenderer) Render(inv Invoice) ([]byte, error) {
	if len(inv.Lines) == 0 {
		return nil, fmt.Errorf("invoice %s has no lines", inv.Number)
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Recibo "+inv.Number, true).
		WithAuthor(r.issuer.Name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(r.headerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(studentRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(linesHeaderRow())
	m.AddRows(lineRows(inv)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(inv))
	m.AddRows(footerRows(inv)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return doc.GetBytes(), nil
}

func (r *InvoiceRenderer) headerRow(inv Invoice) core.Row {
	contact := strings.Join(nonEmptyParts(r.issuer.Address, r.issuer.Phone, r.issuer.Email), "  |  ")
	return row.New(22).Add(
		col.New(7).Add(
			text.New(r.issuer.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(prefixed("RUC/NIT: ", r.issuer.TaxID), props.Text{Size: 8, Top: 9, Color: colorGray}),
			text.New(contact, props.Text{Size: 7, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("RECIBO DE PAGO", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(inv.Number, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+inv.IssuedAt.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func studentRow(inv Invoice) core.Row {
	details := strings.Join(nonEmptyParts(prefixed("Documento: ", inv.StudentID), prefixed("Email: ", inv.StudentEmail)), "   |   ")
	return row.New(16).Add(
		col.New(12).Add(
			text.New("ESTUDIANTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(inv.StudentName, "-"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(details, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func linesHeaderRow() core.Row {
	return row.New(8).Add(
		col.New(9).Add(text.New("Concepto", props.Text{Style: fontstyle.Bold, Size: 8, Top: 2, Left: 1})),
		col.New(3).Add(text.New("Importe", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 2, Right: 1})),
	)
}

func lineRows(inv Invoice) []core.Row {
	rows := make([]core.Row, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		rows = append(rows, row.New(7).Add(
			col.New(9).Add(text.New(l.Description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(FormatMoney(l.Amount, inv.Currency), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalRow(inv Invoice) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL PAGADO:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2})),
		col.New(3).Add(text.New(FormatMoney(inv.Total(), inv.Currency), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2})),
	)
}

func footerRows(inv Invoice) []core.Row {
	rows := []core.Row{row.New(4)}
	if inv.TransactionID != "" {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Transacción: "+inv.TransactionID, props.Text{Size: 8, Color: colorGray}),
		)))
	}
	if inv.VerifyURL != "" {
		rows = append(rows, row.New(36).Add(
			col.New(3).Add(code.NewQr(inv.VerifyURL, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(text.New("Escanee el código para descargar una copia de este recibo.", props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray})),
		))
	}
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New("Documento generado electrónicamente. Conserve este recibo como comprobante de pago.", props.Text{Size: 6.5, Color: colorGray, Top: 2}),
	)))
	return rows
}

// FormatMoney renders amount with two decimals and thousands separators, e.g. "USD 1,250.00".
func FormatMoney(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n := len(whole)
	grouped := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	out := sign + string(grouped) + "." + frac
	if currency != "" {
		out = currency + " " + out
	}
	return out
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func nonEmptyParts(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

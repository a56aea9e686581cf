// Package importer lee archivos de saldos iniciales (CSV o XLSX) exportados de otros sistemas.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encabezados reconocidos (en minúscula, sin espacios).
var (
	productHeaders  = []string{"product_id", "producto", "sku", "codigo", "código"}
	quantityHeaders = []string{"quantity", "cantidad", "saldo", "initial_quantity"}
)

// RowError fila inválida del archivo.
type RowError struct {
	Line   int
	Reason string
}

// ParseError agrupa todas las filas inválidas para corregirlas de una vez.
type ParseError struct {
	Rows []RowError
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d filas inválidas", len(e.Rows))
	for i, r := range e.Rows {
		if i == 5 {
			b.WriteString("; ...")
			break
		}
		fmt.Fprintf(&b, "; fila %d: %s", r.Line, r.Reason)
	}
	return b.String()
}

// ReadFile abre path y elige el lector por extensión (.xlsx o .csv/.txt).
// charset aplica solo a CSV: "utf-8" (default), "iso-8859-1" o "windows-1252".
func ReadFile(path, charset string) ([]inventory.OpeningBalance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(f)
	default:
		return ReadCSV(f, charset)
	}
}

// ReadCSV lee un CSV separado por coma o punto y coma (se detecta en la primera línea).
func ReadCSV(r io.Reader, charset string) ([]inventory.OpeningBalance, error) {
	decoded, err := decode(r, charset)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(decoded)
	first, _ := br.Peek(4096)
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	cr := csv.NewReader(br)
	cr.Comma = delimiter(first)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	return parseRows(rows)
}

// ReadXLSX lee la primera hoja del libro.
func ReadXLSX(r io.Reader) ([]inventory.OpeningBalance, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("abrir XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX sin hojas")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("leer hoja %s: %w", sheets[0], err)
	}
	return parseRows(rows)
}

func decode(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("charset no soportado: %q", charset)
	}
}

func delimiter(firstLine []byte) rune {
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func parseRows(rows [][]string) ([]inventory.OpeningBalance, error) {
	productCol, qtyCol, start := 0, 1, 0
	if len(rows) > 0 {
		if p, q, ok := headerColumns(rows[0]); ok {
			productCol, qtyCol, start = p, q, 1
		}
	}

	var (
		out  []inventory.OpeningBalance
		bad  []RowError
		seen = make(map[string]int)
	)
	for i := start; i < len(rows); i++ {
		line := i + 1
		row := rows[i]
		if blank(row) {
			continue
		}
		if len(row) <= productCol || len(row) <= qtyCol {
			bad = append(bad, RowError{Line: line, Reason: "faltan columnas"})
			continue
		}
		productID := strings.TrimSpace(row[productCol])
		if productID == "" {
			bad = append(bad, RowError{Line: line, Reason: "producto vacío"})
			continue
		}
		if prev, dup := seen[productID]; dup {
			bad = append(bad, RowError{Line: line, Reason: fmt.Sprintf("producto %s repetido (fila %d)", productID, prev)})
			continue
		}
		qty, err := parseQuantity(row[qtyCol])
		if err != nil {
			bad = append(bad, RowError{Line: line, Reason: err.Error()})
			continue
		}
		seen[productID] = line
		out = append(out, inventory.OpeningBalance{Line: line, ProductID: productID, Quantity: qty})
	}
	if len(bad) > 0 {
		return nil, &ParseError{Rows: bad}
	}
	return out, nil
}

func headerColumns(row []string) (product, quantity int, ok bool) {
	product, quantity = -1, -1
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		switch {
		case product < 0 && slices.Contains(productHeaders, name):
			product = i
		case quantity < 0 && slices.Contains(quantityHeaders, name):
			quantity = i
		}
	}
	return product, quantity, product >= 0 && quantity >= 0
}

// parseQuantity acepta "12.5", "12,5" y "1.234,5" (separador de miles con coma decimal).
func parseQuantity(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	qty, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cantidad inválida %q", raw)
	}
	if qty.IsNegative() {
		return decimal.Zero, fmt.Errorf("cantidad negativa %s", qty)
	}
	return qty, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

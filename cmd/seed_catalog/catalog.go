package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// catalogRow es una fila del CSV: id;nombre;tipo;unidad;precio;stock_inicial
type catalogRow struct {
	ID      string
	Name    string
	Kind    string
	Unit    string
	Price   decimal.Decimal
	Opening decimal.Decimal
}

// readCatalog lee el CSV exportado del sistema anterior. Las exportaciones viejas vienen en
// ISO-8859-1; el resto se asume UTF-8.
func readCatalog(r io.Reader, charset string) ([]catalogRow, error) {
	if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "latin1") {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[string]bool)
	var rows []catalogRow
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "id") {
			continue // cabecera
		}
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if seen[row.ID] {
			return nil, fmt.Errorf("línea %d: id %q repetido", line, row.ID)
		}
		seen[row.ID] = true
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func parseRow(rec []string) (catalogRow, error) {
	if len(rec) < 2 {
		return catalogRow{}, errors.New("se esperan al menos id y nombre")
	}
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	row := catalogRow{ID: field(0), Name: field(1), Kind: field(2), Unit: field(3)}
	if row.ID == "" || row.Name == "" {
		return catalogRow{}, errors.New("id y nombre son obligatorios")
	}
	switch row.Kind {
	case "":
		row.Kind = entity.ProductKindProduct
	case entity.ProductKindProduct, entity.ProductKindIngredient:
	default:
		return catalogRow{}, fmt.Errorf("tipo %q desconocido", row.Kind)
	}
	if row.Unit == "" {
		row.Unit = "unidades"
	}
	var err error
	if row.Price, err = parseAmount(field(4)); err != nil {
		return catalogRow{}, fmt.Errorf("precio: %w", err)
	}
	if row.Opening, err = parseAmount(field(5)); err != nil {
		return catalogRow{}, fmt.Errorf("stock inicial: %w", err)
	}
	return row, nil
}

// parseAmount acepta coma decimal ("2,50") además de punto.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("no puede ser negativo")
	}
	return d, nil
}

// writeSeed escribe el script: catálogo con upsert y saldo inicial del almacén central solo
// donde aún no hay contador, con su línea de diario para que el ledger cuadre.
func writeSeed(w io.Writer, rows []catalogRow) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de productos e ingredientes\n")
	b.WriteString("-- Generado por cmd/seed_catalog\n\n")

	if len(rows) > 0 {
		b.WriteString("-- 1. Productos\n")
		b.WriteString("INSERT INTO products (id, name, kind, unit, price) VALUES\n")
		for i, r := range rows {
			sep := ","
			if i == len(rows)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "  ('%s', '%s', '%s', '%s', %s)%s\n",
				escapeSQL(r.ID), escapeSQL(r.Name), r.Kind, escapeSQL(r.Unit), r.Price.String(), sep)
		}
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind, unit = EXCLUDED.unit, price = EXCLUDED.price;\n\n")
	}

	txID := uuid.New().String()
	opening := 0
	for _, r := range rows {
		if !r.Opening.IsPositive() {
			continue
		}
		if opening == 0 {
			b.WriteString("-- 2. Saldo inicial del almacén central\n")
		}
		opening++
		id := escapeSQL(r.ID)
		fmt.Fprintf(&b, "WITH ins AS (\n  INSERT INTO stock_records (scope, entity_id, quantity) VALUES ('%s', '%s', %s)\n  ON CONFLICT DO NOTHING RETURNING scope, entity_id, quantity\n)\n",
			entity.ScopeCentral, id, r.Opening.String())
		fmt.Fprintf(&b, "INSERT INTO stock_movements (id, transaction_id, scope, entity_id, delta, balance_after, reason, reference)\nSELECT '%s', '%s', scope, entity_id, quantity, quantity, '%s', 'seed' FROM ins;\n",
			uuid.New().String(), txID, entity.MovementReasonManual)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Package catalog carga el catálogo de insumos desde exportaciones CSV (Excel/SIMAT).
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/pae-compras/internal/domain/entity"
)

// Columnas esperadas (encabezado opcional): id, nombre, unidad.
const minColumns = 2

// Reader devuelve r decodificado a UTF-8 según charset (utf-8 o iso-8859-1/latin1/windows-1252).
func Reader(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("catalog: charset %q no soportado", charset)
	}
}

// Parse lee productos de un CSV separado por comas o punto y coma.
// Filas sin id se ignoran; la unidad vacía queda en kg; ids repetidos son error.
func Parse(r io.Reader, charset string) ([]entity.Product, error) {
	dec, err := Reader(r, charset)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("catalog: leer: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = detectComma(text)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	seen := make(map[string]struct{})
	var out []entity.Product
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: línea %d: %w", line, err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < minColumns || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		p := entity.Product{
			ID:          strings.TrimSpace(rec[0]),
			Name:        strings.TrimSpace(rec[1]),
			UnitMeasure: entity.DefaultUnit,
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			p.UnitMeasure = strings.ToLower(strings.TrimSpace(rec[2]))
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog: línea %d: producto %q repetido", line, p.ID)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile abre path y lo parsea con Parse.
func LoadFile(path, charset string) ([]entity.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: abrir %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, charset)
}

func detectComma(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "id", "codigo", "código", "product_id":
		return true
	}
	return false
}

// seed_catalog genera un script SQL para poblar la tabla products a partir de un CSV del catálogo
// de insumos PAE (id, nombre, unidad). Acepta exportaciones de Excel en ISO-8859-1.
//
// Uso: go run ./cmd/seed_catalog [-charset latin1] [-out ruta.sql] catalogo.csv
// Por defecto escribe internal/infrastructure/postgres/seed_products.sql
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/pae-compras/internal/infrastructure/catalog"
)

func main() {
	charset := flag.String("charset", "utf-8", "codificación del CSV (utf-8, latin1, windows-1252)")
	outFlag := flag.String("out", "", "ruta del script SQL de salida")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	products, err := catalog.LoadFile(csvPath, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}
	if len(products) == 0 {
		fmt.Fprintln(os.Stderr, "El catálogo no tiene productos")
		os.Exit(1)
	}

	outPath := *outFlag
	if outPath == "" {
		outPath = filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seed_products.sql")
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "-- Catálogo de insumos PAE\n-- Generado desde %s\n\n", filepath.Base(csvPath))
	fmt.Fprintln(out, "INSERT INTO products (id, name, unit_measure) VALUES")
	for i, p := range products {
		sep := ","
		if i == len(products)-1 {
			sep = ""
		}
		fmt.Fprintf(out, "  ('%s', '%s', '%s')%s\n", escapeSQL(p.ID), escapeSQL(p.Name), escapeSQL(p.UnitMeasure), sep)
	}
	fmt.Fprintln(out, "ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, unit_measure = EXCLUDED.unit_measure;")

	fmt.Printf("Generado %s: %d productos\n", outPath, len(products))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

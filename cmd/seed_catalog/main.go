// seed_catalog genera el script SQL que carga el catálogo de productos e ingredientes y el saldo
// inicial del almacén central a partir de un CSV separado por ';'.
//
// Uso: go run ./cmd/seed_catalog [-charset ISO-8859-1] [-out ruta.sql] catalogo.csv
// Por defecto escribe internal/infrastructure/postgres/migrations/002_seed_catalog.sql.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	charset := flag.String("charset", "UTF-8", "codificación del CSV (UTF-8 o ISO-8859-1)")
	outFlag := flag.String("out", "", "archivo de salida")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := readCatalog(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	outPath := *outFlag
	if outPath == "" {
		outPath = filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "002_seed_catalog.sql")
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSeed(out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir script: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d artículos\n", outPath, len(rows))
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

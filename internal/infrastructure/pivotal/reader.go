package pivotal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadRows carga todas las filas del export CSV. La primera fila es el
// encabezado; los nombres de columna duplicados (los exports de Pivotal
// repiten la columna "Comment") se desambiguan con un sufijo numérico que
// preserva el prefijo original.
func ReadRows(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error al abrir el CSV %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("error al leer el encabezado del CSV: %w", err)
	}
	header = dedupeHeader(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error al leer el CSV: %w", err)
		}
		rows = append(rows, NewRow(header, record))
	}
	return rows, nil
}

func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		seen[name]++
		if seen[name] > 1 {
			out[i] = name + strconv.Itoa(seen[name])
		} else {
			out[i] = name
		}
	}
	return out
}

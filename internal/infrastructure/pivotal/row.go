package pivotal

// Row es una fila del export como mapeo columna → celda. Conserva el orden
// de encuentro de las columnas porque los comentarios se extraen en orden
// de columna.
type Row struct {
	header []string
	fields map[string]string
}

func NewRow(header []string, values []string) Row {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(values) {
			fields[name] = values[i]
		}
	}
	return Row{header: header, fields: fields}
}

// Get devuelve el valor de la columna, o "" si no existe.
func (r Row) Get(name string) string {
	return r.fields[name]
}

// Columns devuelve los nombres de columna en orden de encuentro.
func (r Row) Columns() []string {
	return r.header
}

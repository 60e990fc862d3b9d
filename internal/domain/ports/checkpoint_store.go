package ports

// CheckpointStore es el registro durable del progreso de la migración.
// El proceso es el único escritor; cada mutación se persiste de forma
// síncrona para que un crash pierda a lo sumo la fila en vuelo.
type CheckpointStore interface {
	// RecordIssue avanza lastProcessedIndex a max(actual, rowIndex),
	// registra el mapeo sourceID → número remoto y la cuota observada,
	// y persiste.
	RecordIssue(rowIndex int, sourceID string, remoteNumber int, rateRemaining int) error
	// RecordLabel registra una etiqueta ya creada en el remoto. No-op si
	// ya estaba registrada.
	RecordLabel(name string) error
	// IsLabelKnown indica si la etiqueta ya fue creada en una corrida
	// anterior o en esta.
	IsLabelKnown(name string) bool
	// MissingIDs devuelve los ids de entrada que no figuran en el mapa de
	// issues, preservando el orden de entrada.
	MissingIDs(allIDs []string) []string
	// LastProcessedIndex devuelve el índice de la última fila migrada con
	// éxito, -1 si todavía no se procesó ninguna.
	LastProcessedIndex() int
}

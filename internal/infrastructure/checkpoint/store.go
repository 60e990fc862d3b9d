package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tomas-vilte/MateMigrate/internal/domain/ports"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
)

var _ ports.CheckpointStore = (*Store)(nil)

// Record es el estado durable de la migración. Lo posee exclusivamente el
// Store; ningún otro componente lo muta directamente.
type Record struct {
	LastProcessedIndex int            `json:"lastProcessedIndex"`
	Issues             map[string]int `json:"issues"`
	Labels             []string       `json:"labels"`
	RateLimits         map[string]int `json:"rateLimits"`
}

func emptyRecord() Record {
	return Record{
		LastProcessedIndex: -1,
		Issues:             map[string]int{},
		Labels:             []string{},
		RateLimits:         map[string]int{},
	}
}

// Store persiste el Record como un único documento JSON. Cada mutación se
// escribe de forma síncrona vía archivo temporal y rename, así nunca se
// relee una escritura parcial. El mutex cubre el fan-out concurrente de
// etiquetas del driver.
type Store struct {
	mu   sync.Mutex
	path string
	data Record
}

// Load lee el estado persistido. Nunca falla: un archivo ausente o corrupto
// se trata como estado vacío con un warning recuperable.
func Load(ctx context.Context, path string) *Store {
	store := &Store{path: path, data: emptyRecord()}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(ctx, "no se pudo leer el checkpoint, se arranca desde cero", "path", path, "error", err)
		}
		return store
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		logger.Warn(ctx, "checkpoint corrupto, se arranca desde cero", "path", path, "error", err)
		return store
	}

	if record.Issues == nil {
		record.Issues = map[string]int{}
	}
	if record.RateLimits == nil {
		record.RateLimits = map[string]int{}
	}
	if record.Labels == nil {
		record.Labels = []string{}
	}
	store.data = record
	return store
}

func (s *Store) RecordIssue(rowIndex int, sourceID string, remoteNumber int, rateRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex > s.data.LastProcessedIndex {
		s.data.LastProcessedIndex = rowIndex
	}
	s.data.Issues[sourceID] = remoteNumber
	s.data.RateLimits[fmt.Sprintf("%d", remoteNumber)] = rateRemaining
	return s.save()
}

func (s *Store) RecordLabel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isLabelKnown(name) {
		return nil
	}
	s.data.Labels = append(s.data.Labels, name)
	return s.save()
}

func (s *Store) IsLabelKnown(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLabelKnown(name)
}

func (s *Store) isLabelKnown(name string) bool {
	for _, label := range s.data.Labels {
		if label == name {
			return true
		}
	}
	return false
}

func (s *Store) MissingIDs(allIDs []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []string
	for _, id := range allIDs {
		if _, ok := s.data.Issues[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *Store) LastProcessedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastProcessedIndex
}

// save escribe el documento completo; se invoca con el mutex tomado. Un
// fallo acá rompe la garantía de resume, por eso se propaga en lugar de
// loguearse y seguir.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("error al codificar el checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("error al crear el archivo temporal del checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error al escribir el checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("error al sincronizar el checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error al cerrar el checkpoint temporal: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("error al reemplazar el checkpoint: %w", err)
	}
	return nil
}

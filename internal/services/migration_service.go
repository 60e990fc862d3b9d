package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainerrors "github.com/Tomas-vilte/MateMigrate/internal/domain/errors"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/models"
	"github.com/Tomas-vilte/MateMigrate/internal/domain/ports"
	"github.com/Tomas-vilte/MateMigrate/internal/i18n"
	"github.com/Tomas-vilte/MateMigrate/internal/infrastructure/pivotal"
	"github.com/Tomas-vilte/MateMigrate/internal/logger"
)

const (
	// ModeIndex retoma desde la fila siguiente al último checkpoint.
	ModeIndex = "index"
	// ModeMissing procesa las filas cuyo id no figura en el checkpoint.
	ModeMissing = "missing"
)

// RowMapper transforma una fila cruda en el modelo de dominio.
type RowMapper interface {
	MapToIssue(ctx context.Context, row pivotal.Row) models.Issue
}

// Summary es el resultado de una corrida: filas procesadas y tiempo
// transcurrido.
type Summary struct {
	Rows    int
	Elapsed time.Duration
}

// MigrationService orquesta la migración: selecciona el subconjunto de
// filas a trabajar y lleva cada una por mapper → sink → checkpoint,
// estrictamente de a una.
type MigrationService struct {
	sink   ports.IssueSink
	mapper RowMapper
	// checkpoint es nil para el sink de documento, que no tiene resume.
	checkpoint ports.CheckpointStore
	trans      *i18n.Translations
}

func NewMigrationService(sink ports.IssueSink, mapper RowMapper, checkpoint ports.CheckpointStore, trans *i18n.Translations) *MigrationService {
	return &MigrationService{
		sink:       sink,
		mapper:     mapper,
		checkpoint: checkpoint,
		trans:      trans,
	}
}

// Run procesa el lote seleccionado. Un fallo de una fila se loguea con su
// índice y no aborta el lote; un fallo de escritura del checkpoint sí,
// porque ignorarlo rompería en silencio la garantía de resume.
func (s *MigrationService) Run(ctx context.Context, rows []pivotal.Row, mode string, batchSize int) (Summary, error) {
	startTime := time.Now()

	selected, err := s.selectRows(rows, mode, batchSize)
	if err != nil {
		return Summary{}, err
	}

	processed := 0
	for _, item := range selected {
		rowCtx := logger.With(ctx, "row", item.index)
		if err := s.processRow(rowCtx, item.index, item.row); err != nil {
			return Summary{Rows: processed, Elapsed: time.Since(startTime)}, err
		}
		processed++
	}

	if err := s.sink.Finalize(ctx); err != nil {
		return Summary{Rows: processed, Elapsed: time.Since(startTime)}, err
	}
	return Summary{Rows: processed, Elapsed: time.Since(startTime)}, nil
}

type indexedRow struct {
	index int
	row   pivotal.Row
}

func (s *MigrationService) selectRows(rows []pivotal.Row, mode string, batchSize int) ([]indexedRow, error) {
	switch mode {
	case ModeMissing:
		if s.checkpoint == nil {
			return nil, domainerrors.NewInvalidModeError(mode)
		}
		return s.selectMissing(rows, batchSize), nil
	case ModeIndex:
		return s.selectByIndex(rows, batchSize), nil
	default:
		return nil, domainerrors.NewInvalidModeError(mode)
	}
}

// selectByIndex toma el rango [lastProcessedIndex+1, +batchSize). El sink
// de documento no tiene checkpoint y siempre arranca en la fila 0.
func (s *MigrationService) selectByIndex(rows []pivotal.Row, batchSize int) []indexedRow {
	start := 0
	if s.checkpoint != nil {
		start = s.checkpoint.LastProcessedIndex() + 1
	}
	if start > len(rows) {
		start = len(rows)
	}

	end := len(rows)
	if batchSize != -1 && start+batchSize < end {
		end = start + batchSize
	}

	selected := make([]indexedRow, 0, end-start)
	for i := start; i < end; i++ {
		selected = append(selected, indexedRow{index: i, row: rows[i]})
	}
	return selected
}

// selectMissing diffea todos los ids de entrada contra el checkpoint,
// preservando el orden de entrada, y toma las primeras batchSize filas
// faltantes.
func (s *MigrationService) selectMissing(rows []pivotal.Row, batchSize int) []indexedRow {
	allIDs := make([]string, len(rows))
	for i, row := range rows {
		allIDs[i] = row.Get("Id")
	}

	missing := s.checkpoint.MissingIDs(allIDs)
	fmt.Println(s.trans.GetMessage("migrate_missing_found", len(missing), map[string]interface{}{
		"Count": len(missing),
	}))

	missingSet := make(map[string]struct{}, len(missing))
	for _, id := range missing {
		missingSet[id] = struct{}{}
	}

	var selected []indexedRow
	for i, row := range rows {
		if batchSize != -1 && len(selected) >= batchSize {
			break
		}
		if _, ok := missingSet[row.Get("Id")]; ok {
			selected = append(selected, indexedRow{index: i, row: row})
		}
	}

	ids := make([]string, len(selected))
	for i, item := range selected {
		ids[i] = item.row.Get("Id")
	}
	fmt.Println(s.trans.GetMessage("migrate_will_process", 0, map[string]interface{}{
		"Count": len(selected),
		"Ids":   strings.Join(ids, ", "),
	}))
	return selected
}

// processRow lleva una fila por el pipeline completo. Solo el fallo de
// persistencia del checkpoint se propaga; todo lo demás se recupera.
func (s *MigrationService) processRow(ctx context.Context, index int, row pivotal.Row) error {
	issue := s.mapper.MapToIssue(ctx, row)

	// Las etiquetas no dependen entre sí: se despachan concurrentemente y
	// se espera a todas antes de crear la issue.
	var wg sync.WaitGroup
	for _, label := range issue.Labels {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := s.sink.CreateLabel(ctx, name); err != nil {
				logger.Warn(ctx, "no se pudo crear la etiqueta", "label", name, "error", err)
			}
		}(label)
	}
	wg.Wait()

	result, err := s.sink.CreateIssue(ctx, issue)
	if err != nil {
		// La cuota insuficiente también es un fallo de fila: la estimación
		// varía por fila, así que una fila más liviana todavía puede pasar.
		var rateErr *domainerrors.RateLimitLowError
		if errors.As(err, &rateErr) {
			fmt.Println(s.trans.GetMessage("migrate_rate_limit_depleted", 0, map[string]interface{}{
				"Reset": rateErr.Reset.Format(time.RFC1123),
			}))
		} else {
			fmt.Println(s.trans.GetMessage("migrate_row_error", 0, map[string]interface{}{
				"Index": index,
				"Error": err.Error(),
			}))
		}
		logger.Error(ctx, "error procesando la fila", err, "row", index)
		return nil
	}

	if s.checkpoint != nil && result != nil {
		if err := s.checkpoint.RecordIssue(index, issue.ID, result.Number, result.RateRemaining); err != nil {
			return fmt.Errorf("error al persistir el checkpoint de la fila %d: %w", index, err)
		}
	}
	return nil
}

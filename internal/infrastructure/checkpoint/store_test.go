package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("un archivo ausente inicializa estado vacío", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "log.json"))

		assert.Equal(t, -1, store.LastProcessedIndex())
		assert.False(t, store.IsLabelKnown("bug"))
	})

	t.Run("un archivo corrupto inicializa estado vacío", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "log.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		store := Load(ctx, path)

		assert.Equal(t, -1, store.LastProcessedIndex())
	})

	t.Run("relee el estado persistido por una corrida anterior", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "log.json")

		first := Load(ctx, path)
		require.NoError(t, first.RecordIssue(4, "101", 7, 4990))
		require.NoError(t, first.RecordLabel("bug"))

		second := Load(ctx, path)
		assert.Equal(t, 4, second.LastProcessedIndex())
		assert.True(t, second.IsLabelKnown("bug"))
		assert.Empty(t, second.MissingIDs([]string{"101"}))
	})
}

func TestStoreRecordIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("avanza lastProcessedIndex solo hacia adelante", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "log.json"))

		require.NoError(t, store.RecordIssue(5, "a", 1, 100))
		require.NoError(t, store.RecordIssue(3, "b", 2, 99))

		assert.Equal(t, 5, store.LastProcessedIndex())
	})

	t.Run("persiste de forma síncrona en cada mutación", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "log.json")
		store := Load(ctx, path)

		require.NoError(t, store.RecordIssue(0, "a", 1, 100))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"a": 1`)
	})

	t.Run("devuelve error si el destino no se puede escribir", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "no-such-dir", "log.json"))

		assert.Error(t, store.RecordIssue(0, "a", 1, 100))
	})
}

func TestStoreRecordLabel(t *testing.T) {
	ctx := context.Background()

	t.Run("es idempotente", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "log.json"))

		require.NoError(t, store.RecordLabel("bug"))
		require.NoError(t, store.RecordLabel("bug"))

		assert.True(t, store.IsLabelKnown("bug"))
		assert.Len(t, store.data.Labels, 1)
	})

	t.Run("registros concurrentes no pierden etiquetas ni corrompen el archivo", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "log.json")
		store := Load(ctx, path)

		labels := []string{"bug", "chore", "feature", "high", "low"}
		var wg sync.WaitGroup
		for _, name := range labels {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				assert.NoError(t, store.RecordLabel(name))
				assert.True(t, store.IsLabelKnown(name))
			}(name)
		}
		wg.Wait()

		reloaded := Load(ctx, path)
		for _, name := range labels {
			assert.True(t, reloaded.IsLabelKnown(name), "etiqueta %s perdida tras recargar", name)
		}
	})
}

func TestStoreMissingIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("preserva el orden de entrada incluyendo duplicados", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "log.json"))
		require.NoError(t, store.RecordIssue(0, "b", 1, 100))

		missing := store.MissingIDs([]string{"a", "b", "c", "a"})

		assert.Equal(t, []string{"a", "c", "a"}, missing)
	})

	t.Run("entrada vacía devuelve vacío", func(t *testing.T) {
		store := Load(ctx, filepath.Join(t.TempDir(), "log.json"))

		assert.Empty(t, store.MissingIDs(nil))
	})
}

package report

import (
	"os"
	"path/filepath"
	"testing"

	aerrors "github.com/23skdu/tinyalloc/internal/errors"
	"github.com/23skdu/tinyalloc/internal/memory"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioStats(t *testing.T) memory.Stats {
	t.Helper()
	alloc := memory.NewSmallAllocator(arrowmem.NewGoAllocator(), zerolog.Nop())
	buf := alloc.Allocate(10)
	require.NotNil(t, buf)
	alloc.Deallocate(buf, 10)
	return alloc.Stats()
}

func TestFromStats(t *testing.T) {
	rows := FromStats("scenario", scenarioStats(t))
	require.Len(t, rows, memory.NumClasses)

	for class, row := range rows {
		assert.Equal(t, "scenario", row.Run)
		assert.Equal(t, int32(class), row.Class)
		assert.Equal(t, int32((class+1)*8), row.BlockSize)
		assert.Equal(t, int64(640), row.ChunkBytes)
		assert.Equal(t, int64(320), row.PoolBytes)
		assert.Equal(t, int64(1), row.AllocRefill)
	}
	assert.Equal(t, int32(20), rows[1].FreeBlocks)
	assert.Equal(t, int64(320), rows[1].FreeBytes)
	assert.Zero(t, rows[0].FreeBlocks)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.parquet")
	rows := append(FromStats("a", scenarioStats(t)), FromStats("b", memory.Stats{})...)

	require.NoError(t, Write(path, rows))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWrite_NoRows(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "empty.parquet"), nil)
	require.Error(t, err)
	assert.Equal(t, aerrors.ErrorTypeValidation, aerrors.TypeOf(err))
}

func TestWrite_BadPath(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "missing", "dir", "r.parquet"), FromStats("x", memory.Stats{}))
	require.Error(t, err)
	assert.Equal(t, aerrors.ErrorTypeStorage, aerrors.TypeOf(err))
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.Equal(t, aerrors.ErrorTypeStorage, aerrors.TypeOf(err))
}

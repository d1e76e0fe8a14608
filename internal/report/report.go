// Package report persists allocator statistics as Parquet.
package report

import (
	aerrors "github.com/23skdu/tinyalloc/internal/errors"
	"github.com/23skdu/tinyalloc/internal/memory"
	"github.com/parquet-go/parquet-go"
)

// Row is one size class of one run. Run-wide counters repeat on every row so
// a single table answers both per-class and per-run queries.
type Row struct {
	Run        string `parquet:"run"`
	Class      int32  `parquet:"class"`
	BlockSize  int32  `parquet:"block_size"`
	FreeBlocks int32  `parquet:"free_blocks"`
	FreeBytes  int64  `parquet:"free_bytes"`

	PoolBytes      int64   `parquet:"pool_bytes"`
	Chunks         int32   `parquet:"chunks"`
	ChunkBytes     int64   `parquet:"chunk_bytes"`
	AllocFreelist  int64   `parquet:"alloc_freelist"`
	AllocPool      int64   `parquet:"alloc_pool"`
	AllocRefill    int64   `parquet:"alloc_refill"`
	AllocLarge     int64   `parquet:"alloc_large"`
	FreeSmall      int64   `parquet:"free_small"`
	FreeLarge      int64   `parquet:"free_large"`
	Adopted        int64   `parquet:"adopted"`
	Dropped        int64   `parquet:"dropped"`
	Carves         int64   `parquet:"carves"`
	SalvagedBytes  int64   `parquet:"salvaged_bytes"`
	RefillFailures int64   `parquet:"refill_failures"`
	HitRatio       float64 `parquet:"hit_ratio"`
}

// FromStats flattens s into NumClasses rows labelled run.
func FromStats(run string, s memory.Stats) []Row {
	rows := make([]Row, memory.NumClasses)
	for class := range rows {
		size := memory.ClassSize(class)
		rows[class] = Row{
			Run:            run,
			Class:          int32(class),
			BlockSize:      int32(size),
			FreeBlocks:     int32(s.FreeBlocks[class]),
			FreeBytes:      int64(s.FreeBlocks[class]) * int64(size),
			PoolBytes:      int64(s.PoolBytes),
			Chunks:         int32(s.Chunks),
			ChunkBytes:     s.ChunkBytes,
			AllocFreelist:  s.FromFreelist,
			AllocPool:      s.FromPool,
			AllocRefill:    s.FromRefill,
			AllocLarge:     s.Large,
			FreeSmall:      s.SmallFrees,
			FreeLarge:      s.LargeFrees,
			Adopted:        s.Adopted,
			Dropped:        s.Dropped,
			Carves:         s.Carves,
			SalvagedBytes:  s.SalvagedBytes,
			RefillFailures: s.RefillFailures,
			HitRatio:       s.HitRatio(),
		}
	}
	return rows
}

// Write stores rows at path as a zstd-compressed Parquet file.
func Write(path string, rows []Row) error {
	if len(rows) == 0 {
		return aerrors.NewValidationError("report_write", "no rows")
	}
	if err := parquet.WriteFile(path, rows, parquet.Compression(&parquet.Zstd)); err != nil {
		return aerrors.WrapStorageError(err, "report_write", "write parquet report").
			WithContext("path", path).
			WithContext("rows", len(rows))
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, aerrors.WrapStorageError(err, "report_read", "read parquet report").
			WithContext("path", path)
	}
	return rows, nil
}

package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const exportBatch = 5000

type parquetEvent struct {
	ID           string `parquet:"name=id, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Seq          int64  `parquet:"name=seq, type=INT64"`
	Network      string `parquet:"name=network, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Type         string `parquet:"name=type, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Account      string `parquet:"name=account, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Counterparty string `parquet:"name=counterparty, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Attributes   string `parquet:"name=attributes, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp    int64  `parquet:"name=timestamp, type=INT64"`
}

// ExportResult describes one parquet export.
type ExportResult struct {
	Path     string
	Rows     int
	FirstSeq uint64
	LastSeq  uint64
}

// ExportParquet writes every event with a sequence above afterSeq to a new
// parquet file in dir. No file is written when there is nothing new.
func (ix *Indexer) ExportParquet(ctx context.Context, dir string, afterSeq uint64) (*ExportResult, error) {
	var rows []EventRow
	if err := ix.db.WithContext(ctx).Where("seq > ?", afterSeq).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: export query: %w", err)
	}
	if len(rows) == 0 {
		return &ExportResult{FirstSeq: afterSeq, LastSeq: afterSeq}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("indexer: export dir: %w", err)
	}
	res := &ExportResult{Rows: len(rows), FirstSeq: rows[0].Seq, LastSeq: rows[len(rows)-1].Seq}
	network := strings.TrimSpace(ix.network)
	if network == "" {
		network = "farm"
	}
	res.Path = filepath.Join(dir, fmt.Sprintf("%s_events_%d_%d.parquet", network, res.FirstSeq, res.LastSeq))
	if err := writeParquet(res.Path, rows); err != nil {
		return nil, err
	}
	ix.logger.Info("exported events", "path", res.Path, "rows", res.Rows)
	return res, nil
}

func writeParquet(path string, rows []EventRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetEvent), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.RowGroupSize = 16 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range rows {
		rec := &parquetEvent{
			ID:           row.ID.String(),
			Seq:          int64(row.Seq),
			Network:      row.Network,
			Type:         row.Type,
			Account:      row.Account,
			Counterparty: row.Counterparty,
			Attributes:   row.Attributes,
			Timestamp:    row.Timestamp,
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("indexer: parquet write: %w", err)
		}
		if (i+1)%exportBatch == 0 {
			if err := pw.Flush(true); err != nil {
				pw.WriteStop()
				file.Close()
				return fmt.Errorf("indexer: parquet flush: %w", err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("indexer: close parquet file: %w", err)
	}
	return nil
}

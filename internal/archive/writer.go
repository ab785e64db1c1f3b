package archive

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of images to buffer before flushing to the database.
	DefaultBatchSize = 32
)

type kind int

const (
	kindCanvas kind = iota
	kindPacked
)

// entry is one buffered image. For canvases a/b are tone/mip, for packed
// images triplet/mip.
type entry struct {
	kind kind
	a    int
	b    int
	name string
	data []byte
}

// Writer writes a tonal art map to an archive database.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []entry
	metadata  Metadata
	batchSize int
	mu        sync.Mutex
}

// New creates a new archive writer.
// The database is created if it doesn't exist, and the schema is initialized.
// Images and metadata from a previous run at path are removed.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := clearImages(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]entry, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
		metadata:  metadata,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS canvases (
			tone INTEGER NOT NULL,
			mip INTEGER NOT NULL,
			image_data BLOB NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS canvas_index ON canvases (tone, mip);

		CREATE TABLE IF NOT EXISTS packed (
			triplet INTEGER NOT NULL,
			mip INTEGER NOT NULL,
			name TEXT NOT NULL,
			image_data BLOB NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS packed_index ON packed (triplet, mip);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// clearImages drops rows left by an earlier run written to the same path.
func clearImages(db *sql.DB) error {
	for _, table := range []string{"canvases", "packed"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// WriteCanvas buffers the canvas at (tone, mip).
func (w *Writer) WriteCanvas(tone, mip int, c *canvas.Canvas) error {
	data, err := encodePNG(c.Image())
	if err != nil {
		return fmt.Errorf("failed to encode canvas tone %d mip %d: %w", tone, mip, err)
	}
	return w.add(entry{kind: kindCanvas, a: tone, b: mip, data: data})
}

// WritePacked buffers a packed image.
func (w *Writer) WritePacked(img *pack.Image) error {
	data, err := encodePNG(img.NRGBA())
	if err != nil {
		return fmt.Errorf("failed to encode packed %s mip %d: %w", img.Name(), img.Mip, err)
	}
	return w.add(entry{kind: kindPacked, a: img.Triplet, b: img.Mip, name: img.Name(), data: data})
}

func (w *Writer) add(e entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, e)
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes any buffered images to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes buffered images to the database. Must be called with lock held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	canvasStmt, err := tx.Prepare("INSERT OR REPLACE INTO canvases (tone, mip, image_data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare canvas insert: %w", err)
	}
	defer canvasStmt.Close()

	packedStmt, err := tx.Prepare("INSERT OR REPLACE INTO packed (triplet, mip, name, image_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare packed insert: %w", err)
	}
	defer packedStmt.Close()

	for _, e := range w.batch {
		compressed, err := gzipCompress(e.data)
		if err != nil {
			return fmt.Errorf("failed to compress image %d/%d: %w", e.a, e.b, err)
		}

		switch e.kind {
		case kindCanvas:
			_, err = canvasStmt.Exec(e.a, e.b, compressed)
		case kindPacked:
			_, err = packedStmt.Exec(e.a, e.b, e.name, compressed)
		}
		if err != nil {
			return fmt.Errorf("failed to insert image %d/%d: %w", e.a, e.b, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining images and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// gzipCompress compresses data with gzip.
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}

	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

package archive

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
)

// ErrNotFound is returned when a requested image is not in the archive.
var ErrNotFound = errors.New("image not found")

// Reader reads a tonal art map from an archive database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an archive database for reading.
func OpenReader(path string) (*Reader, error) {
	// Open in read-only mode with immutable flag
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='canvases'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain canvases table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadCanvas decodes the canvas stored at (tone, mip).
func (r *Reader) ReadCanvas(tone, mip int) (*canvas.Canvas, error) {
	img, err := r.readImage("SELECT image_data FROM canvases WHERE tone=? AND mip=?", tone, mip)
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas tone %d mip %d: %w", tone, mip, err)
	}
	return canvas.FromImage(img)
}

// ReadPacked decodes the packed image of triplet at mip.
func (r *Reader) ReadPacked(triplet, mip int) (image.Image, error) {
	img, err := r.readImage("SELECT image_data FROM packed WHERE triplet=? AND mip=?", triplet, mip)
	if err != nil {
		return nil, fmt.Errorf("failed to read packed triplet %d mip %d: %w", triplet, mip, err)
	}
	return img, nil
}

// ReadHierarchy loads every canvas listed by the archive metadata.
func (r *Reader) ReadHierarchy() (*tam.Hierarchy, error) {
	meta, err := r.Metadata()
	if err != nil {
		return nil, err
	}
	if meta.ToneLevels <= 0 || meta.MipLevels <= 0 {
		return nil, fmt.Errorf("archive metadata has no tone or mip levels")
	}

	h := tam.NewHierarchy(meta.ToneLevels, meta.MipLevels)
	for tone := 0; tone < meta.ToneLevels; tone++ {
		for mip := 0; mip < meta.MipLevels; mip++ {
			c, err := r.ReadCanvas(tone, mip)
			if err != nil {
				return nil, err
			}
			if err := h.Set(tone, mip, c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

// ReadCanvasPNG returns the stored PNG bytes of the canvas at (tone, mip).
func (r *Reader) ReadCanvasPNG(tone, mip int) ([]byte, error) {
	return r.readData("SELECT image_data FROM canvases WHERE tone=? AND mip=?", tone, mip)
}

// ReadPackedPNG returns the stored PNG bytes of a packed image.
func (r *Reader) ReadPackedPNG(triplet, mip int) ([]byte, error) {
	return r.readData("SELECT image_data FROM packed WHERE triplet=? AND mip=?", triplet, mip)
}

func (r *Reader) readImage(query string, args ...any) (image.Image, error) {
	data, err := r.readData(query, args...)
	if err != nil {
		return nil, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (r *Reader) readData(query string, args ...any) ([]byte, error) {
	var compressed []byte
	err := r.db.QueryRow(query, args...).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress image: %w", err)
	}
	return data, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}

	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return metadataFromMap(values), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// gzipDecompress decompresses gzip data.
func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}

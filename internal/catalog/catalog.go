// Package catalog records every generated file in an embedded SQLite
// database so studies can be listed after the fact.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/suyashkumar/dicom/pkg/tag"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mrsinham/studyforge/internal/dicom"
	"github.com/mrsinham/studyforge/internal/failure"
)

const schema = `CREATE TABLE IF NOT EXISTS instances (
	path         TEXT PRIMARY KEY,
	patient_id   TEXT NOT NULL,
	study_uid    TEXT NOT NULL,
	series_uid   TEXT NOT NULL,
	sop_uid      TEXT NOT NULL,
	modality     TEXT NOT NULL,
	study_date   TEXT NOT NULL,
	written_at   TEXT NOT NULL
)`

// Entry is one catalogued file.
type Entry struct {
	Path      string
	PatientID string
	StudyUID  string
	SeriesUID string
	SOPUID    string
	Modality  string
	StudyDate string
	WrittenAt time.Time
}

// Catalog is a SQLite-backed index of written files.
type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the catalog at path.
func Open(path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// writes from the writer pool are serialized on one connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create instances table: %w", err)
	}
	return &Catalog{db: db, now: time.Now}, nil
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add records one written file. An existing path is replaced.
func (c *Catalog) Add(ctx context.Context, e Entry) error {
	if e.WrittenAt.IsZero() {
		e.WrittenAt = c.now()
	}
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO instances
		(path, patient_id, study_uid, series_uid, sop_uid, modality, study_date, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.PatientID, e.StudyUID, e.SeriesUID, e.SOPUID, e.Modality, e.StudyDate,
		e.WrittenAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// Entries returns every catalogued file ordered by study, series and path.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path, patient_id, study_uid, series_uid, sop_uid, modality, study_date, written_at
		FROM instances ORDER BY study_uid, series_uid, path`)
	if err != nil {
		return nil, fmt.Errorf("select instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			written string
		)
		if err := rows.Scan(&e.Path, &e.PatientID, &e.StudyUID, &e.SeriesUID, &e.SOPUID, &e.Modality, &e.StudyDate, &written); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if e.WrittenAt, err = time.Parse(time.RFC3339Nano, written); err != nil {
			return nil, fmt.Errorf("parse written_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sink wraps another sink and catalogues every successful write.
type Sink struct {
	next    dicom.Sink
	catalog *Catalog
}

// NewSink returns a sink that writes through next and records into c.
func NewSink(next dicom.Sink, c *Catalog) *Sink {
	return &Sink{next: next, catalog: c}
}

// Prepare delegates to the wrapped sink.
func (s *Sink) Prepare(ctx context.Context, dest string) error {
	return s.next.Prepare(ctx, dest)
}

// Write delegates to the wrapped sink, then records the file.
func (s *Sink) Write(ctx context.Context, name string, rec *dicom.Record) (string, error) {
	path, err := s.next.Write(ctx, name, rec)
	if err != nil {
		return "", err
	}
	entry := Entry{
		Path:      path,
		PatientID: first(rec, tag.PatientID),
		StudyUID:  first(rec, tag.StudyInstanceUID),
		SeriesUID: first(rec, tag.SeriesInstanceUID),
		SOPUID:    first(rec, tag.SOPInstanceUID),
		Modality:  first(rec, tag.Modality),
		StudyDate: first(rec, tag.StudyDate),
	}
	if err := s.catalog.Add(ctx, entry); err != nil {
		return "", &failure.FileWriteError{Path: path, Reason: err.Error()}
	}
	return path, nil
}

func first(rec *dicom.Record, t tag.Tag) string {
	if v := rec.Strings(t); len(v) > 0 {
		return v[0]
	}
	return ""
}

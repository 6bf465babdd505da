package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/exposure"
)

// referenceDate is the epoch of the dates in the saved parameter file.
var referenceDate = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// JSONFileBackend stores the collection in one JSON document, the
// savedParameters.json layout.
type JSONFileBackend struct {
	path string
}

func NewJSONFileBackend(path string) (*JSONFileBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return &JSONFileBackend{path: path}, nil
}

func (b *JSONFileBackend) Name() string { return "json" }

func (b *JSONFileBackend) Close() error { return nil }

// Load reads the file. A corrupt file is moved aside to
// <path>.corrupt-<timestamp> and ErrCorrupt is returned.
func (b *JSONFileBackend) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	records, err := DecodeRecords(data)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%s", b.path, time.Now().UTC().Format("20060102T150405"))
		if renameErr := os.Rename(b.path, backup); renameErr != nil {
			return nil, fmt.Errorf("%w: %v (backup failed: %v)", ErrCorrupt, err, renameErr)
		}
		return nil, fmt.Errorf("%w: %v (moved to %s)", ErrCorrupt, err, backup)
	}
	return records, nil
}

// Save writes to a temp file in the same directory and renames it over
// the old file.
func (b *JSONFileBackend) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeRecords(records)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}

// LastSaved returns the file's modification time.
func (b *JSONFileBackend) LastSaved(ctx context.Context) (time.Time, error) {
	info, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime().UTC(), nil
}

// fileRecord is the on-disk shape. Enums carry their legacy labels and the
// date is seconds since referenceDate.
type fileRecord struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Date                 json.RawMessage `json:"date"`
	Notes                string          `json:"notes"`
	LightCondition       string          `json:"lightCondition"`
	ISO                  float64         `json:"iso"`
	SceneMode            string          `json:"sceneMode"`
	Aperture             float64         `json:"aperture"`
	ShutterSpeed         float64         `json:"shutterSpeed"`
	MeteringMode         string          `json:"meteringMode"`
	ExposureCompensation float64         `json:"exposureCompensation"`
}

// EncodeRecords renders records in the saved parameter file format.
func EncodeRecords(records []Record) ([]byte, error) {
	out := make([]fileRecord, 0, len(records))
	for _, rec := range records {
		secs := float64(rec.Date.Sub(referenceDate)) / float64(time.Second)
		date, err := json.Marshal(secs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode date of %s: %w", rec.ID, err)
		}
		out = append(out, fileRecord{
			ID:                   strings.ToUpper(rec.ID.String()),
			Name:                 rec.Name,
			Date:                 date,
			Notes:                rec.Notes,
			LightCondition:       rec.LightCondition.LegacyLabel(),
			ISO:                  rec.ISO,
			SceneMode:            rec.SceneMode.LegacyLabel(),
			Aperture:             rec.Aperture,
			ShutterSpeed:         rec.ShutterSpeed,
			MeteringMode:         rec.MeteringMode.LegacyLabel(),
			ExposureCompensation: rec.ExposureCompensation,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	return data, nil
}

// DecodeRecords parses the saved parameter file format. Enum fields may be
// legacy labels or tags; dates may be reference seconds or RFC 3339.
func DecodeRecords(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for i, fr := range raw {
		rec, err := fr.record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (fr fileRecord) record() (Record, error) {
	id, err := uuid.Parse(fr.ID)
	if err != nil {
		return Record{}, fmt.Errorf("invalid id %q: %w", fr.ID, err)
	}
	date, err := decodeDate(fr.Date)
	if err != nil {
		return Record{}, err
	}
	light, err := exposure.ParseLightCondition(fr.LightCondition)
	if err != nil {
		return Record{}, err
	}
	scene, err := exposure.ParseSceneMode(fr.SceneMode)
	if err != nil {
		return Record{}, err
	}
	metering, err := exposure.ParseMeteringMode(fr.MeteringMode)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:    id,
		Name:  fr.Name,
		Date:  date,
		Notes: fr.Notes,
		Input: exposure.Input{
			LightCondition: light,
			ISO:            fr.ISO,
			SceneMode:      scene,
		},
		Result: exposure.Result{
			Aperture:             fr.Aperture,
			ShutterSpeed:         fr.ShutterSpeed,
			MeteringMode:         metering,
			ExposureCompensation: fr.ExposureCompensation,
		},
	}, nil
}

func decodeDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("missing date")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("invalid date: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t.UTC(), nil
	}

	var secs float64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("invalid date %v", secs)
	}
	// microsecond rounding absorbs float error at current epochs
	micros := math.Round(secs * 1e6)
	return referenceDate.Add(time.Duration(micros) * time.Microsecond), nil
}

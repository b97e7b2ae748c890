package diagnostic

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidModel is returned when diagnostic data cannot be decoded.
var ErrInvalidModel = errors.New("invalid diagnostic data")

// Load decodes a JSON encoded model and indexes it.
func Load(r io.Reader) (*Model, error) {
	var m Model
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := m.Index(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads a model from path. Files ending in .xml are read as
// DiagnosticData XML, anything else as JSON.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostic data: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xml") {
		return LoadXML(f)
	}
	return Load(f)
}

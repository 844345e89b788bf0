// SPDX-License-Identifier: MIT
// File: persist.go
// Role: JSON encoding of a Store.
//
// Determinism:
//   - Save writes parameters in Names() order, so identical stores produce
//     byte-identical files.

package weights

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/katalvlaran/lorainit/matrix"
)

// ErrBadFile indicates a structurally valid JSON document whose contents do
// not describe a set of well-formed matrices.
var ErrBadFile = errors.New("weights: malformed weights file")

// fileParam is the on-disk form of one parameter.
type fileParam struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Data      []float64 `json:"data"`
	Trainable *bool     `json:"trainable,omitempty"`
}

// fileDoc is the on-disk form of a Store.
type fileDoc struct {
	Params []fileParam `json:"params"`
}

// Load decodes a Store from r.
//
// Errors:
//   - decoding errors from the JSON layer (wrapped),
//   - ErrBadFile for shape/length violations or non-finite data,
//   - ErrDuplicate / ErrEmptyName from registration.
func Load(r io.Reader) (*Store, error) {
	var doc fileDoc
	if err := json.UnmarshalRead(r, &doc); err != nil {
		return nil, fmt.Errorf("weights: decode: %w", err)
	}

	s := NewStore()
	for i, p := range doc.Params {
		m, err := matrix.NewDenseFrom(p.Rows, p.Cols, p.Data)
		if err != nil {
			return nil, fmt.Errorf("param %d (%q): %w: %w", i, p.Name, ErrBadFile, err)
		}
		if err = s.Register(p.Name, m); err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		if p.Trainable != nil && !*p.Trainable {
			_ = s.SetTrainable(p.Name, false) // registered just above
		}
	}

	return s, nil
}

// Save encodes s to w as indented JSON.
func Save(w io.Writer, s *Store) error {
	names := s.Names()
	doc := fileDoc{Params: make([]fileParam, 0, len(names))}
	for _, name := range names {
		m, ok := s.Lookup(name)
		if !ok {
			continue
		}
		trainable := s.Trainable(name)
		data := make([]float64, len(m.RawData()))
		copy(data, m.RawData())
		doc.Params = append(doc.Params, fileParam{
			Name:      name,
			Rows:      m.Rows(),
			Cols:      m.Cols(),
			Data:      data,
			Trainable: &trainable,
		})
	}

	if err := json.MarshalWrite(w, &doc, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("weights: encode: %w", err)
	}

	return nil
}

// LoadFile is Load on the file at path.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// SaveFile is Save into the file at path (created or truncated).
func SaveFile(path string, s *Store) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return Save(f, s)
}

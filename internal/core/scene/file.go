package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeusync/citrus/internal/core/ecs"
)

// Write encodes doc to w using the serializer's indent.
func (s *Serializer) Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	if s.indent != "" {
		enc.SetIndent("", s.indent)
	}
	return enc.Encode(doc)
}

// Read decodes one Document from r.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene: decode document: %w", err)
	}
	return doc, nil
}

// SaveFile serializes entities into the file at path, replacing it.
func (s *Serializer) SaveFile(path string, entities []ecs.EntityAddr) (err error) {
	doc, err := s.SerializeScene(entities)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return s.Write(f, doc)
}

// LoadFile loads the document at path into m.
func (s *Serializer) LoadFile(m *ecs.Manager, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s.DeserializeScene(m, doc)
}

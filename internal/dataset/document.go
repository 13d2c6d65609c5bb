package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tcdata/railnet/internal/models"
)

var errMissingData = errors.New(`document has no "data" member`)

// Document is a dataset file: an object whose "data" member holds the
// records. Other top-level members are kept as they are.
type Document struct {
	root models.RawObject
	Data []models.RawObject
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Document) UnmarshalJSON(b []byte) error {
	var root models.RawObject
	if err := json.Unmarshal(b, &root); err != nil {
		return err
	}
	var data []models.RawObject
	found, err := root.Decode("data", &data)
	if err != nil {
		return err
	}
	if !found {
		return errMissingData
	}
	d.root = root
	d.Data = data
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Document) MarshalJSON() ([]byte, error) {
	root := d.root.Clone()
	data := d.Data
	if data == nil {
		data = []models.RawObject{}
	}
	if err := root.Set("data", data); err != nil {
		return nil, err
	}
	return root.MarshalJSON()
}

// ReadDocument loads a dataset file
func ReadDocument(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}

// Encode renders the document tab-indented with non-ASCII text left as is
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocument replaces the file at path with the encoded document
func WriteDocument(path string, doc *Document) error {
	b, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func decodeAll[T any](data []models.RawObject) ([]T, error) {
	out := make([]T, 0, len(data))
	for i, raw := range data {
		var record T
		if err := raw.Into(&record); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// StationRecords decodes the records of a station document
func (d *Document) StationRecords() ([]models.StationRecord, error) {
	return decodeAll[models.StationRecord](d.Data)
}

// PathRecords decodes the records of a path document
func (d *Document) PathRecords() ([]models.PathRecord, error) {
	return decodeAll[models.PathRecord](d.Data)
}

// EquipmentRecord is an entry of the train equipment document
type EquipmentRecord struct {
	IDString *string           `json:"idString,omitempty"`
	Objects  []EquipmentRecord `json:"objects,omitempty"`
}

// EquipmentIDs returns the identifiers of all equipments including nested
// objects
func (d *Document) EquipmentIDs() ([]string, error) {
	records, err := decodeAll[EquipmentRecord](d.Data)
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(records []EquipmentRecord, inherited *string)
	walk = func(records []EquipmentRecord, inherited *string) {
		for _, r := range records {
			id := inherited
			if r.IDString != nil {
				id = r.IDString
			}
			if len(r.Objects) > 0 {
				walk(r.Objects, id)
				continue
			}
			if id != nil {
				out = append(out, *id)
			}
		}
	}
	walk(records, nil)
	return out, nil
}

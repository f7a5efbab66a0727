package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// IDField is the key under which a document's store-assigned identifier is exposed.
const IDField = "_id"

var (
	// ErrNotAnObject is returned when a request body is valid JSON but not an object.
	ErrNotAnObject = errors.New("document must be a JSON object")

	// ErrTrailingData is returned when anything but whitespace follows the object.
	ErrTrailingData = errors.New("unexpected data after JSON object")
)

// Document is a schemaless record. Users and books are both documents; the
// only field the service itself reads is "email" on users.
type Document map[string]any

// ID returns the store-assigned identifier, or "" when the document has none.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// String returns a top-level string field, or "" when absent or not a string.
func (d Document) String(field string) string {
	v, _ := d[field].(string)
	return v
}

// WithoutID returns a shallow copy of the document with the identifier removed.
// Bodies coming from clients are passed through it so that "_id" can never be
// chosen or rewritten by a caller.
func (d Document) WithoutID() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// WithID returns a shallow copy of the document carrying the given identifier.
func (d Document) WithID(id string) Document {
	out := make(Document, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[IDField] = id
	return out
}

// DecodeDocument reads a single JSON object. Numbers are kept as json.Number
// so that stored values round-trip without float conversion.
func DecodeDocument(r io.Reader) (Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return Document(obj), nil
}

// UnmarshalDocument is DecodeDocument for an in-memory buffer.
func UnmarshalDocument(data []byte) (Document, error) {
	return DecodeDocument(bytes.NewReader(data))
}

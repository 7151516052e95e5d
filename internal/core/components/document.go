package components

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the textual scene format:
//
//	objects:
//	  - id: 1
//	    type: cube
//	    components:
//	      - kind: physics
//	        version: "1"
//	        properties:
//	          - name: position
//	            value: "(1,2,3)"
type Document struct {
	Objects []ObjectRecord `yaml:"objects" cbor:"objects"`
}

type ObjectRecord struct {
	// ID is a pointer so a missing id can be told apart from id 0.
	ID         *uint64           `yaml:"id" cbor:"id"`
	Type       string            `yaml:"type" cbor:"type"`
	Components []ComponentRecord `yaml:"components" cbor:"components"`
}

type ComponentRecord struct {
	Kind       string           `yaml:"kind" cbor:"kind"`
	Version    string           `yaml:"version,omitempty" cbor:"version,omitempty"`
	Properties []PropertyRecord `yaml:"properties" cbor:"properties"`
}

type PropertyRecord struct {
	Name  string  `yaml:"name" cbor:"name"`
	Value *string `yaml:"value" cbor:"value"`
}

// LoadDocument reads a YAML scene document. Records are not resolved
// against a schema; Builder.Decode does that.
func LoadDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &doc, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &doc, nil
}

func WriteDocument(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return enc.Close()
}

// Package treefile reads and writes syntax tree dumps produced by an M
// parser. A dump is a flat node list in JSON, YAML or CBOR; JSON input is
// checked against an embedded schema before it is decoded.
package treefile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/jward/mlens/internal/ast"
)

// Version is the only dump version this package reads and writes.
const Version = 1

// Document is one dumped tree.
type Document struct {
	Version int          `json:"version" yaml:"version" cbor:"version"`
	URI     string       `json:"uri" yaml:"uri" cbor:"uri"`
	Nodes   []NodeRecord `json:"nodes" yaml:"nodes" cbor:"nodes"`
}

// NodeRecord is one node of a dump. Parent and Attribute are nil for the
// root. Context nodes carry at most a start position.
type NodeRecord struct {
	ID          int           `json:"id" yaml:"id" cbor:"id"`
	Kind        string        `json:"kind" yaml:"kind" cbor:"kind"`
	Context     bool          `json:"context,omitempty" yaml:"context,omitempty" cbor:"context,omitempty"`
	Parent      *int          `json:"parent,omitempty" yaml:"parent,omitempty" cbor:"parent,omitempty"`
	Attribute   *int          `json:"attribute,omitempty" yaml:"attribute,omitempty" cbor:"attribute,omitempty"`
	Literal     string        `json:"literal,omitempty" yaml:"literal,omitempty" cbor:"literal,omitempty"`
	LiteralKind string        `json:"literal_kind,omitempty" yaml:"literal_kind,omitempty" cbor:"literal_kind,omitempty"`
	Start       *ast.Position `json:"start,omitempty" yaml:"start,omitempty" cbor:"start,omitempty"`
	End         *ast.Position `json:"end,omitempty" yaml:"end,omitempty" cbor:"end,omitempty"`
}

// Format is a dump encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatYAML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	default:
		return FormatUnknown
	}
}

// IsDump reports whether path has a dump extension.
func IsDump(path string) bool {
	return FormatOf(path) != FormatUnknown
}

// ReadFile reads and decodes the dump at path.
func ReadFile(path string) (*Document, error) {
	format := FormatOf(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("read %s: unknown dump extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes doc in the format its extension names.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(FormatOf(path), doc)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Decode parses data. JSON is validated against the dump schema first.
func Decode(format Format, data []byte) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := validateJSON(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode: unsupported format %s", format)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("decode: unsupported dump version %d", doc.Version)
	}
	return &doc, nil
}

// Encode serializes doc.
func Encode(format Format, doc *Document) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatCBOR:
		return cbor.Marshal(doc)
	default:
		return nil, fmt.Errorf("encode: unsupported format %s", format)
	}
}

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	const url = "mlens://treefile.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
})

func validateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile dump schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid dump: %w", err)
	}
	return nil
}

// Hash returns the content hash of doc's tree. The URI is not part of it,
// and node order does not matter.
func Hash(doc *Document) (string, error) {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	data, err := mode.Marshal(struct {
		Version int          `cbor:"version"`
		Nodes   []NodeRecord `cbor:"nodes"`
	}{doc.Version, doc.SortedByID()})
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return fmt.Sprintf("blake2b:%x", blake2b.Sum256(data)), nil
}

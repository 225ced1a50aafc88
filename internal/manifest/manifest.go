package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// FileName is the manifest file inside a project directory.
const FileName = "package.json"

// Sections of the manifest touched while gating a project.
const (
	SectionScripts         = "scripts"
	SectionDependencies    = "dependencies"
	SectionDevDependencies = "devDependencies"
	SectionOverrides       = "overrides"
	SectionResolutions     = "resolutions"
	SectionEngines         = "engines"
	FieldPackageManager    = "packageManager"
)

const (
	manifestPermissionsConstant     = os.FileMode(0o644)
	pathSeparatorConstant           = "."
	indentationConstant             = "  "
	emptyObjectConstant             = "{}"
	readErrorTemplateConstant       = "read manifest %s: %w"
	invalidDocumentTemplateConstant = "manifest %s is not a JSON object"
	setErrorTemplateConstant        = "set %s in manifest %s: %w"
	writeErrorTemplateConstant      = "write manifest %s: %w"
)

var (
	// ErrInvalidDocument indicates the manifest is not a JSON object.
	ErrInvalidDocument = errors.New("manifest is not a JSON object")
	// ErrEmptyPath indicates a field path without components.
	ErrEmptyPath = errors.New("manifest field path is empty")

	prettyOptions = &pretty.Options{Width: -1, Prefix: "", Indent: indentationConstant, SortKeys: false}
)

// Manifest is an order-preserving package.json document.
type Manifest struct {
	path     string
	document []byte
}

// Load reads the manifest inside directory.
func Load(directory string) (*Manifest, error) {
	manifestPath := filepath.Join(directory, FileName)
	contents, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, fmt.Errorf(readErrorTemplateConstant, manifestPath, readError)
	}
	return Parse(manifestPath, contents)
}

// Parse builds a manifest bound to path from raw JSON contents.
func Parse(path string, contents []byte) (*Manifest, error) {
	if !gjson.ValidBytes(contents) || !gjson.ParseBytes(contents).IsObject() {
		return nil, fmt.Errorf(invalidDocumentTemplateConstant+": %w", path, ErrInvalidDocument)
	}
	document := make([]byte, len(contents))
	copy(document, contents)
	return &Manifest{path: path, document: document}, nil
}

// Path returns the file the manifest is saved to.
func (manifest *Manifest) Path() string {
	return manifest.path
}

// Bytes returns the formatted document.
func (manifest *Manifest) Bytes() []byte {
	return pretty.PrettyOptions(manifest.document, prettyOptions)
}

// Scripts returns the declared scripts.
func (manifest *Manifest) Scripts() map[string]string {
	return manifest.Section(SectionScripts)
}

// Section returns the string entries of a top-level object section.
func (manifest *Manifest) Section(section string) map[string]string {
	entries := map[string]string{}
	manifest.lookup(section).ForEach(func(key gjson.Result, value gjson.Result) bool {
		if value.Type == gjson.String {
			entries[key.String()] = value.String()
		}
		return true
	})
	return entries
}

// Entry returns a string value at the path and whether it is set and non-empty.
func (manifest *Manifest) Entry(components ...string) (string, bool) {
	result := manifest.lookup(components...)
	if !result.Exists() || result.Type != gjson.String || len(result.String()) == 0 {
		return "", false
	}
	return result.String(), true
}

// Set writes a string value at the path, creating intermediate objects.
func (manifest *Manifest) Set(value string, components ...string) error {
	if len(components) == 0 {
		return ErrEmptyPath
	}
	path := buildPath(components)
	updated, setError := sjson.SetBytes(manifest.document, path, value)
	if setError != nil {
		return fmt.Errorf(setErrorTemplateConstant, path, manifest.path, setError)
	}
	manifest.document = updated
	return nil
}

// EnsureObject creates an empty object at the path unless a value is already present.
func (manifest *Manifest) EnsureObject(components ...string) error {
	if len(components) == 0 {
		return ErrEmptyPath
	}
	if manifest.lookup(components...).IsObject() {
		return nil
	}
	path := buildPath(components)
	updated, setError := sjson.SetRawBytes(manifest.document, path, []byte(emptyObjectConstant))
	if setError != nil {
		return fmt.Errorf(setErrorTemplateConstant, path, manifest.path, setError)
	}
	manifest.document = updated
	return nil
}

// Merge writes every entry into the object at container, creating it when missing.
// Existing keys keep their position; new keys are appended.
func (manifest *Manifest) Merge(entries map[string]string, container ...string) error {
	if ensureError := manifest.EnsureObject(container...); ensureError != nil {
		return ensureError
	}
	for _, name := range sortedKeys(entries) {
		components := append(append([]string{}, container...), name)
		if setError := manifest.Set(entries[name], components...); setError != nil {
			return setError
		}
	}
	return nil
}

// Save writes the formatted document back to its path.
func (manifest *Manifest) Save() error {
	permissions := manifestPermissionsConstant
	if info, statError := os.Stat(manifest.path); statError == nil {
		permissions = info.Mode().Perm()
	}
	if writeError := os.WriteFile(manifest.path, manifest.Bytes(), permissions); writeError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, manifest.path, writeError)
	}
	return nil
}

func (manifest *Manifest) lookup(components ...string) gjson.Result {
	return gjson.GetBytes(manifest.document, buildPath(components))
}

func buildPath(components []string) string {
	escaped := make([]string, 0, len(components))
	for _, component := range components {
		escaped = append(escaped, escapePathComponent(component))
	}
	return strings.Join(escaped, pathSeparatorConstant)
}

// escapePathComponent escapes characters with path meaning in gjson and sjson.
func escapePathComponent(component string) string {
	var builder strings.Builder
	for _, character := range component {
		switch character {
		case '.', '*', '?', '|', '#', '@', '!', '\\':
			builder.WriteRune('\\')
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

func sortedKeys(entries map[string]string) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

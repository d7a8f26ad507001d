// Package props holds the string-keyed property tables that flow through template
// substitution, option validation and installation.
package props

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/magiconair/properties"
)

// Table maps property keys to values. Keys are unique and the last write wins.
type Table map[string]string

// Clone returns a shallow copy. A nil table clones to an empty one.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	maps.Copy(out, t)
	return out
}

// Get returns the value for key and whether it was present.
func (t Table) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Keys returns the keys in lexical order.
func (t Table) Keys() []string {
	return slices.Sorted(maps.Keys(t))
}

// Merge returns a new table holding every layer in order; later layers win.
func Merge(layers ...Table) Table {
	out := Table{}
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// LoadFile reads a Java-style .properties file. Values are returned raw:
// "${...}" tokens are left for the substitution engine.
func LoadFile(path string) (Table, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load properties %s: %w", path, err)
	}
	return Table(p.Map()), nil
}

// Parse reads .properties content from memory, without expansion.
func Parse(data []byte) (Table, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	if err := p.Load(data, properties.UTF8); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return Table(p.Map()), nil
}

// Encode renders the table in .properties syntax with sorted keys and no header,
// so equal tables always encode to identical bytes.
func (t Table) Encode() ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range t.Keys() {
		if _, _, err := p.Set(k, t[k]); err != nil {
			return nil, fmt.Errorf("failed to encode property %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the table and writes it to path.
func (t Table) WriteFile(path string, perm os.FileMode) error {
	data, err := t.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

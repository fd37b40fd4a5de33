package tir

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"trans/internal/types"
)

// FormatVersion is bumped whenever the encoded layout changes.
const FormatVersion uint16 = 1

type crateImage struct {
	Version uint16         `msgpack:"version"`
	Name    string         `msgpack:"name"`
	Types   types.Snapshot `msgpack:"types"`
	Fns     []*FnDef       `msgpack:"fns"`
	Traits  []*TraitDef    `msgpack:"traits"`
	Impls   []*ImplDef     `msgpack:"impls"`
}

// Encode writes the crate as msgpack.
func Encode(w io.Writer, c *Crate) error {
	img := crateImage{
		Version: FormatVersion,
		Name:    c.Name,
		Types:   c.Types.Snapshot(),
		Fns:     c.Fns,
		Traits:  c.Traits,
		Impls:   c.Impls,
	}
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&img); err != nil {
		return fmt.Errorf("encode crate %s: %w", c.Name, err)
	}
	return nil
}

// Decode reads a crate written by Encode and validates it.
func Decode(r io.Reader) (*Crate, error) {
	var img crateImage
	if err := msgpack.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode crate: %w", err)
	}
	if img.Version != FormatVersion {
		return nil, fmt.Errorf("decode crate: format version %d, want %d", img.Version, FormatVersion)
	}
	c := &Crate{
		Name:   img.Name,
		Types:  types.FromSnapshot(img.Types),
		Fns:    img.Fns,
		Traits: img.Traits,
		Impls:  img.Impls,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

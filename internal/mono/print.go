package mono

import (
	"fmt"
	"io"

	"trans/internal/source"
)

// DumpInstances writes every instance with its use sites.
func DumpInstances(w io.Writer, c *Cache, fs *source.FileSet) error {
	for _, inst := range c.Instances() {
		if _, err := fmt.Fprintf(w, "%s %s\n", inst.Key.Kind, inst.Symbol); err != nil {
			return err
		}
		for _, site := range c.Sites(inst.Key) {
			loc := site.Span.String()
			if fs != nil && !site.Span.IsDummy() {
				if f := fs.Get(site.Span.File); f != nil {
					start, _ := fs.Resolve(site.Span)
					loc = fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
				}
			}
			if _, err := fmt.Fprintf(w, "  used at %s in %s\n", loc, site.Caller); err != nil {
				return err
			}
		}
	}
	return nil
}

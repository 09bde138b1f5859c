// Package crosswalk renders item metadata in the exported formats.
package crosswalk

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

// Disseminator writes one metadata format for an item.
type Disseminator interface {
	Disseminate(ctx context.Context, item *repository.Item, w io.Writer) error
}

// DisseminatorFunc adapts a function to Disseminator.
type DisseminatorFunc func(ctx context.Context, item *repository.Item, w io.Writer) error

func (f DisseminatorFunc) Disseminate(ctx context.Context, item *repository.Item, w io.Writer) error {
	return f(ctx, item, w)
}

// Registry maps format prefixes to disseminators.
type Registry struct {
	formats map[string]Disseminator
}

// NewRegistry returns a registry with the built-in oai_dc and dim crosswalks.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Disseminator)}
	r.Register("oai_dc", DisseminatorFunc(OAIDC))
	r.Register("dim", DisseminatorFunc(DIM))
	return r
}

func (r *Registry) Register(prefix string, d Disseminator) {
	r.formats[prefix] = d
}

// Supports reports whether prefix has a disseminator.
func (r *Registry) Supports(prefix string) bool {
	_, ok := r.formats[prefix]
	return ok
}

// Prefixes lists the registered formats, sorted.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.formats))
	for p := range r.formats {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Render returns the complete metadata document for item in format prefix.
func (r *Registry) Render(ctx context.Context, prefix string, item *repository.Item) ([]byte, error) {
	d, ok := r.formats[prefix]
	if !ok {
		return nil, fmt.Errorf("unsupported metadata format %q", prefix)
	}
	var buf bytes.Buffer
	if err := d.Disseminate(ctx, item, &buf); err != nil {
		return nil, fmt.Errorf("disseminate %s for %s: %w", prefix, item.Handle, err)
	}
	return buf.Bytes(), nil
}

// encoder writes prefixed elements literally; names carry their prefix.
type encoder struct {
	enc *xml.Encoder
	err error
}

func newEncoder(w io.Writer) *encoder {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &encoder{err: err}
	}
	e := xml.NewEncoder(w)
	e.Indent("", "  ")
	return &encoder{enc: e}
}

func (e *encoder) start(name string, attrs ...xml.Attr) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (e *encoder) end(name string) {
	if e.err != nil {
		return
	}
	e.err = e.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (e *encoder) text(name, value string, attrs ...xml.Attr) {
	e.start(name, attrs...)
	if e.err == nil {
		e.err = e.enc.EncodeToken(xml.CharData(value))
	}
	e.end(name)
}

func (e *encoder) close() error {
	if e.err != nil {
		return e.err
	}
	return e.enc.Flush()
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

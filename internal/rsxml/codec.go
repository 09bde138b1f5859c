package rsxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

// The rs: prefix is written literally on encode. On decode, element names
// are matched by local name so any prefix bound to the rs namespace works.

type xmlLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr,omitempty"`
}

type xmlMD struct {
	Capability string `xml:"capability,attr,omitempty"`
	At         string `xml:"at,attr,omitempty"`
	Completed  string `xml:"completed,attr,omitempty"`
	From       string `xml:"from,attr,omitempty"`
	Until      string `xml:"until,attr,omitempty"`
	Hash       string `xml:"hash,attr,omitempty"`
	Length     string `xml:"length,attr,omitempty"`
	Type       string `xml:"type,attr,omitempty"`
	Change     string `xml:"change,attr,omitempty"`
	Path       string `xml:"path,attr,omitempty"`
}

type xmlEntryOut struct {
	Loc        string    `xml:"loc"`
	LastMod    string    `xml:"lastmod,omitempty"`
	ChangeFreq string    `xml:"changefreq,omitempty"`
	MD         *xmlMD    `xml:"rs:md,omitempty"`
	Links      []xmlLink `xml:"rs:ln"`
}

type xmlDocOut struct {
	XMLName xml.Name
	XMLNS   string        `xml:"xmlns,attr"`
	XMLNSRS string        `xml:"xmlns:rs,attr"`
	MD      xmlMD         `xml:"rs:md"`
	Links   []xmlLink     `xml:"rs:ln"`
	URLs    []xmlEntryOut `xml:"url"`
	Maps    []xmlEntryOut `xml:"sitemap"`
}

type xmlEntryIn struct {
	Loc        string    `xml:"loc"`
	LastMod    string    `xml:"lastmod"`
	ChangeFreq string    `xml:"changefreq"`
	MD         *xmlMD    `xml:"md"`
	Links      []xmlLink `xml:"ln"`
}

type xmlDocIn struct {
	XMLName xml.Name
	MD      xmlMD        `xml:"md"`
	Links   []xmlLink    `xml:"ln"`
	URLs    []xmlEntryIn `xml:"url"`
	Maps    []xmlEntryIn `xml:"sitemap"`
}

// Encode writes d as an indented XML document with declaration.
func Encode(w io.Writer, d *Document) error {
	out := xmlDocOut{
		XMLName: xml.Name{Local: "urlset"},
		XMLNS:   SitemapNamespace,
		XMLNSRS: RSNamespace,
		MD:      mdOut(&d.Metadata),
		Links:   linksOut(d.Links),
	}
	entries := make([]xmlEntryOut, 0, len(d.Entries))
	for i := range d.Entries {
		e := &d.Entries[i]
		xe := xmlEntryOut{
			Loc:        e.Loc,
			ChangeFreq: e.ChangeFreq,
			Links:      linksOut(e.Links),
		}
		if !e.LastMod.IsZero() {
			xe.LastMod = FormatTime(e.LastMod)
		}
		if e.Metadata != nil {
			md := mdOut(e.Metadata)
			xe.MD = &md
		}
		entries = append(entries, xe)
	}
	if d.Index {
		out.XMLName.Local = "sitemapindex"
		out.Maps = entries
	} else {
		out.URLs = entries
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Decode parses a urlset or sitemapindex document.
func Decode(r io.Reader) (*Document, error) {
	var in xmlDocIn
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return nil, err
	}
	d := &Document{}
	var entries []xmlEntryIn
	switch in.XMLName.Local {
	case "urlset":
		entries = in.URLs
	case "sitemapindex":
		d.Index = true
		entries = in.Maps
	default:
		return nil, fmt.Errorf("unexpected root element %q", in.XMLName.Local)
	}

	md, err := mdIn(&in.MD)
	if err != nil {
		return nil, err
	}
	d.Metadata = md
	d.Links = linksIn(in.Links)

	for i := range entries {
		xe := &entries[i]
		e := Entry{
			Loc:        xe.Loc,
			ChangeFreq: xe.ChangeFreq,
			Links:      linksIn(xe.Links),
		}
		if xe.LastMod != "" {
			if e.LastMod, err = ParseTime(xe.LastMod); err != nil {
				return nil, fmt.Errorf("entry %q: lastmod: %w", xe.Loc, err)
			}
		}
		if xe.MD != nil {
			emd, err := mdIn(xe.MD)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", xe.Loc, err)
			}
			e.Metadata = &emd
		}
		d.Entries = append(d.Entries, e)
	}
	return d, nil
}

func mdOut(m *Metadata) xmlMD {
	out := xmlMD{
		Capability: string(m.Capability),
		Hash:       m.Hash,
		Type:       m.Type,
		Change:     string(m.Change),
		Path:       m.Path,
	}
	for _, p := range []struct {
		dst *string
		t   time.Time
	}{
		{&out.At, m.At},
		{&out.Completed, m.Completed},
		{&out.From, m.From},
		{&out.Until, m.Until},
	} {
		if !p.t.IsZero() {
			*p.dst = FormatTime(p.t)
		}
	}
	if m.Length != nil {
		out.Length = strconv.FormatInt(*m.Length, 10)
	}
	return out
}

func mdIn(x *xmlMD) (Metadata, error) {
	m := Metadata{
		Capability: Capability(x.Capability),
		Hash:       x.Hash,
		Type:       x.Type,
		Change:     Change(x.Change),
		Path:       x.Path,
	}
	for _, p := range []struct {
		name string
		src  string
		dst  *time.Time
	}{
		{"at", x.At, &m.At},
		{"completed", x.Completed, &m.Completed},
		{"from", x.From, &m.From},
		{"until", x.Until, &m.Until},
	} {
		if p.src == "" {
			continue
		}
		t, err := ParseTime(p.src)
		if err != nil {
			return Metadata{}, fmt.Errorf("md %s: %w", p.name, err)
		}
		*p.dst = t
	}
	if x.Length != "" {
		n, err := strconv.ParseInt(x.Length, 10, 64)
		if err != nil {
			return Metadata{}, fmt.Errorf("md length: %w", err)
		}
		m.Length = &n
	}
	return m, nil
}

func linksOut(links []Link) []xmlLink {
	if len(links) == 0 {
		return nil
	}
	out := make([]xmlLink, len(links))
	for i, l := range links {
		out[i] = xmlLink(l)
	}
	return out
}

func linksIn(links []xmlLink) []Link {
	if len(links) == 0 {
		return nil
	}
	out := make([]Link, len(links))
	for i, l := range links {
		out[i] = Link(l)
	}
	return out
}

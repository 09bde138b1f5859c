package crosswalk

import (
	"context"
	"io"

	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

const (
	oaiDCNamespace = "http://www.openarchives.org/OAI/2.0/oai_dc/"
	dcNamespace    = "http://purl.org/dc/elements/1.1/"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	oaiDCSchema    = "http://www.openarchives.org/OAI/2.0/oai_dc.xsd"
)

var dcElements = map[string]struct{}{
	"title": {}, "creator": {}, "subject": {}, "description": {}, "publisher": {},
	"contributor": {}, "date": {}, "type": {}, "format": {}, "identifier": {},
	"source": {}, "language": {}, "relation": {}, "coverage": {}, "rights": {},
}

// OAIDC renders unqualified Dublin Core. Qualifiers are dropped, except that
// dc.contributor.author becomes dc:creator. Non-dc schemas are ignored.
func OAIDC(ctx context.Context, item *repository.Item, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := newEncoder(w)
	e.start("oai_dc:dc",
		attr("xmlns:oai_dc", oaiDCNamespace),
		attr("xmlns:dc", dcNamespace),
		attr("xmlns:xsi", xsiNamespace),
		attr("xsi:schemaLocation", oaiDCNamespace+" "+oaiDCSchema),
	)
	for _, m := range item.Metadata {
		if m.Schema != "dc" {
			continue
		}
		element := m.Element
		if element == "contributor" && m.Qualifier == "author" {
			element = "creator"
		}
		if _, ok := dcElements[element]; !ok {
			continue
		}
		e.text("dc:"+element, m.Value)
	}
	e.end("oai_dc:dc")
	return e.close()
}

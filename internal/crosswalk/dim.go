package crosswalk

import (
	"context"
	"encoding/xml"
	"io"

	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

const dimNamespace = "http://www.dspace.org/xmlns/dspace/dim"

// DIM renders every metadata value with its schema, element, qualifier and language.
func DIM(ctx context.Context, item *repository.Item, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := newEncoder(w)
	e.start("dim:dim", attr("xmlns:dim", dimNamespace))
	for _, m := range item.Metadata {
		attrs := []xml.Attr{attr("mdschema", m.Schema), attr("element", m.Element)}
		if m.Qualifier != "" {
			attrs = append(attrs, attr("qualifier", m.Qualifier))
		}
		if m.Language != "" {
			attrs = append(attrs, attr("lang", m.Language))
		}
		e.text("dim:field", m.Value, attrs...)
	}
	e.end("dim:dim")
	return e.close()
}

package crosswalk

import (
	"context"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

func item() *repository.Item {
	return &repository.Item{
		Handle: "123/45",
		Metadata: []repository.MetadataValue{
			{Schema: "dc", Element: "title", Value: "Tides & Currents", Language: "en"},
			{Schema: "dc", Element: "contributor", Qualifier: "author", Value: "Doe, Jane"},
			{Schema: "dc", Element: "date", Qualifier: "issued", Value: "2020"},
			{Schema: "dc", Element: "description", Qualifier: "provenance", Value: "Submitted"},
			{Schema: "local", Element: "note", Value: "internal"},
		},
	}
}

func TestOAIDC(t *testing.T) {
	out, err := NewRegistry().Render(t.Context(), "oai_dc", item())
	require.NoError(t, err)

	var doc struct {
		XMLName     xml.Name
		Titles      []string `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators    []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
		Dates       []string `xml:"http://purl.org/dc/elements/1.1/ date"`
		Description []string `xml:"http://purl.org/dc/elements/1.1/ description"`
	}
	require.NoError(t, xml.Unmarshal(out, &doc))

	assert.Equal(t, oaiDCNamespace, doc.XMLName.Space)
	assert.Equal(t, "dc", doc.XMLName.Local)
	assert.Equal(t, []string{"Tides & Currents"}, doc.Titles)
	assert.Equal(t, []string{"Doe, Jane"}, doc.Creators)
	assert.Equal(t, []string{"2020"}, doc.Dates)
	assert.Equal(t, []string{"Submitted"}, doc.Description)
	assert.NotContains(t, string(out), "internal")
}

func TestDIM(t *testing.T) {
	out, err := NewRegistry().Render(t.Context(), "dim", item())
	require.NoError(t, err)

	var doc struct {
		Fields []struct {
			Schema    string `xml:"mdschema,attr"`
			Element   string `xml:"element,attr"`
			Qualifier string `xml:"qualifier,attr"`
			Lang      string `xml:"lang,attr"`
			Value     string `xml:",chardata"`
		} `xml:"field"`
	}
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Fields, 5)
	assert.Equal(t, "en", doc.Fields[0].Lang)
	assert.Equal(t, "author", doc.Fields[1].Qualifier)
	assert.Equal(t, "local", doc.Fields[4].Schema)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"dim", "oai_dc"}, r.Prefixes())
	assert.False(t, r.Supports("marcxml"))

	_, err := r.Render(t.Context(), "marcxml", item())
	assert.Error(t, err)

	r.Register("marcxml", DisseminatorFunc(func(_ context.Context, it *repository.Item, w io.Writer) error {
		_, err := io.WriteString(w, "<record>"+it.Handle+"</record>")
		return err
	}))
	out, err := r.Render(t.Context(), "marcxml", item())
	require.NoError(t, err)
	assert.Equal(t, "<record>123/45</record>", string(out))
}

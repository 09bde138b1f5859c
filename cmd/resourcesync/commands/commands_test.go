package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/resourcesync/internal/assetstore"
	"git.home.luguber.info/inful/resourcesync/internal/repository"
)

type cliRun struct {
	code   int
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func execute(t *testing.T, args ...string) (cliRun, error) {
	t.Helper()
	out := cliRun{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}

	var cli CLI
	opts := append(Options(), kong.Writers(out.stdout, out.stderr), kong.Exit(func(int) {}))
	parser, err := kong.New(&cli, opts...)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return out, err
	}
	out.code = cli.Execute(t.Context(), kctx)
	return out, nil
}

// writeFixture creates a repository database, an assetstore and a YAML
// configuration pointing at them. It returns the config path and output dir.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dbPath := filepath.Join(root, "repository.db")
	assetsDir := filepath.Join(root, "assetstore")
	outDir := filepath.Join(root, "out")

	const key = "1234567890"
	keyPath := filepath.Join(assetsDir, filepath.FromSlash(assetstore.KeyPath(key)))
	require.NoError(t, os.MkdirAll(filepath.Dir(keyPath), 0o755))
	require.NoError(t, os.WriteFile(keyPath, []byte("%PDF-1.4"), 0o644))

	repo, err := repository.NewSQLite(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(t.Context(), &repository.Item{
		ID:           1,
		Handle:       "123/45",
		LastModified: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Bundles: []repository.Bundle{{Name: "ORIGINAL", Bitstreams: []repository.Bitstream{
			{ID: 10, SequenceID: 1, Name: "paper.pdf", MIMEType: "application/pdf", Size: 8, StorageKey: key},
		}}},
		Metadata: []repository.MetadataValue{{Schema: "dc", Element: "title", Value: "A paper"}},
	}))
	require.NoError(t, repo.Close())

	cfgPath := filepath.Join(root, "resourcesync.yaml")
	cfg := "base-url: https://example.org/sync\n" +
		"resourcesync:\n" +
		"  dir: " + outDir + "\n" +
		"repository:\n" +
		"  url: https://repo.example.org\n" +
		"  db: " + dbPath + "\n" +
		"assetstore:\n" +
		"  dir: " + assetsDir + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, outDir
}

func TestExecute_NoModePrintsUsage(t *testing.T) {
	run, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, 0, run.code)
	assert.Contains(t, run.stdout.String(), "Usage: resourcesync")
}

func TestParse_ModesAreExclusive(t *testing.T) {
	_, err := execute(t, "-i", "-u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't be used together")
}

func TestExecute_MissingConfig(t *testing.T) {
	run, err := execute(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "-u")
	require.NoError(t, err)
	assert.Equal(t, 7, run.code)
	assert.Contains(t, run.stderr.String(), "configuration file not found")
}

func TestExecute_UpdateBeforeInit(t *testing.T) {
	cfgPath, _ := writeFixture(t)

	run, err := execute(t, "-c", cfgPath, "--update")
	require.NoError(t, err)
	assert.Equal(t, 3, run.code)
	assert.Contains(t, run.stderr.String(), "run init first")
}

func TestExecute_Init(t *testing.T) {
	cfgPath, outDir := writeFixture(t)

	run, err := execute(t, "-c", cfgPath, "-i")
	require.NoError(t, err)
	require.Equal(t, 0, run.code, run.stderr.String())

	for _, name := range []string{"resourcesync.xml", "capabilitylist.xml", "resourcelist.xml"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	lists, err := filepath.Glob(filepath.Join(outDir, "changelist_*.xml"))
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	data, err := os.ReadFile(filepath.Join(outDir, "resourcelist.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "123/45")
	assert.Contains(t, string(data), "paper.pdf")
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/protodb/catalog"
	"github.com/c360studio/protodb/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
Protocols:
  MyDatabase:
    SpeakerDiarization:
      MyProtocol:
        train:
          uri: train.lst
          annotated: train.uem
        test:
          uri: test.lst
    Collection:
      All:
        uri: train.lst
  X:
    SpeakerDiarization:
      Everything:
        test:
          MyDatabase.SpeakerDiarization.MyProtocol: [train, test]
`

type cliFixture struct {
	dir     string
	catalog string
	finder  string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvCatalogPath, "")
	t.Setenv(config.EnvFinderPath, "")
	t.Cleanup(catalog.ResetGlobal)

	dir := t.TempDir()
	t.Chdir(dir)

	f := &cliFixture{
		dir:     dir,
		catalog: filepath.Join(dir, "database.yml"),
		finder:  filepath.Join(dir, "db.yml"),
	}
	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write(f.catalog, testCatalog)
	write(f.finder, dir+"/wav/{database}/{uri}.wav\n")
	write(filepath.Join(dir, "train.lst"), "file1\nfile2\n")
	write(filepath.Join(dir, "test.lst"), "file3\n")
	write(filepath.Join(dir, "train.uem"), "file1 1 0.0 10.0\nfile2 1 5.0 7.5\n")
	write(filepath.Join(dir, "wav", "MyDatabase", "file1.wav"), "")
	return f
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := rootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "protodb version "+Version)
}

func TestDatabasesCommand(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "databases", "-c", f.catalog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "MyDatabase"))
	assert.Contains(t, lines[0], "Collection, SpeakerDiarization")
	assert.True(t, strings.HasPrefix(lines[1], "X"))

	out, _, err = execute(t, "databases", "-c", f.catalog, "--task", "Collection")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestCatalogAutoDetected(t *testing.T) {
	newCLIFixture(t)

	out, _, err := execute(t, "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Collection")
	assert.Contains(t, out, "MyDatabase, X")
}

func TestProtocolsCommand(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "protocols", "MyDatabase", "-c", f.catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "SpeakerDiarization.MyProtocol")
	assert.Contains(t, out, "SpeakerDiarizationProtocol")
	assert.Contains(t, out, "train, test")
	assert.Contains(t, out, "Collection.All")

	_, _, err = execute(t, "protocols", "Nope", "-c", f.catalog)
	assert.ErrorIs(t, err, catalog.ErrDatabaseNotFound)
}

func TestIterCommand(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "iter", "MyDatabase.SpeakerDiarization.MyProtocol", "train",
		"-c", f.catalog, "--field", "subset", "--annotated")
	require.NoError(t, err)
	assert.Equal(t, "file1\ttrain\t10.000\nfile2\ttrain\t2.500\n", out)

	out, _, err = execute(t, "iter", "X.SpeakerDiarization.Everything", "test_iter",
		"-c", f.catalog, "--unique")
	require.NoError(t, err)
	assert.Equal(t, "MyDatabase/file1\nMyDatabase/file2\nMyDatabase/file3\n", out)
}

func TestIterCommand_Audio(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "iter", "MyDatabase.Collection.All", "files",
		"-c", f.catalog, "--finder-config", f.finder, "--audio", "--field", "audio")
	require.Error(t, err, "file2 has no audio")
	assert.Equal(t, "file1\t"+filepath.Join(f.dir, "wav", "MyDatabase", "file1.wav")+"\n", out)
}

func TestIterCommand_Errors(t *testing.T) {
	f := newCLIFixture(t)

	_, _, err := execute(t, "iter", "MyDatabase.SpeakerDiarization.MyProtocol", "validation", "-c", f.catalog)
	assert.ErrorIs(t, err, catalog.ErrUnsupportedSubset)

	_, _, err = execute(t, "iter", "MyDatabase.SpeakerDiarization.MyProtocol", "development", "-c", f.catalog)
	assert.Error(t, err)

	_, _, err = execute(t, "iter", "MyDatabase.SpeakerDiarization", "train", "-c", f.catalog)
	assert.ErrorIs(t, err, catalog.ErrInvalidProtocolName)
}

func TestFindCommand(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "find", "file1", "-d", "MyDatabase", "--finder-config", f.finder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "wav", "MyDatabase", "file1.wav")+"\n", out)

	_, _, err = execute(t, "find", "file9", "-d", "MyDatabase", "--finder-config", f.finder)
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	newCLIFixture(t)

	out, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, _, err = execute(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "log.level")
	assert.Contains(t, out, "debug")
}

func TestInvalidLogLevel(t *testing.T) {
	f := newCLIFixture(t)

	_, _, err := execute(t, "databases", "-c", f.catalog, "--log-level", "loud")
	assert.Error(t, err)
}

func TestLogLevelIsCaseInsensitive(t *testing.T) {
	f := newCLIFixture(t)

	out, _, err := execute(t, "config", "show", "-c", f.catalog, "--log-level", "WARN")
	require.NoError(t, err)
	assert.Contains(t, out, "warn")
}

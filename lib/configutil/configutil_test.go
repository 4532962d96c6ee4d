package configutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string            `json:"name"`
	Count int               `json:"count"`
	Tags  map[string]string `json:"tags"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](name)
	require.True(t, errors.Is(err, fs.ErrNotExist))

	write(t, name, `{
		// comments are allowed
		name: "default",
		count: 3,
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "default", Count: 3}, config)

	write(t, filepath.Join(dir, "config.local.json5"), `{ count: 5 }`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "default", Count: 5}, config)

	write(t, name, `{ name: `)
	_, err = ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, errors.Is(err, fs.ErrNotExist))
}

func TestLocalName(t *testing.T) {
	testCases := []struct {
		name   string
		expect string
	}{
		{name: "config.json5", expect: "config.local.json5"},
		{name: "/etc/openbanking/config.json5", expect: "/etc/openbanking/config.local.json5"},
		{name: "a.b.json", expect: "a.b.local.json"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, LocalName(test.name))
	}
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	err := os.MkdirAll(nested, 0777)
	if err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(root, "recursive-test.json5"), `{ name: "found" }`)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	err = os.Chdir(nested)
	if err != nil {
		t.Fatal(err)
	}

	config, err := ReadRecursively[testConfig]("recursive-test.json5")
	require.NoError(t, err)
	require.Equal(t, "found", config.Name)

	_, err = ReadRecursively[testConfig]("does-not-exist-anywhere.json5")
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestWithDefaults(t *testing.T) {
	out, err := WithDefaults(
		testConfig{Name: "default", Count: 2},
		testConfig{Count: 7},
	)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "default", Count: 7}, out)
}

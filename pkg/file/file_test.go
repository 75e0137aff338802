package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/benmeehan/location-engine/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFileRaw(t *testing.T) {
	fs := file.NewFileService()

	data, err := fs.ReadFileRaw(writeFile(t, "ca.crt", "certificate"))

	require.NoError(t, err)
	assert.Equal(t, []byte("certificate"), data)

	_, err = fs.ReadFileRaw(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadJsonFile(t *testing.T) {
	var v struct {
		ID string `json:"device_id"`
	}

	err := file.NewFileService().ReadJsonFile(writeFile(t, "device.json", `{"device_id":"abc"}`), &v)

	require.NoError(t, err)
	assert.Equal(t, "abc", v.ID)
}

func TestReadYamlFile_RejectsUnknownFields(t *testing.T) {
	var v struct {
		Topic string `yaml:"topic"`
	}
	fs := file.NewFileService()

	require.NoError(t, fs.ReadYamlFile(writeFile(t, "ok.yaml", "topic: devices/location\n"), &v))
	assert.Equal(t, "devices/location", v.Topic)

	assert.Error(t, fs.ReadYamlFile(writeFile(t, "bad.yaml", "topik: devices/location\n"), &v))
}

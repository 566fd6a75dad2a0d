package jbproducts

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Volodya262/jb-products-info/model"
)

func makeTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for name, contents := range files {
		err := tarWriter.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(contents)),
		})
		assert.NoError(t, err)
		_, err = tarWriter.Write([]byte(contents))
		assert.NoError(t, err)
	}

	assert.NoError(t, tarWriter.Close())
	assert.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

func TestFindFileContentsInTarGz(t *testing.T) {
	build := model.NewBuildInProcess("GO", "231.100.50")
	archive := makeTarGz(t, map[string]string{
		"GoLand-2023.1/bin/goland.sh":          "#!/bin/sh",
		"GoLand-2023.1/product-info.json":      `{"name": "GoLand", "buildNumber": "231.100.50"}`,
		"GoLand-2023.1/lib/product-info.jsonx": "not it",
	})

	contents, err := findFileContentsInTarGz(bytes.NewReader(archive), "product-info.json", build)
	assert.NoError(t, err)
	assert.Equal(t, `{"name": "GoLand", "buildNumber": "231.100.50"}`, contents)
}

func TestFindFileContentsInTarGz_NotFound(t *testing.T) {
	build := model.NewBuildInProcess("GO", "231.100.50")
	archive := makeTarGz(t, map[string]string{
		"GoLand-2023.1/bin/goland.sh": "#!/bin/sh",
	})

	_, err := findFileContentsInTarGz(bytes.NewReader(archive), "product-info.json", build)
	var processingErr *model.ProcessingError
	assert.ErrorAs(t, err, &processingErr)
	assert.Equal(t, model.ReasonTargetFileNotFound, processingErr.Reason)
	assert.False(t, processingErr.ShouldRetry())
}

func TestFindFileContentsInTarGz_CorruptArchive(t *testing.T) {
	build := model.NewBuildInProcess("GO", "231.100.50")

	_, err := findFileContentsInTarGz(bytes.NewReader([]byte("not a gzip stream")), "product-info.json", build)
	var processingErr *model.ProcessingError
	assert.ErrorAs(t, err, &processingErr)
	assert.Equal(t, model.ReasonIOError, processingErr.Reason)
	assert.True(t, processingErr.ShouldRetry())
}

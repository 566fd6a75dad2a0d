package jbproducts

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"github.com/Volodya262/jb-products-info/model"
)

// findFileContentsInTarGz stream-scans a gzip-compressed tar archive for the
// first regular entry whose base filename matches targetFileName and returns
// its full decoded contents. The scan stops at the first match; distributions
// carry the artifact once, near the archive root.
func findFileContentsInTarGz(archive io.Reader, targetFileName string, build *model.BuildInProcess) (string, error) {
	gzipReader, err := gzip.NewReader(archive)
	if err != nil {
		return "", &model.ProcessingError{Reason: model.ReasonIOError, Message: err.Error()}
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return "", model.NewTargetFileNotFoundError(targetFileName, build)
		}
		if err != nil {
			return "", &model.ProcessingError{Reason: model.ReasonIOError, Message: err.Error()}
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		if path.Base(header.Name) != targetFileName {
			continue
		}

		var contents strings.Builder
		if _, err := io.Copy(&contents, tarReader); err != nil {
			return "", &model.ProcessingError{Reason: model.ReasonIOError, Message: err.Error()}
		}
		return contents.String(), nil
	}
}

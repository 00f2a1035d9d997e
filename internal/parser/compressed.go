package parser

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

// openInput opens path for reading, wrapping it in the matching
// decompressor when a compression extension is present. Large container
// exports are routinely shipped compressed.
func openInput(path, compression string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gtmerr.ErrParse, path, err)
	}

	switch compression {
	case "":
		return f, nil
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: invalid gzip stream: %v", gtmerr.ErrParse, path, err)
		}
		return &decompressReader{r: zr, closers: []io.Closer{zr, f}}, nil
	case ".bz2":
		br, err := bzip2.NewReader(f, nil)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: invalid bzip2 stream: %v", gtmerr.ErrParse, path, err)
		}
		return &decompressReader{r: br, closers: []io.Closer{br, f}}, nil
	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: invalid xz stream: %v", gtmerr.ErrParse, path, err)
		}
		return &decompressReader{r: xr, closers: []io.Closer{f}}, nil
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", gtmerr.ErrUnsupportedFormat, path)
	}
}

// decompressReader closes the decompressor and the underlying file.
type decompressReader struct {
	r       io.Reader
	closers []io.Closer
}

func (d *decompressReader) Read(p []byte) (int, error) { return d.r.Read(p) }

func (d *decompressReader) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

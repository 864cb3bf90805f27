package pipeline

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/zzenonn/fecvault/internal/errors"
)

// compress runs data through a streaming deflate encoder at level.
func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, errors.NewBackendError("flate", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.NewBackendError("flate", err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewBackendError("flate", err)
	}
	return buf.Bytes(), nil
}

// decompress inverts compress.
func decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewBackendError("flate", err)
	}
	return out, nil
}

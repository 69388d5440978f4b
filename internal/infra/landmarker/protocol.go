package landmarker

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

// maxFrameSize bounds a single response read from the worker.
const maxFrameSize = 64 << 20

// response is any message sent back by the worker: the start-up handshake or a
// per-frame result.
type response struct {
	Ready bool          `json:"ready"`
	Error string        `json:"error,omitempty"`
	Faces []entity.Face `json:"faces"`
}

// writeFrame sends payload as [uint32 BE length][payload].
func writeFrame(w io.Writer, payload []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("response of %d bytes exceeds limit", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// encodeImage lays out a request as [uint32 width][uint32 height][RGB bytes].
func encodeImage(img entity.RGBImage) ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height*3 {
		return nil, fmt.Errorf("image has %d bytes, want %d for %dx%d RGB",
			len(img.Pix), img.Width*img.Height*3, img.Width, img.Height)
	}

	buf := make([]byte, 8+len(img.Pix))
	binary.BigEndian.PutUint32(buf[0:4], uint32(img.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(img.Height))
	copy(buf[8:], img.Pix)
	return buf, nil
}

func decodeResponse(body []byte) (*response, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed worker response: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return &resp, nil
}

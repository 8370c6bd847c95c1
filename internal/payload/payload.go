// Package payload implements the outbound payload source and inbound sink
// for PUBLISH (spec component C6).
package payload

import (
	"io"
	"os"

	"github.com/mqtt-tools/go-mqtt-cli/internal/mqtterr"
)

// DefaultMaxTextSize is spec §6's "max text message" default: 1 KiB.
const DefaultMaxTextSize = 1024

// DefaultMaxFileSize is spec §6's "max file message" default: 4 MiB.
const DefaultMaxFileSize = 4 * 1024 * 1024

// DefaultChunkSize is spec §6's "max chunk" default: 100 KiB.
const DefaultChunkSize = 100 * 1024

// ProgressFunc reports streaming progress while a file payload is read,
// grounded on the teacher's internal/platform/instagram/progress.go
// progressWriter (read, total int64) callback shape.
type ProgressFunc func(read, total int64)

// progressReader wraps an io.Reader, invoking onProgress after every Read,
// adapted from the teacher's progressWriter.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	pr.read += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.read, pr.total)
	}
	return n, err
}

// LoadText validates a text payload against the configured ceiling
// (spec §4.6: "the payload is a byte slice <= 1 KiB by default").
func LoadText(msg []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxTextSize
	}
	if len(msg) > maxSize {
		return nil, mqtterr.New(mqtterr.KindPayloadTooLarge, "payload.LoadText")
	}
	return msg, nil
}

// LoadFile opens path in binary mode, determines its length with Stat,
// and reads the entire content into a buffer (spec §4.6). Fails
// with FileOpenError if the file cannot be opened and PayloadTooLarge if
// its length exceeds maxSize.
func LoadFile(path string, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFile", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFile", err)
	}
	if info.Size() > int64(maxSize) {
		return nil, mqtterr.New(mqtterr.KindPayloadTooLarge, "payload.LoadFile")
	}

	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFile", err)
	}
	return buf, nil
}

// LoadFileWithProgress behaves like LoadFile but reports progress via
// onProgress as the file is read; the publish command uses it to size its
// chunked-publish progress bar (spec §4.4.3; SPEC_FULL.md §4).
func LoadFileWithProgress(path string, maxSize int, onProgress ProgressFunc) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFileWithProgress", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFileWithProgress", err)
	}
	if info.Size() > int64(maxSize) {
		return nil, mqtterr.New(mqtterr.KindPayloadTooLarge, "payload.LoadFileWithProgress")
	}

	pr := &progressReader{r: f, total: info.Size(), onProgress: onProgress}
	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(pr, buf); err != nil {
		return nil, mqtterr.Wrap(mqtterr.KindFileOpenError, "payload.LoadFileWithProgress", err)
	}
	return buf, nil
}

// Chunks splits payload into chunks no larger than size (spec §4.4.3:
// "chunk API caps each chunk at 100 KiB"). Oversize explicit chunk sizes
// are rejected by the caller (engine.PublishChunk checks PayloadTooLarge
// per-chunk, not here).
func Chunks(payload []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]byte
	for len(payload) > 0 {
		n := size
		if n > len(payload) {
			n = len(payload)
		}
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	if len(chunks) == 0 {
		chunks = append(chunks, payload)
	}
	return chunks
}

// Sink receives inbound PUBLISH payloads. The caller owns the buffer it is
// handed and must copy out what it needs before the next receive (spec §3
// "Incoming message").
type Sink interface {
	Deliver(topic string, msg []byte, qos byte) error
}

// FileSink writes inbound payloads whole to a file, matching spec §4.6:
// "if the message type is File, the caller writes the whole payload to
// disk."
type FileSink struct {
	Path string
}

func (s FileSink) Deliver(_ string, msg []byte, _ byte) error {
	return os.WriteFile(s.Path, msg, 0o644)
}

// TextSink writes the payload bytes to Out as text. msg is not modified and
// no terminating zero byte is written.
type TextSink struct {
	Out io.Writer
}

func (s TextSink) Deliver(topic string, msg []byte, qos byte) error {
	terminated := append(append([]byte{}, msg...), 0)
	_, err := s.Out.Write(terminated[:len(terminated)-1])
	return err
}

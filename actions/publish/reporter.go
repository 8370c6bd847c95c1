package publish

import (
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ChunkReporter drives a single mpb progress bar across a chunked file
// publish, adapted from the teacher's actions/stories/cli_reporter.go
// CLIReporter (there: Instagram story-upload segment progress; here:
// bytes-published-so-far against the file's total size).
type ChunkReporter struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	mu       sync.Mutex
}

// NewChunkReporter starts a bar sized to totalBytes.
func NewChunkReporter(totalBytes int64) *ChunkReporter {
	r := &ChunkReporter{progress: mpb.New(mpb.WithWidth(60))}
	r.bar = r.progress.AddBar(totalBytes,
		mpb.PrependDecorators(
			decor.Name("publishing ", decor.WCSyncSpaceR),
			decor.Counters(decor.SizeB1024(0), "% .2f / % .2f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncSpace),
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
		),
	)
	return r
}

// Advance reports that n more bytes of the file have been published.
func (r *ChunkReporter) Advance(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bar.IncrBy(n)
}

// Wait blocks until the bar has finished rendering.
func (r *ChunkReporter) Wait() {
	r.progress.Wait()
}

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/fwscan/internal/extract"
	"github.com/schollz/progressbar/v3"
)

// scanProgress shows a progress bar while the source tree is scanned.
type scanProgress struct {
	w         io.Writer
	bar       *progressbar.ProgressBar
	startTime time.Time
}

func newScanProgress(w io.Writer) *scanProgress {
	return &scanProgress{w: w}
}

func (p *scanProgress) OnScanStart(totalFiles int) {
	p.startTime = time.Now()
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("Scanning sources"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *scanProgress) OnFileScanned(fileName string) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *scanProgress) OnScanComplete(model *extract.Model) {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Fprintf(p.w, "✓ Scanned %s files: %s variables, %s issues (took %s)\n",
		formatNumber(len(model.Files)),
		formatNumber(len(model.Variables)),
		formatNumber(len(model.Issues)),
		formatDuration(time.Since(p.startTime)))
}

package fetch

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress counts completed requests on stderr. A nil Progress ignores updates
type Progress struct {
	Requests *progressbar.ProgressBar
}

func NewProgress(max int64) *Progress {
	requests := progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(5),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetVisibility(true),
		progressbar.OptionSpinnerType(14),
	)
	return &Progress{Requests: requests}
}

func (p *Progress) Incr(n int64) {
	if p == nil {
		return
	}
	p.Requests.Add64(n)
}

// Finish completes the bar even when the run stopped early
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.Requests.Finish()
}

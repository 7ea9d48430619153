package worker

// Stage weights for blended job progress: probing takes a fixed small
// share, the renditions split most of the remainder evenly, and a short
// tail covers manifest assembly, thumbnailing and publishing. Callers see
// smooth monotone progress even though individual renditions vary.
const (
	probeShare = 10.0
	tailShare  = 5.0
)

type progressTracker struct {
	sink       ProgressSink
	renditions int
}

func newProgressTracker(sink ProgressSink, renditions int) *progressTracker {
	if renditions < 1 {
		renditions = 1
	}
	return &progressTracker{sink: sink, renditions: renditions}
}

func (t *progressTracker) report(percent float64) {
	if t.sink != nil {
		t.sink.Report(percent)
	}
}

func (t *progressTracker) ProbeDone() {
	t.report(probeShare)
}

// RenditionProgress blends per-rendition progress (0-100) into the
// overall percentage.
func (t *progressTracker) RenditionProgress(index int, percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	share := (100 - probeShare - tailShare) / float64(t.renditions)
	t.report(probeShare + (float64(index)+percent/100)*share)
}

func (t *progressTracker) RenditionsDone() {
	t.report(100 - tailShare)
}

func (t *progressTracker) Done() {
	t.report(100)
}

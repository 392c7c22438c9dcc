package main

import (
	"fmt"
	"strings"
	"time"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/clock"
)

// status is one line of the periodic report.
type status struct {
	elapsed     time.Duration
	ratio       float64
	driftPPM    float64
	driftValid  bool
	adapter     rtaudio.AdapterStats
	hostFrames  uint64
	devFrames   uint64
	hostXruns   uint64
	deviceXruns uint64
}

func collectStatus(elapsed time.Duration, a *rtaudio.AudioAdapter, est *clock.DriftEstimator, host, dev device) status {
	s := status{
		elapsed:     elapsed,
		ratio:       a.Ratio(),
		adapter:     a.Stats(),
		hostFrames:  host.Frames(),
		devFrames:   dev.Frames(),
		hostXruns:   host.Xruns(),
		deviceXruns: dev.Xruns(),
	}
	if ppm, err := est.PPM(); err == nil {
		s.driftPPM, s.driftValid = ppm, true
	}
	return s
}

func (s status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%7.1fs  ratio %.6f", s.elapsed.Seconds(), s.ratio)
	if s.driftValid {
		fmt.Fprintf(&b, "  drift %+8.1f ppm", s.driftPPM)
	} else {
		b.WriteString("  drift      n/a    ")
	}
	fmt.Fprintf(&b, "  ring %d  resets %d  host failures %d", s.adapter.RingSize, s.adapter.Resets, s.adapter.HostFailures)
	fmt.Fprintf(&b, "  frames %d/%d  xruns %d/%d", s.hostFrames, s.devFrames, s.hostXruns, s.deviceXruns)
	return b.String()
}

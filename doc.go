// Package rtaudio provides the real-time execution core of a low-latency
// audio server: a threaded driver wrapper for blocking audio devices and
// adaptive resamplers that compensate clock drift between a device and
// the server.
//
// # Threaded drivers
//
// A [ThreadedDriver] wraps any [DriverClient] whose Read and Write block
// until the device is ready for the next period. Start spawns a dedicated
// goroutine, locks it to an OS thread, optionally switches that thread to
// real-time scheduling and then runs Read, Process and Write in a loop:
//
//	td, err := rtaudio.NewThreadedDriverWith(dev, rtaudio.ThreadConfig{
//	    Priority: 70,
//	    Logger:   log.Default(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := td.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer td.Stop()
//
// Every other DriverClient method is forwarded to the wrapped driver
// unchanged. A failed period ends the run; the cause is available from
// [ThreadedDriver.Err] as a [*PeriodError].
//
// # Adaptive resampling
//
// An [AdaptiveResampler] is a ring buffer with a variable-ratio converter
// on its read and write side. The producer pushes frames with
// WriteResample (or Write), the consumer pulls them with ReadResample (or
// Read), and a control loop adjusts the ratio with SetRatio so the ring
// stays half full:
//
//	r, err := rtaudio.NewAdaptiveResamplerWith(rtaudio.QualitySincMedium, 8192)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.SetRatio(48000, 44100)
//	r.Write(deviceFrames)
//	n := r.ReadResample(periodBuffer)
//
// Ratios are clamped to [MinRatio, MaxRatio]. An [AudioAdapter] runs one
// resampler per channel and drives the ratio with a PI controller from
// the observed ring fill.
//
// # Quality
//
//   - [QualityLinear]: linear interpolation, lowest CPU.
//   - [QualityZeroOrderHold]: sample repetition.
//   - [QualitySincFastest], [QualitySincMedium], [QualitySincBest]:
//     Kaiser-windowed sinc interpolation with increasing kernel length.
//
// All converters run without allocation once constructed.
package rtaudio

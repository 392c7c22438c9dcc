// Command rtaudio-run runs a host driver and a device driver on their own
// driver threads and bridges the two clocks with an adaptive resampler.
//
// The host side runs on the server clock; the device runs on its own,
// possibly drifting, clock. Frames captured by the device reach the host,
// host frames are played by the device, and the adapter keeps both
// directions in sync while the run reports the measured drift.
//
// Usage:
//
//	rtaudio-run                                          # dummy host, +100 ppm dummy device
//	rtaudio-run -device "dummy -r 44100 -d -250" -quality sinc-medium
//	rtaudio-run -host `wav -c "in.wav" -P out.wav` -duration 0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	rtaudio "github.com/tphakala/go-rtaudio"
	"github.com/tphakala/go-rtaudio/internal/clock"
	"github.com/tphakala/go-rtaudio/internal/drivers/wavfile"
	"github.com/tphakala/go-rtaudio/internal/tools"
)

const (
	defaultHost     = "dummy -r 48000 -p 256"
	defaultDevice   = "dummy -r 48000 -p 256 -d 100"
	defaultQuality  = "linear"
	defaultDuration = 10 * time.Second
	defaultReport   = time.Second

	estimatorWindow = 2048
	pidFileName     = "pid"
	pidFilePerm     = 0o600
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	hostArg := flag.String("host", defaultHost, "Host driver argument string")
	deviceArg := flag.String("device", defaultDevice, "Device driver argument string")
	qualityName := flag.String("quality", defaultQuality, "Converter: linear, zero-order-hold, sinc-fastest, sinc-medium, sinc-best")
	duration := flag.Duration("duration", defaultDuration, "Run time (0 runs until interrupted)")
	report := flag.Duration("report", defaultReport, "Status report interval")
	server := flag.String("server", tools.DefaultServerName(nil), "Server name")
	tmpDir := flag.String("tmpdir", tools.DefaultTmpDir, "Directory for server files")
	priority := flag.Int("priority", rtaudio.DefaultPriority, "Real-time priority for drivers started with -R")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if *report <= 0 {
		return fmt.Errorf("report interval must be positive")
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.Default()
	}

	quality, err := parseQuality(*qualityName)
	if err != nil {
		return err
	}
	hostSpec, err := parseDriverSpec(*hostArg)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	deviceSpec, err := parseDriverSpec(*deviceArg)
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}

	// Server directory with a pid file, removed on exit
	paths := tools.DefaultPaths(nil)
	paths.TmpDir = *tmpDir
	if err := paths.CleanupFiles(*server); err != nil {
		log.Printf("Removing stale server files: %v", err)
	}
	dir, err := paths.MakeServerDir(*server)
	if err != nil {
		return err
	}
	defer func() {
		if err := paths.CleanupFiles(*server); err != nil {
			log.Printf("Removing server files: %v", err)
		}
	}()
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(filepath.Join(dir, pidFileName), pid, pidFilePerm); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	// The period callbacks run on the driver threads, which start only
	// after everything below is set up.
	var (
		adapter   *rtaudio.AudioAdapter
		estimator *clock.DriftEstimator
		dev       device
		start     time.Time
	)

	host, err := newDevice(hostSpec, func(capture, playback [][]float32) error {
		// Host capture goes to the device; device capture is played by the host.
		return ignoreRingFailure(adapter.PullAndPush(playback, capture))
	}, logger)
	if err != nil {
		return err
	}
	defer closeDriver("host", host)

	dev, err = newDevice(deviceSpec, func(capture, playback [][]float32) error {
		if err := ignoreRingFailure(adapter.PushAndPull(capture, playback)); err != nil {
			return err
		}
		estimator.Add(time.Since(start), dev.Frames())
		return nil
	}, logger)
	if err != nil {
		return err
	}
	defer closeDriver("device", dev)

	hp, dp := host.Params(), dev.Params()
	cfg := rtaudio.DefaultAdapterConfig()
	cfg.HostRate = hp.SampleRate
	cfg.AdaptedRate = dp.SampleRate
	cfg.HostBufferSize = int(hp.BufferSize)
	cfg.AdaptedBufferSize = int(dp.BufferSize)
	cfg.CaptureChannels = min(dp.InChannels, hp.OutChannels)
	cfg.PlaybackChannels = min(hp.InChannels, dp.OutChannels)
	cfg.Quality = quality
	cfg.Logger = logger
	adapter, err = rtaudio.NewAudioAdapter(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = adapter.Close() }()

	estimator, err = clock.NewDriftEstimator(float64(dp.SampleRate), estimatorWindow)
	if err != nil {
		return err
	}

	threadCfg := rtaudio.ThreadConfig{Priority: *priority, Logger: logger}
	hostThread, err := rtaudio.NewThreadedDriverWith(host, threadCfg)
	if err != nil {
		return err
	}
	deviceThread, err := rtaudio.NewThreadedDriverWith(dev, threadCfg)
	if err != nil {
		return err
	}

	fmt.Printf("Server %q (%s)\n", *server, dir)
	fmt.Printf("  Host:   %s, %d Hz, %d frames\n", hostSpec.name, hp.SampleRate, hp.BufferSize)
	fmt.Printf("  Device: %s, %d Hz, %d frames\n", deviceSpec.name, dp.SampleRate, dp.BufferSize)
	fmt.Printf("  Adapter: %s, %d capture / %d playback channels\n", quality, cfg.CaptureChannels, cfg.PlaybackChannels)

	start = time.Now()
	if err := deviceThread.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	defer stopDriver("device", deviceThread)
	if err := hostThread.Start(); err != nil {
		return fmt.Errorf("start host: %w", err)
	}
	defer stopDriver("host", hostThread)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	ticker := time.NewTicker(*report)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-hostThread.Done():
			break loop
		case <-deviceThread.Done():
			break loop
		case <-ticker.C:
			fmt.Println(collectStatus(time.Since(start), adapter, estimator, host, dev).String())
		}
	}

	// Stop both threads before summarizing and report why a run ended.
	stopDriver("host", hostThread)
	stopDriver("device", deviceThread)

	final := collectStatus(time.Since(start), adapter, estimator, host, dev)
	fmt.Println("Final:", final.String())

	if err := runError("host", hostThread.Err()); err != nil {
		return err
	}
	return runError("device", deviceThread.Err())
}

func parseQuality(name string) (rtaudio.Quality, error) {
	for q := rtaudio.QualityLinear; q <= rtaudio.QualitySincBest; q++ {
		if q.String() == name {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quality %q", name)
}

// ignoreRingFailure drops the ring failures the adapter already recovered from.
func ignoreRingFailure(err error) error {
	if errors.Is(err, rtaudio.ErrRingBufferFailure) {
		return nil
	}
	return err
}

// runError filters the normal end of a capture file from a driver run.
func runError(name string, err error) error {
	if err == nil || errors.Is(err, wavfile.ErrEndOfStream) {
		return nil
	}
	return fmt.Errorf("%s driver: %w", name, err)
}

func stopDriver(name string, td *rtaudio.ThreadedDriver) {
	if err := td.Stop(); err != nil {
		log.Printf("Stopping %s driver: %v", name, err)
	}
}

func closeDriver(name string, d device) {
	if err := d.Close(); err != nil {
		log.Printf("Closing %s driver: %v", name, err)
	}
}

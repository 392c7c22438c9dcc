// Command analyze-kernel prints the windowed-sinc kernels used by the sinc
// converter qualities and their frequency response.
//
// Usage:
//
//	analyze-kernel                       # summary of every sinc quality
//	analyze-kernel -quality sinc-best    # a single quality
//	analyze-kernel -quality sinc-medium -dump > response.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tphakala/go-rtaudio/internal/engine"
	"github.com/tphakala/go-rtaudio/internal/filter"
)

const (
	defaultFFTSize = 1 << 16

	// Frequencies in cycles per input frame
	passbandEdge = 0.4
	stopbandEdge = 0.6
	nyquist      = 0.5

	cutoff3DB = -3.0
	cutoff6DB = -6.0
)

var sincQualities = []engine.Quality{
	engine.QualitySincFastest,
	engine.QualitySincMedium,
	engine.QualitySincBest,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	quality := flag.String("quality", "", "Sinc quality to analyze (sinc-fastest, sinc-medium, sinc-best); empty for all")
	fftSize := flag.Int("fft", defaultFFTSize, "Minimum FFT size")
	dump := flag.Bool("dump", false, "Print the response as CSV (frequency,dB) instead of a summary")
	flag.Parse()

	qualities := sincQualities
	if *quality != "" {
		q, err := parseQuality(*quality)
		if err != nil {
			return err
		}
		qualities = []engine.Quality{q}
	}
	if *dump && len(qualities) != 1 {
		return fmt.Errorf("-dump needs a single -quality")
	}

	for _, q := range qualities {
		params, _ := engine.KernelParams(q)
		k, err := filter.DesignKernel(params)
		if err != nil {
			return fmt.Errorf("design %s kernel: %w", q, err)
		}
		resp, err := filter.ComputeResponse(k, *fftSize)
		if err != nil {
			return fmt.Errorf("analyze %s kernel: %w", q, err)
		}

		if *dump {
			return writeCSV(resp)
		}
		printSummary(q, params, k, resp)
	}
	return nil
}

func parseQuality(name string) (engine.Quality, error) {
	for _, q := range sincQualities {
		if q.String() == name {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown sinc quality %q", name)
}

func printSummary(q engine.Quality, p filter.KernelParams, k *filter.Kernel, r filter.Response) {
	fmt.Printf("=== %s ===\n", q)
	fmt.Printf("  Zero crossings:   %d\n", p.ZeroCrossings)
	fmt.Printf("  Oversample:       %d\n", p.Oversample)
	fmt.Printf("  Attenuation:      %.1f dB (Kaiser beta %.4f)\n", p.Attenuation, k.Beta())
	fmt.Printf("  Table length:     %d\n", k.Len())
	fmt.Printf("  Taps at unity:    %d\n", k.Taps(1))
	fmt.Printf("  Taps at 0.25x:    %d\n", k.Taps(engine.MinRatio))

	fmt.Println("  DC gain by phase:")
	for _, frac := range []float64{0, 0.125, 0.25, 0.5, 0.75} {
		fmt.Printf("    frac %.3f: %.8f\n", frac, k.DCGain(frac))
	}

	fmt.Printf("  Passband min (0-%.2f):   %8.4f dB\n", passbandEdge, r.MinDB(0, passbandEdge))
	fmt.Printf("  At Nyquist (%.2f):        %8.4f dB\n", nyquist, r.PeakDB(nyquist, nyquist+1e-9))
	fmt.Printf("  Stopband peak (%.2f-1):  %8.2f dB\n", stopbandEdge, r.PeakDB(stopbandEdge, 1))
	fmt.Printf("  -3 dB point:              %8.4f\n", crossing(r, cutoff3DB))
	fmt.Printf("  -6 dB point:              %8.4f\n\n", crossing(r, cutoff6DB))
}

// crossing returns the first frequency at which the response drops below db.
func crossing(r filter.Response, db float64) float64 {
	for i, m := range r.MagnitudeDB {
		if m < db {
			return r.Frequencies[i]
		}
	}
	return r.Frequencies[len(r.Frequencies)-1]
}

func writeCSV(r filter.Response) error {
	if _, err := fmt.Fprintln(os.Stdout, "frequency,db"); err != nil {
		return err
	}
	for i, f := range r.Frequencies {
		if _, err := fmt.Fprintf(os.Stdout, "%.6f,%.4f\n", f, r.MagnitudeDB[i]); err != nil {
			return err
		}
	}
	return nil
}

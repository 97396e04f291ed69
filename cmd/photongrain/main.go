// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	pg "github.com/mlnoga/photongrain/internal"
	"github.com/mlnoga/photongrain/internal/grain"
	"github.com/mlnoga/photongrain/internal/photon"
	"github.com/mlnoga/photongrain/internal/plot"
	"github.com/mlnoga/photongrain/internal/rest"
	"github.com/mlnoga/photongrain/internal/sim"
	"github.com/mlnoga/photongrain/internal/transfer"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "noise.tbl", "save output to `file`. Tables use the filmgrn1 text format, plots are written as .png, .tif or .tiff by suffix")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var width = flag.Int64("width", 0, "width of the image in pixels (required)")
var height = flag.Int64("height", 0, "height of the image in pixels (required)")
var iso = flag.Int64("iso", 0, "ISO setting indicative of the light level (required)")
var tfName = flag.String("tf", "srgb", "transfer function used by the encoded image, one of "+transfer.Names()+". Command plot also accepts 'all'")

var samples = flag.Int64("samples", 65536, "Monte Carlo samples per scaling point for simulate, capped to fit 0.7x physical memory")
var seed = flag.Int64("seed", 7391, "random seed for simulate")

var fitX = flag.Int64("fitX", 0, "encoded value in [0,255] at which to fit the ISO setting")
var fitNoise = flag.Float64("fitNoise", 0, "target grain amplitude in [0,255] for which to fit the ISO setting")

var plotWidth = flag.Int64("plotWidth", 640, "width of rendered plots in pixels")
var plotHeight = flag.Int64("plotHeight", 480, "height of rendered plots in pixels")

var chroot = flag.String("chroot", "", "for serve: change filesystem root to `directory` before serving (requires root)")
var setuid = flag.Int64("setuid", -1, "for serve: change to this user id after opening the port, -1=no change")

func main() {
	logWriter := os.Stdout
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Photongrain Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Creates film grain tables representing the photon shot noise of a digital
camera at a given light level, for use with AV1 encoders:

    %s -width 3840 -height 2160 -iso 25600 -out noise.tbl table
    aomenc --film-grain-table=noise.tbl ...

Usage: %s [-flag value] (table|plot|simulate|fit|serve|legal|version)

Commands:
  table    Generate a film grain table and write it to -out
  plot     Render the noise curves of -tf (or all) as an image to -out
  simulate Verify the noise model with a Monte Carlo simulation
  fit      Find the ISO setting producing -fitNoise grain at -fitX
  serve    Start the HTTP API server on port 8080
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(*out, filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		err := pg.LogAlsoToFile(*log)
		if err != nil {
			pg.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			pg.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			pg.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "table":
		err = cmdTable(logWriter)

	case "plot":
		err = cmdPlot(logWriter)

	case "simulate":
		err = cmdSimulate(logWriter)

	case "fit":
		err = cmdFit(logWriter)

	case "serve":
		rest.MakeSandbox(*chroot, int(*setuid))
		err = rest.Serve()

	case "legal":
		cmdLegal()

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	now := time.Now()
	elapsed := now.Sub(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			pg.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			pg.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}
	pg.LogSync()
}

// Checks the required numeric flags shared by the noise model commands.
// The model itself performs no validation, so degenerate values must be
// rejected here.
func validateModelFlags() error {
	if *width <= 0 {
		return fmt.Errorf("missing or invalid required parameter -width")
	}
	if *height <= 0 {
		return fmt.Errorf("missing or invalid required parameter -height")
	}
	if *iso <= 0 {
		return fmt.Errorf("missing or invalid required parameter -iso")
	}
	return nil
}

// Generate a film grain table and write it to the output file
func cmdTable(logWriter io.Writer) error {
	if err := validateModelFlags(); err != nil {
		return err
	}
	tf, err := transfer.ForName(*tfName)
	if err != nil {
		return err
	}

	params := photon.GrainParams(int32(*width), int32(*height), int32(*iso), tf)
	fmt.Fprintf(logWriter, "Modeling %dx%d at ISO %d with transfer function %s:\n", *width, *height, *iso, tf.Name)
	for _, pt := range params.ScalingPointsY {
		fmt.Fprintf(logWriter, "  x %3d noise %3d\n", pt.X, pt.Scaling)
	}

	table := grain.Table{}
	table.Append(0, math.MaxInt64, params)

	fmt.Fprintf(logWriter, "Writing film grain table to %s ...\n", *out)
	return table.WriteFile(*out)
}

// Render the noise curves of the selected, or all, transfer functions
func cmdPlot(logWriter io.Writer) error {
	if err := validateModelFlags(); err != nil {
		return err
	}
	tfs := transfer.Functions
	if *tfName != "all" {
		tf, err := transfer.ForName(*tfName)
		if err != nil {
			return err
		}
		tfs = []*transfer.Function{tf}
	}

	curves := make([]plot.Curve, len(tfs))
	for i, tf := range tfs {
		params := photon.GrainParams(int32(*width), int32(*height), int32(*iso), tf)
		curves[i] = plot.Curve{Name: tf.Name, Points: params.ScalingPointsY}
	}

	img := plot.Render(curves, int(*plotWidth), int(*plotHeight))
	fmt.Fprintf(logWriter, "Writing noise curve plot to %s ...\n", *out)
	return plot.WriteFile(*out, img)
}

// Verify the noise model against a Monte Carlo simulation
func cmdSimulate(logWriter io.Writer) error {
	if err := validateModelFlags(); err != nil {
		return err
	}
	op := sim.Op{
		Op: photon.Op{
			Width:            int32(*width),
			Height:           int32(*height),
			ISO:              int32(*iso),
			TransferFunction: *tfName,
		},
		Samples: int(*samples),
		Seed:    uint32(*seed),
	}
	_, err := op.Run(logWriter)
	return err
}

// Find the ISO setting producing the target grain amplitude
func cmdFit(logWriter io.Writer) error {
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("missing or invalid required parameters -width and -height")
	}
	if *fitX < 0 || *fitX > 255 || *fitNoise <= 0 || *fitNoise > 255 {
		return fmt.Errorf("fit targets -fitX and -fitNoise must lie in [0,255], -fitNoise must be positive")
	}
	tf, err := transfer.ForName(*tfName)
	if err != nil {
		return err
	}

	iso, err := photon.FitISO(int32(*width), int32(*height), tf, int32(*fitX), float32(*fitNoise))
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Grain amplitude %.4g at x=%d corresponds to ISO %.6g for %dx%d with %s\n",
		*fitNoise, *fitX, iso, *width, *height, tf.Name)
	return nil
}

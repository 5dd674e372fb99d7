package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clktmr/ucode/staging"
	"github.com/clktmr/ucode/staging/sim"
)

func must[T any](ret T, err error) T {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return ret
}

const usageString = `Microcode staging utility.

Loads a microcode image into the staging agent behind a mailbox.

Usage: %s [flags] <imagefile>

`

type options struct {
	base    uint64
	devmem  string
	sim     bool
	timeout time.Duration
	metrics string
	verbose int
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func newLogger(verbose int) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbose))
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func main() {
	var opts options
	flag.Uint64Var(&opts.base, "base", 0, "physical address of the mailbox registers")
	flag.StringVar(&opts.devmem, "devmem", "/dev/mem", "physical memory device")
	flag.BoolVar(&opts.sim, "sim", false, "stage into a simulated agent")
	flag.DurationVar(&opts.timeout, "timeout", staging.DefaultTimeout, "timeout per transaction")
	flag.StringVar(&opts.metrics, "metrics", "", "write metrics to this textfile")
	flag.IntVar(&opts.verbose, "v", 0, "log verbosity")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	zl := must(newLogger(opts.verbose))
	defer zl.Sync()

	err := stage(zapr.NewLogger(zl), flag.Arg(0), opts)
	if err != nil {
		zl.Sync()
		os.Exit(1)
	}
}

func stage(log logr.Logger, path string, opts options) error {
	image, err := os.ReadFile(path)
	if err != nil {
		log.Error(err, "reading image failed")
		return err
	}
	crc := staging.Checksum(image)
	log.Info("loaded image", "path", path, "size", len(image), "crc8", fmt.Sprintf("%#02x", crc))

	mapper := staging.DevMem(opts.devmem)
	var agent *sim.Agent
	if opts.sim {
		agent = sim.NewAgent(len(image))
		mapper = agent
	}

	reg := prometheus.NewRegistry()
	stager := staging.NewStager(mapper, staging.Config{
		Timeout: opts.timeout,
		Log:     log,
		Metrics: staging.NewMetrics(reg),
	})
	err = stager.Stage(opts.base, image)

	if opts.metrics != "" {
		if werr := prometheus.WriteToTextfile(opts.metrics, reg); werr != nil {
			log.Error(werr, "writing metrics failed", "path", opts.metrics)
		}
	}

	if agent != nil && err == nil && agent.Checksum() != crc {
		err = fmt.Errorf("simulated agent staged crc8 %#02x, expected %#02x", agent.Checksum(), crc)
		log.Error(err, "verification failed")
	}
	return err
}

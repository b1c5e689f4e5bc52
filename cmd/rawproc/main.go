package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/config"
	"github.com/nasa-jpl/rawlab/util"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "rawlab.yml"
)

func root() {
	str := `rawproc renders stored RAW10 captures into RGB images

Usage:
	rawproc <command>

Commands:
	run [dir]
	watch [dir]
	iso [gain ...]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `rawproc is configured by rawlab.yml in the working directory, written
by rawproc mkconf.  Any key can be overridden from the environment,
RAWLAB_ISP_MODE=linear sets isp.mode.  For a primer on YAML, see
https://yaml.org/start.html

The sensor profile, Bayer pattern and tone mode have no default and must be
set.  Built in profiles are imx335-narrow (gain 1 to 9.6) and imx335-wide
(gain 1 to 16), both ISO 100 to 6400.

Captures are FITS files (.fits) holding the packed payload, or a YAML
sidecar (.yml) next to a .raw or .raw.zst payload.

run renders every capture in input.dir, or the directory given, into
output.dir.  A capture that fails is reported and the rest still render.

watch renders captures as they are written into the directory, until
interrupted.

iso prints the ISO label for each gain given, or for the whole gain range.

When mqtt.broker is set, every result and a run summary are published under
mqtt.topic.`
	fmt.Println(str)
}

func mkconf() {
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(config.Template())
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := mustLoad()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("rawproc version %v\n", Version)
}

func mustLoad() config.Config {
	c, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func inputDir(c config.Config, args []string) string {
	if len(args) > 2 {
		if !isDir(args[2]) {
			log.Fatalf("%s is not a directory", args[2])
		}
		return args[2]
	}
	return c.Input.Dir
}

func run(args []string) {
	if !batch(args) {
		os.Exit(1)
	}
}

// batch renders the input directory once and reports whether every
// capture succeeded
func batch(args []string) bool {
	c := mustLoad()
	l := log.New(os.Stderr, "", log.LstdFlags)
	p, n, err := BuildPipeline(c, l)
	if err != nil {
		log.Fatal(err)
	}
	if n != nil {
		defer n.Close()
	}
	dir := inputDir(c, args)
	items, err := capture.Dir{Root: dir}.List()
	if err != nil {
		log.Fatal(err)
	}
	if len(items) == 0 {
		log.Printf("no captures in %s", dir)
		return true
	}

	prog, err := newProgress(len(items))
	if err != nil {
		log.Fatal(err)
	}
	p.Reporters = append(p.Reporters, prog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	prog.start()
	rep := p.Run(ctx, items)
	prog.stop(rep)
	if n != nil {
		n.Summarize(rep)
	}
	for kind, count := range rep.ByKind() {
		log.Printf("%d failed with %s", count, kind)
	}
	return len(rep.Failed()) == 0
}

func watch(args []string) {
	c := mustLoad()
	l := log.New(os.Stderr, "", log.LstdFlags)
	p, n, err := BuildPipeline(c, l)
	if err != nil {
		log.Fatal(err)
	}
	if n != nil {
		defer n.Close()
	}
	dir := inputDir(c, args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Println("watching", dir, "for captures")
	if err = Watch(p, dir, ctx.Done(), l); err != nil {
		log.Fatal(err)
	}
}

func printISO(args []string) {
	c := mustLoad()
	m, err := c.Mapper()
	if err != nil {
		log.Fatal(err)
	}
	prof := m.Profile()
	fmt.Printf("profile %s, gain %v to %v, ISO %d to %d, exponent %.4f\n",
		prof.Name, prof.GainMin, prof.GainMax, prof.ISOMin, prof.ISOMax, m.Exponent())
	fmt.Println("table", util.IntSliceToCSV(prof.Table))

	var gains []float64
	for _, a := range args[2:] {
		g, err := strconv.ParseFloat(a, 64)
		if err != nil {
			log.Fatalf("%q is not a gain", a)
		}
		gains = append(gains, g)
	}
	if len(gains) == 0 {
		for g := prof.GainMin; g < prof.GainMax; g += 0.5 {
			gains = append(gains, g)
		}
		gains = append(gains, prof.GainMax)
	}
	for _, g := range gains {
		fmt.Printf("gain %6.2f  raw %8.1f  ISO %d\n", g, m.Raw(m.Clamp(g)), m.Map(g))
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run(args)
		return
	case "watch":
		watch(args)
		return
	case "iso":
		printISO(args)
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}

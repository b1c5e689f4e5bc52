package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/rawlab/config"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "rawlab.yml"
)

func root() {
	str := `rawsrv decodes RAW10 buffers posted over HTTP and replies with the
rendered image, so any language with an HTTP client can use the ISP.

Usage:
	rawsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `rawsrv shares rawlab.yml with rawproc; write one with rawsrv mkconf.
Any key can be overridden from the environment, RAWLAB_SERVER_ADDR=:9000
sets server.addr.

Routes:
	POST /decode?width=&height=&format=&exposureUs=&gain=&digital=&fmt=
		body is the packed buffer, the reply is the image in fmt
		(png, tiff, fits or jpg, png by default).  Missing geometry
		comes from sensor.width, sensor.height and sensor.format.
	GET  /iso?gain=&digital=     ISO label of a gain, {"int": iso}
	GET  /profile                the active gain profile
	GET  /frame?fmt=             next capture of input.dir, when it has any
	GET/POST /exposure-time, /gain   playback overrides
	GET/POST /autowrite/{root,prefix,format,enabled}
	GET/POST /ratelimit          decode requests per second
	GET  /outputs/<file>         files written by autowrite
	GET  /metrics, /endpoints

Errors reply 400 for malformed buffers or parameters, 413 for oversized
uploads, 422 for corrupt captures and 429 when the rate limit is spent.`
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
	fmt.Printf("rawsrv version %v\n", Version)
}

func mustLoad() config.Config {
	c, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func run() {
	c := mustLoad()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	mux, err := BuildMux(c, reg, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		log.Fatal(err)
	}
	log.Println("now listening for requests at ", c.Server.Addr)
	log.Fatal(http.ListenAndServe(c.Server.Addr, mux))
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
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}

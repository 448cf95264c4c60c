package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/printforge/printd/bedmesh"
	"github.com/printforge/printd/config"
	"github.com/printforge/printd/coord"
	"github.com/printforge/printd/motor"
	"github.com/printforge/printd/print"
)

func main() {
	log.SetFlags(log.Lshortfile)

	configPath := flag.String("config", "printd.yml", "Path to the config file.")
	addr := flag.String("addr", "", "Address to bind the printd server to (overrides config).")
	port := flag.String("port", "", "Serial port of the motion controller (overrides config).")
	simulate := flag.Bool("simulate", false, "Run against a simulated motion controller.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if err = cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	var drv motor.Driver
	if *simulate {
		drv = motor.NewSerialDriver(motor.NewSimulator())
	} else {
		drv, err = motor.Open(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			log.Fatal(err)
		}
	}

	deccfg := print.DecoderConfig{
		DefaultFeed: cfg.Motion.DefaultFeed,
		MaxFeed:     cfg.Motion.MaxFeed,
	}
	if cfg.BedMesh.Enabled {
		points := make([]coord.Point, len(cfg.BedMesh.Points))
		for i, p := range cfg.BedMesh.Points {
			points[i] = coord.Point{X: p.X, Y: p.Y, Z: p.Z}
		}
		mesh, err := bedmesh.NewMesh(points)
		if err != nil {
			log.Fatal(err)
		}
		deccfg.Mesh = mesh
	}

	pipe := print.Start(print.NewDecoder(deccfg), drv.Commands(), drv.Results())

	// The emergency-stop lane never touches the pipeline channels: it
	// must fire even when decode or execute is blocked.
	estop := make(chan struct{}, 1)
	go func() {
		for range estop {
			log.Println("EMERGENCY STOP")
			if err := drv.Halt(); err != nil {
				log.Println("ERROR: estop halt:", err)
			}
			if err := pipe.Stop(); err != nil {
				log.Println("ERROR: estop stop:", err)
			}
		}
	}()

	api := newAPI(pipe, estop, cfg.Server.DataDir)

	err = http.ListenAndServe(cfg.Server.Addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.Printf("%s %s - %s", req.Method, req.URL.Path, req.RemoteAddr)
		api.ServeHTTP(w, req)
	}))
	if err != nil {
		log.Fatal(err)
	}
}

// Command hudnav-replay drives a navigation session from a recorded GPX
// track, logging every maneuver change. Useful for tuning thresholds
// against a real drive without leaving the desk.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/nwah/hudnav-server/config"
	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/nav"
	"github.com/nwah/hudnav-server/position"
	"github.com/nwah/hudnav-server/session"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML or YAML config file")
	gpxPath := flag.String("gpx", "", "GPX track to replay (required)")
	to := flag.String("to", "", "destination as lat,lng (default: last track point)")
	interval := flag.Duration("interval", 200*time.Millisecond, "delay between fixes, 0 for as fast as possible")
	imperial := flag.Bool("imperial", false, "show miles and mph")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if *gpxPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	nav.SetConfig(cfg.Nav)

	f, err := os.Open(*gpxPath)
	if err != nil {
		log.Fatalf("Failed to open track: %v", err)
	}
	fixes, err := position.LoadGPX(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to load track: %v", err)
	}

	dest := *fixes[len(fixes)-1].Coords
	if *to != "" {
		if dest, err = parsePoint(*to); err != nil {
			log.Fatalf("Invalid -to: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manager := session.NewManager(nav.Router{Mode: nav.ModeAuto}, cfg.Session())
	s := manager.Create()
	defer manager.Delete(s.ID)
	s.SetImperial(*imperial)

	s.HandleFix(fixes[0])
	view, err := s.Navigate(ctx, dest)
	if err != nil {
		log.Fatalf("Failed to start navigation: %v", err)
	}
	log.Printf("Navigating %d steps to %s", view.Frame.StepCount, dest)
	logFrame(view)

	last := view.Frame.StepIndex
	err = position.NewReplay(fixes, *interval).Run(ctx, func(fix position.Fix) {
		v := s.HandleFix(fix)
		if v.Frame.StepIndex != last || v.Frame.State != view.Frame.State {
			logFrame(v)
			last = v.Frame.StepIndex
			view = v
		}
	})
	if err != nil {
		log.Printf("Replay stopped: %v", err)
	}

	final := s.View()
	log.Printf("Finished in state %s at step %d/%d", final.Frame.State, final.Frame.StepIndex+1, final.Frame.StepCount)
}

func logFrame(v session.View) {
	f := v.Frame
	log.Printf("[%d/%d] %-8s %6s %s  %s %s",
		f.StepIndex+1, f.StepCount, f.Icon, f.DistanceToTurn, f.Instruction, f.Speed, f.Unit)
}

func parsePoint(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, strconv.ErrSyntax
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, err
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, err
	}
	p := geo.Point{Lat: lat, Lon: lng}
	if !p.Valid() {
		return geo.Point{}, strconv.ErrRange
	}
	return p, nil
}

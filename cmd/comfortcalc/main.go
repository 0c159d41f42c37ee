// Command comfortcalc computes comfort estimates offline using the same
// domain code as the service.
//
// Usage:
//
//	go run ./cmd/comfortcalc -temperature 12 -wind 5 -humidity 75 -cloud 50
//
//	go run ./cmd/comfortcalc \
//	  -in observations.json \
//	  -now 2025-03-14T09:30:00Z \
//	  -out reports.json
//
// With -in, the file holds a JSON array of observation messages in the
// source-topic format. Each is converted to a comfort report; rejected
// messages are logged and skipped. -now freezes the processing clock so the
// output is reproducible.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("comfortcalc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	temperature := fs.Float64("temperature", 0, "air temperature, °C")
	wind := fs.Float64("wind", 0, "wind speed at 10 m, m/s")
	humidity := fs.Float64("humidity", 0, "relative humidity, %")
	cloud := fs.Float64("cloud", 0, "cloud cover, %")
	night := fs.Bool("night", false, "evaluate for night time (no solar radiation)")
	in := fs.String("in", "", "JSON file of observation messages to convert")
	out := fs.String("out", "", "output path (default stdout)")
	now := fs.String("now", "", "RFC3339 processing time for reproducible reports")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := log.New(stderr, "", 0)

	if *now != "" {
		t, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	var result any
	if *in != "" {
		reports, err := convertFile(*in, logger)
		if err != nil {
			return err
		}
		printStats(logger, reports)
		result = reports
	} else {
		obs := domain.WeatherObservation{
			Temperature: *temperature,
			WindSpeed:   *wind,
			Humidity:    *humidity,
			CloudCover:  *cloud,
			IsDaytime:   !*night,
		}
		if err := domain.ValidateObservation(obs); err != nil {
			return err
		}
		result = obs.Comfort()
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	logger.Printf("wrote %s", *out)
	return nil
}

func convertFile(path string, logger *log.Logger) ([]domain.ComfortReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}

	reports := make([]domain.ComfortReport, 0, len(messages))
	for i, msg := range messages {
		obs, err := domain.ParseRawObservation(domain.RawEvent{Value: msg, Timestamp: domain.Now()})
		if err == nil {
			err = domain.ValidateObservation(obs)
		}
		if err != nil {
			logger.Printf("skipping observation %d: %v", i, err)
			continue
		}
		reports = append(reports, domain.BuildReport(obs))
	}
	return reports, nil
}

func printStats(logger *log.Logger, reports []domain.ComfortReport) {
	counts := map[string]int{}
	for _, r := range reports {
		counts[r.Comfort.StressCategory]++
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	logger.Printf("converted %d observations", len(reports))
	for _, c := range categories {
		logger.Printf("  %-22s %d", c, counts[c])
	}
}

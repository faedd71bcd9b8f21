package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/assetnote/kitehttp/internal/testserver"
	"github.com/assetnote/kitehttp/pkg/log"
)

func parsePortRange(v string) (start, end int, err error) {
	parts := strings.Split(v, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid port range %q, format should be <int>-<int>", v)
	}
	if start, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("unable to parse start port: %w", err)
	}
	if end, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("unable to parse end port: %w", err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("invalid port range %q, end is before start", v)
	}
	return start, end, nil
}

// statsLoop prints the request rate and connection count once a second until end is closed
func statsLoop(s *testserver.Server, end <-chan struct{}) {
	var (
		last      = time.Now()
		lastCount = s.Requests()
		peak      float64
		ticker    = time.NewTicker(time.Second)
	)
	defer ticker.Stop()
	for {
		select {
		case <-end:
			fmt.Println("\nTerminating.")
			return
		case <-ticker.C:
			cur := s.Requests()
			diff := cur - lastCount
			rps := float64(diff) / time.Since(last).Seconds()
			if rps > peak {
				peak = rps
			}
			fmt.Printf("Total Requests: %d. Connections: %d. RPS: %f. Peak: %f\t\t\t\t\r", cur, s.Accepts(), rps, peak)
			last = time.Now()
			lastCount = cur
		}
	}
}

func main() {
	var (
		portRange string
		verbose   string
	)
	flag.StringVar(&portRange, "p", "14000-14001", "Range of ports to start servers on, the end is exclusive")
	flag.StringVar(&verbose, "v", "info", "level of logging verbosity")
	flag.Parse()

	if err := log.SetLevelString(verbose); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logging")
	}

	start, end, err := parsePortRange(portRange)
	if err != nil {
		log.Fatal().Err(err).Msg("bad port range")
	}

	var (
		s  = testserver.New()
		wg sync.WaitGroup
	)
	for port := start; port < end; port++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			addr := fmt.Sprintf(":%d", port)
			log.Debug().Str("addr", addr).Msg("starting server")
			if err := s.ListenAndServe(addr); err != nil {
				log.Fatal().Err(err).Str("addr", addr).Msg("failed to start server")
			}
		}(port)
	}

	done := make(chan struct{})
	go statsLoop(s, done)
	wg.Wait()
	close(done)
}

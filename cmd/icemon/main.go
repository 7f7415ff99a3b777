// Command icemon is a terminal dashboard for the ICE controller's
// telemetry stream (spec.md §6 Produced). It reads the status lines
// cmd/icefc's mavlinkStatusSink writes over the telemetry link and
// renders them as a live-refreshing pterm table, the same "render live
// tool state to a terminal" role pterm plays in tosih-ecu-reader's
// scanner view.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// status holds the last-seen values for one of the three logical
// messages spec.md §6 Produced names.
type status struct {
	label      string
	lastSeenAt time.Time
	p1, p2, p3, p4 float64
	seen bool
}

var (
	coolant      = &status{label: "Coolant temp"}
	transmission = &status{label: "Transmission state"}
	fuel         = &status{label: "Fuel level"}
)

func statusByCmd(cmd int) *status {
	switch cmd {
	case 0:
		return coolant
	case 1:
		return transmission
	case 2:
		return fuel
	default:
		return nil
	}
}

// parseLine parses a single "ICE_STATUS cmd=N idx=N p1 p2 p3 p4" line.
func parseLine(line string) {
	var cmd int
	var idx uint8
	var p1, p2, p3, p4 float64
	n, err := fmt.Sscanf(line, "ICE_STATUS cmd=%d idx=%d %f %f %f %f", &cmd, &idx, &p1, &p2, &p3, &p4)
	if err != nil || n != 6 {
		return
	}
	s := statusByCmd(cmd)
	if s == nil {
		return
	}
	s.p1, s.p2, s.p3, s.p4 = p1, p2, p3, p4
	s.lastSeenAt = time.Now()
	s.seen = true
}

func render() pterm.TableData {
	rows := pterm.TableData{{"Message", "p1", "p2", "p3", "p4", "age"}}
	for _, s := range []*status{coolant, transmission, fuel} {
		if !s.seen {
			rows = append(rows, []string{s.label, "-", "-", "-", "-", "no data"})
			continue
		}
		age := time.Since(s.lastSeenAt).Round(time.Second)
		rows = append(rows, []string{
			s.label,
			fmt.Sprintf("%.2f", s.p1),
			fmt.Sprintf("%.2f", s.p2),
			fmt.Sprintf("%.2f", s.p3),
			fmt.Sprintf("%.2f", s.p4),
			age.String(),
		})
	}
	return rows
}

func main() {
	path := flag.String("input", "", "path to a serial device or FIFO streaming ICE_STATUS lines (defaults to stdin)")
	flag.Parse()

	var r io.Reader = os.Stdin
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			pterm.Error.Printf("opening %s: %v\n", *path, err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	area, _ := pterm.DefaultArea.Start()
	defer area.Stop()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				rendered, _ := pterm.DefaultTable.WithHasHeader().WithData(render()).Srender()
				area.Update(rendered)
				return
			}
			parseLine(line)
		case <-ticker.C:
			rendered, _ := pterm.DefaultTable.WithHasHeader().WithData(render()).Srender()
			area.Update(rendered)
		}
	}
}

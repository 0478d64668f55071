// Command simulate runs synthetic or recorded signals through the
// detection pipeline offline and prints the per-window band energies and
// classifications. Useful for threshold recalibration after changing the
// sampling setup.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/ingest"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

var (
	scenarioFlag = flag.String("scenario", "", "Named scenario to run (see -list)")
	listFlag     = flag.Bool("list", false, "List available scenarios")
	csvPath      = flag.String("csv", "", "Replay sample lines from a file instead of a scenario")
	windowsFlag  = flag.Int("windows", 4, "Number of windows to synthesize per scenario")
	recordPath   = flag.String("record", "", "Also write the generated signal as bridge lines to a file")
)

// scenario is a sequence of tone mixes, one mix per window. Multi-step
// scenarios exercise the cross-window state: walking into a freeze,
// holding a freeze, releasing it.
type scenario struct {
	description string
	steps       [][]ingest.Tone
}

var scenarios = map[string]scenario{
	"idle": {
		description: "1 Hz noise at 20 mg; no detection",
		steps:       [][]ingest.Tone{{{Freq: 1, Amp: 20}}},
	},
	"tremor": {
		description: "4 Hz resting tremor at 300 mg",
		steps:       [][]ingest.Tone{{{Freq: 4, Amp: 300}}},
	},
	"dyskinesia": {
		description: "6 Hz dyskinetic movement at 300 mg",
		steps:       [][]ingest.Tone{{{Freq: 6, Amp: 300}}},
	},
	"walking": {
		description: "2 Hz arm swing at 400 mg; no detection",
		steps:       [][]ingest.Tone{{{Freq: 2, Amp: 400}}},
	},
	"freeze": {
		description: "weak 2 Hz swing with a 7.5 Hz shuffle; freeze via the energy ratio",
		steps:       [][]ingest.Tone{{{Freq: 2, Amp: 100}, {Freq: 7.5, Amp: 300}}},
	},
	"freeze-onset": {
		description: "walking, then pure shuffle, then recovery; exercises the context arm and hysteresis exit",
		steps: [][]ingest.Tone{
			{{Freq: 2, Amp: 400}},
			{{Freq: 7.5, Amp: 300}},
			{{Freq: 7.5, Amp: 300}},
			{{Freq: 1, Amp: 20}},
		},
	},
	"sensor-failure": {
		description: "bridge fallback tone; surfaces as a sustained tremor",
		steps:       [][]ingest.Tone{{{Freq: ingest.FallbackFreqHz, Amp: ingest.FallbackAmpMG}}},
	},
}

func main() {
	flag.Parse()

	if *listFlag {
		names := make([]string, 0, len(scenarios))
		for name := range scenarios {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, scenarios[name].description)
		}
		w.Flush()
		return
	}

	results := newResultPrinter(os.Stdout)
	pipeline, err := monitor.NewPipeline(monitor.Config{}, results.print)
	if err != nil {
		log.Fatalf("create pipeline: %v", err)
	}
	results.header()

	switch {
	case *csvPath != "":
		if err := replayFile(pipeline, *csvPath); err != nil {
			log.Fatalf("replay %s: %v", *csvPath, err)
		}
	case *scenarioFlag != "":
		sc, ok := scenarios[*scenarioFlag]
		if !ok {
			log.Fatalf("unknown scenario %q; use -list", *scenarioFlag)
		}
		var record *os.File
		if *recordPath != "" {
			var err error
			record, err = os.Create(*recordPath)
			if err != nil {
				log.Fatalf("create %s: %v", *recordPath, err)
			}
			defer record.Close()
		}
		runScenario(pipeline, sc, *windowsFlag, record)
	default:
		log.Fatal("one of -scenario or -csv is required; use -list for scenarios")
	}

	results.flush()
}

// runScenario feeds each step for at least one window, repeating the last
// step until the requested window count is reached. When record is non-nil
// each sample is also written out as a bridge line, replayable with -csv.
func runScenario(p *monitor.Pipeline, sc scenario, windows int, record *os.File) {
	if windows < len(sc.steps) {
		windows = len(sc.steps)
	}
	cfg := p.Config()
	sample := 0
	for w := 0; w < windows; w++ {
		step := sc.steps[min(w, len(sc.steps)-1)]
		for _, s := range ingest.Synthesize(cfg.WindowSize, cfg.SampleRate, step...) {
			if record != nil {
				fmt.Fprintf(record, "%.3f,%.3f\n", float64(sample)/cfg.SampleRate, s)
			}
			sample++
			p.PushSample(s)
		}
	}
}

// replayFile pushes sample lines (bridge line protocol) from a file.
// Status lines and malformed lines are skipped with a note.
func replayFile(p *monitor.Pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || ingest.IsStatus(line) {
			continue
		}
		reading, err := ingest.ParseReading(line)
		if err != nil {
			log.Printf("line %d skipped: %v", lineNo, err)
			continue
		}
		p.PushSample(reading.Magnitude)
	}
	return sc.Err()
}

type resultPrinter struct {
	w *tabwriter.Writer
}

func newResultPrinter(out *os.File) *resultPrinter {
	return &resultPrinter{w: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)}
}

func (r *resultPrinter) header() {
	fmt.Fprintln(r.w, "window\toutcome\tloco\ttremor\tdysk\tfreeze\tintensity\tstate")
}

func (r *resultPrinter) print(res monitor.WindowResult) {
	intensity := res.Detection.TremorIntensity + res.Detection.DyskinesiaIntensity
	state := "-"
	switch {
	case res.State.Frozen:
		state = "frozen"
	case res.State.WasWalking:
		state = "was-walking"
	}
	fmt.Fprintf(r.w, "%d\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%d\t%s\n",
		res.Seq, res.Outcome,
		res.Energies.Locomotor, res.Energies.Tremor, res.Energies.Dyskinesia, res.Energies.Freeze,
		intensity, state)
}

func (r *resultPrinter) flush() {
	r.w.Flush()
}

// Command sweep runs a parameter grid (controller kind, fleet size,
// reaction time, safety margin) of independent simulations and ranks
// the combinations by throughput and headway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dista-flow/railsim/internal/config"
	"github.com/dista-flow/railsim/internal/db"
	"github.com/dista-flow/railsim/internal/sweep"
	"github.com/dista-flow/railsim/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to run configuration JSON (default: built-in demo line)")
	dbPath        = flag.String("db", "", "Path to results sqlite database (empty: don't persist)")
	migrationsDir = flag.String("migrations", "migrations", "Path to database migrations")
	workers       = flag.Int("workers", 4, "Concurrent simulations")

	controllers = flag.String("controllers", "etcs,dista", "Comma-separated controller kinds")
	trainCounts = flag.String("trains", "2,3,5", "Comma-separated fleet sizes")
	reactions   = flag.String("reactions", "0.8,2.0", "Comma-separated reaction times (s)")
	margins     = flag.String("margins", "100,150", "Comma-separated safety margins (m)")

	showVersion = flag.Bool("version", false, "Print version and exit")
)

// parseCSVFloatSlice parses a comma-separated list of floats
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCSVIntSlice parses a comma-separated list of ints
func parseCSVIntSlice(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCSVStringSlice parses a comma-separated list of names
func parseCSVStringSlice(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if err := run(); err != nil {
		log.Fatalf("sweep: %v", err)
	}
}

func run() error {
	grid, err := parseGrid()
	if err != nil {
		return err
	}

	base := config.Default()
	if *configPath != "" {
		if base, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepID := uuid.NewString()
	startedAt := time.Now()

	var store *db.DB
	if *dbPath != "" {
		if store, err = db.Open(*dbPath); err != nil {
			return err
		}
		defer store.Close()
		if err := store.MigrateUp(*migrationsDir); err != nil {
			return err
		}
		request, err := json.Marshal(grid)
		if err != nil {
			return fmt.Errorf("encoding sweep request: %w", err)
		}
		err = db.NewSweepStore(store).Insert(db.SweepRecord{
			SweepID:   sweepID,
			Status:    string(sweep.StatusRunning),
			Request:   request,
			StartedAt: startedAt,
		})
		if err != nil {
			return err
		}
	}

	runner := sweep.NewRunner(base, *workers)
	state, runErr := runner.Run(ctx, grid)

	printRanked(state)

	if store != nil {
		results, err := json.Marshal(state.Results)
		if err != nil {
			return fmt.Errorf("encoding sweep results: %w", err)
		}
		completedAt := time.Now()
		if err := db.NewSweepStore(store).UpdateResults(sweepID, string(state.Status), results, state.Error, &completedAt); err != nil {
			return err
		}
		log.Printf("sweep %s: persisted %d results to %s", sweepID, len(state.Results), *dbPath)
	}

	return runErr
}

func parseGrid() (sweep.Grid, error) {
	reactionsS, err := parseCSVFloatSlice(*reactions)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("parsing -reactions: %w", err)
	}
	marginsM, err := parseCSVFloatSlice(*margins)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("parsing -margins: %w", err)
	}
	counts, err := parseCSVIntSlice(*trainCounts)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("parsing -trains: %w", err)
	}
	return sweep.Grid{
		Controllers: parseCSVStringSlice(*controllers),
		TrainCounts: counts,
		ReactionsS:  reactionsS,
		MarginsM:    marginsM,
	}, nil
}

// printRanked logs the combinations best-first: throughput descending,
// then mean headway descending (wider is safer at equal throughput).
func printRanked(state sweep.State) {
	ranked := make([]sweep.ComboResult, len(state.Results))
	copy(ranked, state.Results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Throughput != ranked[j].Throughput {
			return ranked[i].Throughput > ranked[j].Throughput
		}
		return ranked[i].MeanHeadwayM > ranked[j].MeanHeadwayM
	})

	log.Printf("sweep %s: %d/%d combinations completed", state.Status, state.CompletedCombos, state.TotalCombos)
	for i, r := range ranked {
		if r.Controller == "" {
			continue // skipped by cancellation
		}
		if r.Error != "" {
			log.Printf("%2d. %-10s n=%d reaction=%.1fs margin=%.0fm  FAILED: %s",
				i+1, r.Controller, r.Trains, r.ReactionS, r.MarginM, r.Error)
			continue
		}
		log.Printf("%2d. %-10s n=%d reaction=%.1fs margin=%.0fm  throughput=%d mean=%.1fm min=%.1fm p90=%.1fm",
			i+1, r.Controller, r.Trains, r.ReactionS, r.MarginM,
			r.Throughput, r.MeanHeadwayM, r.MinHeadwayM, r.P90HeadwayM)
	}
}

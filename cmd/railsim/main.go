// Command railsim runs one multi-train simulation on a single line and
// reports (and optionally persists) its safety and throughput KPIs.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dista-flow/railsim/internal/config"
	"github.com/dista-flow/railsim/internal/db"
	"github.com/dista-flow/railsim/internal/metrics"
	"github.com/dista-flow/railsim/internal/sim"
	"github.com/dista-flow/railsim/internal/units"
	"github.com/dista-flow/railsim/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to run configuration JSON (default: built-in demo line)")
	dbPath        = flag.String("db", "", "Path to results sqlite database (empty: don't persist)")
	migrationsDir = flag.String("migrations", "migrations", "Path to database migrations")

	// Overrides applied on top of the configuration file.
	controller = flag.String("controller", "", "Controller kind: etcs, dista, predictive, assertive")
	trainCount = flag.Int("trains", 0, "Number of trains (generated fleet only)")
	reactionS  = flag.Float64("reaction", -1, "Controller reaction time in seconds")
	marginM    = flag.Float64("margin", -1, "Controller safety margin in metres")
	dtSeconds  = flag.Float64("dt", 0, "Tick size in seconds")
	horizonS   = flag.Float64("horizon", 0, "Simulation horizon in seconds")
	railCond   = flag.String("rail", "", "Rail condition: dry, wet, slippery, icy")
	realistic  = flag.Bool("realistic-braking", false, "Derive brake limits from a braking profile")
	profile    = flag.String("profile", "", "Braking profile: emu, ic, dmu, freight, suburban")

	speedUnits  = flag.String("units", units.KMPH, "Speed unit for reported velocities: mps, kmph, kph")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("railsim: unknown speed unit %q (valid: %s)", *speedUnits, strings.Join(units.ValidUnits, ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("railsim: %v", err)
	}
	applyOverrides(cfg)

	scn, err := cfg.Build()
	if err != nil {
		log.Fatalf("railsim: %v", err)
	}

	engine, err := sim.NewEngine(scn.Track, scn.Trains, scn.Controllers, scn.DT, scn.HorizonS)
	if err != nil {
		log.Fatalf("railsim: %v", err)
	}

	runID := uuid.NewString()
	startedAt := time.Now()
	log.Printf("run %s: %d trains on %.1f km line, controller=%s, dt=%.2fs, horizon=%.0fs, rail=%s",
		runID, len(scn.Trains), scn.Track.TotalLength()/1000, cfg.GetController(),
		scn.DT, scn.HorizonS, scn.RailCondition)

	var store *db.DB
	if *dbPath != "" {
		store, err = db.Open(*dbPath)
		if err != nil {
			log.Fatalf("railsim: %v", err)
		}
		defer store.Close()
		if err := store.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("railsim: %v", err)
		}
		params := sim.DefaultParams(cfg.GetController())
		if cfg.ReactionS != nil {
			params.ReactionS = *cfg.ReactionS
		}
		if cfg.MarginM != nil {
			params.MarginM = *cfg.MarginM
		}
		err = db.NewRunStore(store).Insert(db.Run{
			RunID:          runID,
			Controller:     cfg.GetController(),
			TrainCount:     len(scn.Trains),
			ReactionS:      params.ReactionS,
			MarginM:        params.MarginM,
			DTSeconds:      scn.DT,
			HorizonSeconds: scn.HorizonS,
			RailCondition:  string(scn.RailCondition),
			StartedAt:      startedAt,
		})
		if err != nil {
			log.Fatalf("railsim: %v", err)
		}
	}

	result := engine.Run()

	headways := metrics.Headways(result.Trace, scn.Lengths(), config.DefaultTrainLengthM)
	summary := metrics.Summarize(headways)
	throughput := metrics.Throughput(result.Trace)

	log.Printf("run %s: finished %d/%d trains in %d ticks", runID, throughput, len(scn.Trains), result.Ticks)
	for _, tr := range engine.Trains() {
		status := "did not finish"
		if t, ok := result.FinishTimes[tr.ID]; ok {
			status = fmt.Sprintf("finished at t=%.1fs", t)
		}
		log.Printf("  %s: pos=%.1fm v=%.1f %s, %s", tr.ID, tr.PosM, units.ConvertSpeed(tr.VelMps, *speedUnits), *speedUnits, status)
	}
	if summary.Count > 0 {
		log.Printf("headways: n=%d mean=%.1fm min=%.1fm stddev=%.1fm p50=%.1fm p90=%.1fm",
			summary.Count, summary.MeanM, summary.MinM, summary.StdDevM, summary.P50M, summary.P90M)
	}

	if store != nil {
		if err := db.NewTraceStore(store).InsertBatch(runID, result.Trace); err != nil {
			log.Fatalf("railsim: %v", err)
		}
		if err := db.NewRunStore(store).Complete(runID, throughput, summary.MeanM, summary.MinM, time.Now()); err != nil {
			log.Fatalf("railsim: %v", err)
		}
		log.Printf("run %s: persisted %d trace records to %s", runID, len(result.Trace), *dbPath)
	}
}

func loadConfig() (*config.RunConfig, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides lays command-line flags over the loaded configuration.
// Unset flags leave the config values alone.
func applyOverrides(cfg *config.RunConfig) {
	if *controller != "" {
		cfg.Controller = controller
	}
	if *trainCount > 0 {
		cfg.TrainCount = trainCount
		cfg.Fleet = nil
	}
	if *reactionS >= 0 {
		cfg.ReactionS = reactionS
	}
	if *marginM >= 0 {
		cfg.MarginM = marginM
	}
	if *dtSeconds > 0 {
		cfg.DTSeconds = dtSeconds
	}
	if *horizonS > 0 {
		cfg.HorizonSeconds = horizonS
	}
	if *railCond != "" {
		cfg.RailCondition = railCond
	}
	if *realistic {
		cfg.RealisticBraking = realistic
	}
	if *profile != "" {
		cfg.Profile = profile
		if cfg.RealisticBraking == nil {
			on := true
			cfg.RealisticBraking = &on
		}
	}
}

// Command empires runs the hex strategy simulation headless: it plays
// rounds in the terminal or serves the game over the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/empires4x/internal/api"
	"github.com/talgya/empires4x/internal/catalog"
	"github.com/talgya/empires4x/internal/engine"
	"github.com/talgya/empires4x/internal/game"
	"github.com/talgya/empires4x/internal/persistence"
)

const version = "0.3.0"

func main() {
	var (
		logLevel    string
		dbPath      string
		configFile  string
		catalogFile string
	)
	var cmdRoot = &cobra.Command{
		Use:   "empires",
		Short: "Turn-based hex strategy simulation",
		Long:  `Generate a world, let computer factions settle it, and play or watch the rounds.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: level,
			}))
			slog.SetDefault(logger)
			return nil
		},
	}
	cmdRoot.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmdRoot.PersistentFlags().StringVar(&dbPath, "db", "data/empires.db", "savegame database")
	cmdRoot.PersistentFlags().StringVarP(&configFile, "config", "c", "", "scenario YAML file")
	cmdRoot.PersistentFlags().StringVar(&catalogFile, "catalog", "", "balance table YAML file (default: built in)")

	setup := func() (*session, error) {
		return openSession(dbPath, configFile, catalogFile)
	}
	cmdRoot.AddCommand(cmdSimulate(setup))
	cmdRoot.AddCommand(cmdServe(setup))
	cmdRoot.AddCommand(cmdVersion())

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is an open savegame with its scenario settings.
type session struct {
	db           *persistence.DB
	path         string
	cfg          engine.Config
	cat          *catalog.Catalog
	fresh        bool
	seed         int64
	factionCount int
}

func openSession(dbPath, configFile, catalogFile string) (*session, error) {
	cfg := engine.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = engine.LoadConfig(configFile); err != nil {
			return nil, err
		}
	}
	cat := catalog.Default()
	if catalogFile != "" {
		var err error
		if cat, err = catalog.Load(catalogFile); err != nil {
			return nil, err
		}
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", dbPath)
	return &session{db: db, path: dbPath, cfg: cfg, cat: cat}, nil
}

// load restores the saved game, or generates a new one when there is none
// or fresh is set.
func (s *session) load(fresh bool) (*engine.Engine, error) {
	opts := game.Options{Catalog: s.cat, Logger: slog.Default()}
	playerSettings, err := s.db.LoadSettings()
	if err != nil {
		return nil, err
	}
	opts.Settings = playerSettings

	if !fresh {
		snap, err := s.db.LoadSnapshot()
		switch {
		case err == nil:
			return s.restore(opts, snap)
		case !errors.Is(err, persistence.ErrNoSave):
			return nil, err
		}
		slog.Info("no saved game found, generating a new world")
	}

	if s.cfg.World.Seed == 0 {
		s.cfg.World.Seed = rand.Int63()
	}
	e, err := engine.NewScenario(s.cfg, opts)
	if err != nil {
		return nil, err
	}
	s.fresh = true
	s.seed = s.cfg.World.Seed
	if err := s.db.SaveMeta("seed", strconv.FormatInt(s.seed, 10)); err != nil {
		return nil, fmt.Errorf("save seed: %w", err)
	}
	if err := s.db.SaveSnapshot(e.Game.Snapshot()); err != nil {
		return nil, fmt.Errorf("initial save: %w", err)
	}
	s.factionCount = len(e.Game.Factions())
	return e, nil
}

func (s *session) restore(opts game.Options, snap *game.Snapshot) (*engine.Engine, error) {
	g, err := game.Restore(opts, snap)
	if err != nil {
		return nil, err
	}
	if raw, err := s.db.GetMeta("seed"); err == nil {
		s.seed, _ = strconv.ParseInt(raw, 10, 64)
	}
	e := engine.New(g, s.seed+int64(snap.Round))
	e.Policy = s.cfg.Policy
	evs, err := s.db.RecentEvents(1000)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	e.RestoreEvents(evs)
	s.factionCount = len(g.Factions())

	slog.Info("game restored",
		"round", snap.Round,
		"factions", len(snap.Factions),
		"cities", len(snap.Cities),
		"units", len(snap.Units),
	)
	return e, nil
}

// autosave stores every finished round.
func (s *session) autosave(e *engine.Engine) {
	e.OnRound = func(r engine.RoundReport) {
		if err := s.db.SaveGame(r); err != nil {
			slog.Error("round save failed", "round", r.Stats.Round, "error", err)
		}
	}
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		slog.Error("close database", "error", err)
	}
}

func cmdSimulate(setup func() (*session, error)) *cobra.Command {
	rounds := 20
	autopilot := true
	fresh := false
	var seed int64
	var factions int
	var cmd = &cobra.Command{
		Use:          "simulate",
		Short:        "play rounds in the terminal and print a summary",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rounds < 1 {
				return fmt.Errorf("--rounds must be at least 1")
			}
			s, err := setup()
			if err != nil {
				return err
			}
			defer s.close()
			if seed != 0 {
				s.cfg.World.Seed = seed
			}
			if factions > 0 {
				s.cfg.Factions = factions
			}

			e, err := s.load(fresh)
			if err != nil {
				return err
			}
			e.Autopilot = autopilot
			s.autosave(e)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			played, err := e.RunRounds(ctx, rounds)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			printSummary(s, e, played)
			return nil
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "n", rounds, "rounds to play")
	cmd.Flags().BoolVar(&autopilot, "autopilot", autopilot, "let the computer play the human faction")
	cmd.Flags().BoolVar(&fresh, "fresh", fresh, "ignore the savegame and generate a new world")
	cmd.Flags().Int64Var(&seed, "seed", seed, "world seed for a new game (0 = random)")
	cmd.Flags().IntVar(&factions, "factions", factions, "factions in a new game (0 = scenario default)")
	return cmd
}

func cmdServe(setup func() (*session, error)) *cobra.Command {
	port := 8080
	speed := 1.0
	autopilot := false
	var cmd = &cobra.Command{
		Use:          "serve",
		Short:        "run the game on a timer behind the HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setup()
			if err != nil {
				return err
			}
			defer s.close()

			e, err := s.load(false)
			if err != nil {
				return err
			}
			e.Autopilot = autopilot
			if err := e.SetSpeed(speed); err != nil {
				return err
			}
			s.autosave(e)

			adminKey := os.Getenv("EMPIRES_ADMIN_KEY")
			if adminKey == "" {
				slog.Warn("EMPIRES_ADMIN_KEY not set, player and admin POST endpoints will be disabled")
			}
			apiServer := &api.Server{
				Eng:      e,
				DB:       s.db,
				Port:     port,
				AdminKey: adminKey,
				RelayKey: os.Getenv("EMPIRES_RELAY_KEY"),
			}
			apiServer.Start()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
			fmt.Println("Starting game loop... (Ctrl+C to stop)")
			e.Run(ctx)

			// Final save on shutdown.
			slog.Info("final save...")
			var saveErr error
			e.Do(func(g *game.Game) { saveErr = s.db.SaveSnapshot(g.Snapshot()) })
			if saveErr != nil {
				return fmt.Errorf("final save: %w", saveErr)
			}
			printSummary(s, e, 0)
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", port, "HTTP API port")
	cmd.Flags().Float64Var(&speed, "speed", speed, "rounds per second (0 = paused)")
	cmd.Flags().BoolVar(&autopilot, "autopilot", autopilot, "let the computer play the human faction")
	return cmd
}

func cmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "show the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("empires: version %s (savegame schema %d)\n", version, persistence.SchemaVersion)
		},
	}
}

func printSummary(s *session, e *engine.Engine, played int) {
	st := e.Stats()
	var b strings.Builder
	if s.fresh {
		fmt.Fprintf(&b, "\nNew world (seed %d) with %d factions.\n", s.seed, s.factionCount)
	}
	if played > 0 {
		fmt.Fprintf(&b, "Played %s rounds; the %s round is the last finished.\n",
			humanize.Comma(int64(played)), humanize.Ordinal(st.Round))
	}
	fmt.Fprintf(&b, "Cities: %s  Units: %s  Farms: %s  Goods on the road: %s\n",
		humanize.Comma(int64(st.Cities)), humanize.Comma(int64(st.Units)),
		humanize.Comma(int64(st.Farms)), humanize.Comma(int64(st.InTransit)))
	fmt.Fprintf(&b, "Treasury: %s  Food delivered: %s  Food spoiled: %s\n",
		humanize.Commaf(st.Treasury), humanize.Comma(int64(st.Delivered)), humanize.Comma(int64(st.Spoiled)))

	e.Do(func(g *game.Game) {
		for _, f := range g.Factions() {
			fmt.Fprintf(&b, "  %-12s %8s gold  %3d units\n", f.Name(), humanize.Ftoa(f.Money()), len(f.Units()))
		}
	})
	if fi, err := os.Stat(s.path); err == nil {
		fmt.Fprintf(&b, "Savegame: %s (%s)\n", s.path, humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Print(b.String())
}

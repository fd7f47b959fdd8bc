package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/arenasim/arena/sim"
	"github.com/arenasim/arena/simulation"
)

var runFlags struct {
	fps         float64
	duration    float64
	iterations  uint64
	timeScale   float64
	numAgents   int
	monitorPort int
	noMonitor   bool
	record      bool
	output      string
	openBrowser bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a demo skirmish simulation.",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.Float64Var(&runFlags.fps, "fps", 60, "target iteration rate")
	f.Float64Var(&runFlags.duration, "duration", 30,
		"virtual simulation time limit in seconds, 0 for unlimited")
	f.Uint64Var(&runFlags.iterations, "iterations", 0,
		"iteration limit, 0 for unlimited")
	f.Float64Var(&runFlags.timeScale, "time-scale", 1.0,
		"virtual seconds per wall-clock second")
	f.IntVar(&runFlags.numAgents, "agents", 8, "number of demo agents")
	f.IntVar(&runFlags.monitorPort, "monitor-port", envInt("ARENA_MONITOR_PORT"),
		"monitoring server port, 0 for a random port")
	f.BoolVar(&runFlags.noMonitor, "no-monitor", false,
		"disable the monitoring server")
	f.BoolVar(&runFlags.record, "record", false,
		"record iteration and event traces to SQLite")
	f.StringVar(&runFlags.output, "output", "",
		"trace database file name, without extension")
	f.BoolVar(&runFlags.openBrowser, "open", false,
		"open the monitoring page in a browser")

	rootCmd.AddCommand(runCmd)
}

// envInt reads an integer default from the environment, typically seeded
// by a .env file.
func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}

	return v
}

func runSimulation(_ *cobra.Command, _ []string) error {
	cfg := sim.DefaultConfig()
	cfg.TargetFPS = runFlags.fps
	cfg.MaxSimulationTime = sim.VTimeInSec(runFlags.duration)
	cfg.MaxIterations = runFlags.iterations
	cfg.TimeScale = runFlags.timeScale

	builder := simulation.MakeBuilder().WithConfig(cfg)
	if runFlags.noMonitor {
		builder = builder.WithoutMonitoring()
	} else if runFlags.monitorPort > 0 {
		builder = builder.WithMonitorPort(runFlags.monitorPort)
	}
	if runFlags.record {
		builder = builder.WithDataRecording()
		if runFlags.output != "" {
			builder = builder.WithOutputFileName(runFlags.output)
		}
	}

	s, err := builder.Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	field := newBattlefield(200, 200)
	s.Engine().SetEnvironment(field)

	s.Bus().RegisterHandler(&skirmishLogHandler{})

	for i := 0; i < runFlags.numAgents; i++ {
		agent := newWanderer(fmt.Sprintf("wanderer_%d", i), s.Bus(), field)
		if err := s.Engine().AddAgent(agent); err != nil {
			return err
		}
	}

	if runFlags.openBrowser && s.Monitor() != nil {
		_ = browser.OpenURL(s.Monitor().URL())
	}

	start := time.Now()
	if err := s.Run(); err != nil {
		return err
	}

	status := s.Engine().Status()
	fmt.Printf("Run finished in %v: state %s, %d iterations, %.2fs virtual time\n",
		time.Since(start).Round(time.Millisecond),
		status.State, status.IterationCount, float64(status.SimulationTime))

	return nil
}

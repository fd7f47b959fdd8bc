package simulation

import (
	"github.com/rs/xid"

	"github.com/arenasim/arena/datarecording"
	"github.com/arenasim/arena/monitoring"
	"github.com/arenasim/arena/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	config        sim.SimulationConfig
	busCapacity   int
	defaultPhases bool

	monitorOn   bool
	monitorPort int

	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a builder with the default configuration, the six
// default phases, and monitoring on.
func MakeBuilder() Builder {
	return Builder{
		config:        sim.DefaultConfig(),
		defaultPhases: true,
		monitorOn:     true,
	}
}

// WithConfig sets the engine configuration.
func (b Builder) WithConfig(cfg sim.SimulationConfig) Builder {
	b.config = cfg
	return b
}

// WithBusCapacity bounds the event queue of the bus.
func (b Builder) WithBusCapacity(capacity int) Builder {
	b.busCapacity = capacity
	return b
}

// WithoutDefaultPhases builds an engine with an empty pipeline; the
// caller adds its own phases.
func (b Builder) WithoutDefaultPhases() Builder {
	b.defaultPhases = false
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDataRecording stores iteration samples and dispatched events in a
// SQLite database.
func (b Builder) WithDataRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data
// recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:  xid.New().String(),
		bus: sim.NewEventBus(b.busCapacity),
	}

	engine, err := sim.NewEngine(b.config, s.bus)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	if b.defaultPhases {
		for _, p := range sim.DefaultPhases() {
			engine.AddPhase(p)
		}
	}

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "arena_sim_" + s.id
		}

		s.recorder = datarecording.New(outputPath)
		s.tracer = datarecording.NewSimTracer(s.recorder)
		s.bus.AcceptHook(s.tracer)
		engine.OnIterationComplete = s.tracer.RecordIteration
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(engine)

		if sampler, err := monitoring.NewProcessSampler(); err == nil {
			engine.SetResourceSampler(sampler)
		}

		s.monitor.StartServer()
	}

	return s, nil
}

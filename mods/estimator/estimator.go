// Package estimator drives the masked Kalman filter over a recorded cycle
// stream. The input is CSV with one row per estimation cycle: the first
// column is the time step in seconds, followed by one column per sensor
// channel where a blank field means the channel produced no reading during
// that cycle.
package estimator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	gometrics "github.com/rcrowley/go-metrics"
	"gopkg.in/yaml.v3"

	"github.com/machbase/neo-estimator/mods/logging"
	"github.com/machbase/neo-estimator/mods/nums/kalman"
	"github.com/machbase/neo-estimator/mods/nums/kalman/models"
	"gonum.org/v1/gonum/mat"
)

type RunCmd struct {
	Input       string `arg:"" name:"input" help:"cycle CSV file, '-' for stdin; first column is the time step in seconds, then one column per channel (blank = no reading)"`
	Output      string `name:"output" short:"o" default:"-" help:"diagnostics CSV path, '-' for stdout"`
	Config      string `name:"config" short:"c" placeholder:"<path>" help:"model config file (YAML)"`
	Precision   int    `name:"precision" short:"p" default:"4" help:"decimals of diagnostics output"`
	Summary     bool   `name:"summary" negatable:"" default:"true" help:"print final estimate summary"`
	LogFilename string `name:"log-filename" default:"." placeholder:"<path>" help:"log file path, '-' for stdout, '.' to discard"`
	LogLevel    string `name:"log-level" default:"INFO" enum:"TRACE,DEBUG,INFO,WARN,ERROR" help:"log level"`
}

// ModelConfig selects and parameterizes the process/observation model.
// Zero values fall back to the defaults of DefaultModelConfig.
type ModelConfig struct {
	Model               string    `yaml:"model"` // brownian, constant-velocity
	Initial             []float64 `yaml:"initial"`
	InitialVariance     float64   `yaml:"initialVariance"`
	ProcessVariance     float64   `yaml:"processVariance"`
	ObservationVariance float64   `yaml:"observationVariance"`
	SnapEpsilon         float64   `yaml:"snapEpsilon"`
	DominanceMargin     float64   `yaml:"dominanceMargin"`
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:               "brownian",
		InitialVariance:     1.0,
		ProcessVariance:     1.0,
		ObservationVariance: 1.0,
	}
}

func LoadModelConfig(path string) (ModelConfig, error) {
	cfg := DefaultModelConfig()
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

type model interface {
	models.ProcessModel
	models.ObservationModel
}

func buildModel(cfg ModelConfig, channels int) (model, error) {
	initial := mat.NewVecDense(channels, nil)
	for i := 0; i < channels && i < len(cfg.Initial); i++ {
		initial.SetVec(i, cfg.Initial[i])
	}

	switch cfg.Model {
	case "brownian", "":
		return models.NewBrownianModel(time.Time{}, initial, models.BrownianModelConfig{
			InitialVariance:     cfg.InitialVariance,
			ProcessVariance:     cfg.ProcessVariance,
			ObservationVariance: cfg.ObservationVariance,
		}), nil
	case "constant-velocity":
		return models.NewConstantVelocityModel(time.Time{}, initial, models.ConstantVelocityModelConfig{
			InitialVariance:     cfg.InitialVariance,
			ProcessVariance:     cfg.ProcessVariance,
			ObservationVariance: cfg.ObservationVariance,
		}), nil
	default:
		return nil, fmt.Errorf("unknown model %q", cfg.Model)
	}
}

func Run(cmd *RunCmd) error {
	logging.Configure(&logging.Config{
		Console:            false,
		Filename:           cmd.LogFilename,
		Append:             true,
		DefaultPrefixWidth: 16,
		DefaultLevel:       cmd.LogLevel,
	})
	log := logging.GetLog("neo-estimator")

	var input io.Reader
	if cmd.Input == "-" {
		input = os.Stdin
	} else {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}
	reader := csv.NewReader(input)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("cycle stream has no header: %w", err)
	}
	channels := len(header) - 1
	if channels < 1 {
		return fmt.Errorf("cycle stream needs a time step column and at least one channel column")
	}

	cfg := DefaultModelConfig()
	if cmd.Config != "" {
		if cfg, err = LoadModelConfig(cmd.Config); err != nil {
			return err
		}
	}
	mdl, err := buildModel(cfg, channels)
	if err != nil {
		return err
	}

	initial := mdl.InitialState()
	filter := kalman.NewFilter(initial.State.Len(), channels)
	if err := filter.Reset(initial.State, initial.Covariance); err != nil {
		return err
	}
	if cfg.SnapEpsilon > 0 {
		filter.SnapEpsilon = cfg.SnapEpsilon
	}
	if cfg.DominanceMargin > 0 {
		filter.DominanceMargin = cfg.DominanceMargin
	}
	log.Infof("model %s, %d state dims, %d channels", cfg.Model, filter.StateDims(), channels)

	recorder := kalman.NewRecorder(filter.StateDims(), channels, cmd.Precision)
	if cmd.Output == "-" {
		err = recorder.Open(os.Stdout)
	} else {
		err = recorder.OpenFile(cmd.Output)
	}
	if err != nil {
		// diagnostics are non-authoritative, keep estimating without them
		log.Warnf("diagnostics log disabled, %s", err.Error())
	}
	defer recorder.Close()

	updateTimer := gometrics.GetOrRegisterTimer("estimator:update", gometrics.DefaultRegistry)

	cycle := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("cycle %d: %w", cycle+1, err)
		}
		cycle++

		dts, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return fmt.Errorf("cycle %d: bad time step %q", cycle, record[0])
		}
		readings := map[int]float64{}
		for ch := 0; ch < channels; ch++ {
			field := strings.TrimSpace(record[ch+1])
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("cycle %d: bad reading %q for channel %s", cycle, field, header[ch+1])
			}
			readings[ch] = v
		}

		dt := time.Duration(dts * float64(time.Second))
		if err := filter.Predict(dt, mdl); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		if err := filter.ApplyObservationModel(mdl); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		recorder.Predicted(filter.StateVector())
		recorder.Observations(filter.PredictedObservation(), readings)

		for ch, v := range readings {
			if err := filter.Observe(ch, v); err != nil {
				return fmt.Errorf("cycle %d: %w", cycle, err)
			}
		}
		if filter.HasObservations() {
			var updateErr error
			updateTimer.Time(func() {
				updateErr = filter.Update()
			})
			if updateErr != nil {
				return fmt.Errorf("cycle %d: %w", cycle, updateErr)
			}
		}
		recorder.Estimated(filter.StateVector())

		if log.TraceEnabled() {
			log.Tracef("cycle %d: %d readings, state %v", cycle, len(readings), filter.StateVector().RawVector().Data)
		}
	}
	log.Infof("%d cycles, update mean %s", cycle, time.Duration(updateTimer.Mean()))

	if cmd.Summary {
		renderSummary(os.Stdout, filter)
	}
	return nil
}

func renderSummary(w io.Writer, filter *kalman.Filter) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"STATE", "ESTIMATE", "VARIANCE"})
	for i := 0; i < filter.StateDims(); i++ {
		v, _ := filter.State(i)
		p, _ := filter.Covariance(i, i)
		t.AppendRow(table.Row{fmt.Sprintf("x_%d", i), v, p})
	}
	style := table.StyleLight
	t.SetStyle(style)
	t.Render()
}

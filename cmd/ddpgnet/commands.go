package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/ddpgnet/internal/config"
	"github.com/samuelfneumann/ddpgnet/model"
	"github.com/samuelfneumann/ddpgnet/network"
	"github.com/samuelfneumann/ddpgnet/utils/matutils"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build both networks and evaluate them on a zero input",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := load()
		if err != nil {
			return err
		}
		return inspect(cmd.OutOrStdout(), logger, cfg)
	},
}

var outFile string

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Build both networks and write actor then critic checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := load()
		if err != nil {
			return err
		}
		return save(outFile, logger, cfg)
	},
}

func init() {
	saveCmd.Flags().StringVarP(&outFile, "out", "o", "", "Checkpoint file")
	saveCmd.MarkFlagRequired("out")
}

// build constructs the actor and critic described by c
func build(logger *slog.Logger, c *config.Config) (*model.Actor,
	*model.Critic, error) {
	actor, err := c.Actor().Create(c.StateSize, c.ActionSize, c.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create actor: %w", err)
	}
	summarize(logger, "actor", actor.Network())

	critic, err := c.Critic().Create(c.StateSize, c.ActionSize, c.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create critic: %w", err)
	}
	summarize(logger, "critic", critic.Network())

	return actor, critic, nil
}

// summarize logs the shape of each learnable of net
func summarize(logger *slog.Logger, name string, net network.NeuralNet) {
	total := 0
	for _, node := range net.Learnables() {
		size := node.Shape().TotalSize()
		total += size
		logger.Debug("parameter", "network", name, "node", node.Name(),
			"shape", fmt.Sprint(node.Shape()), "size", size)
	}

	acts := make([]string, 0, net.Layers())
	for _, act := range net.Activations() {
		acts = append(acts, act.String())
	}
	logger.Info("built network", "network", name, "layers", net.Layers(),
		"activations", acts, "parameters", total)
}

func inspect(w io.Writer, logger *slog.Logger, c *config.Config) error {
	actor, critic, err := build(logger, c)
	if err != nil {
		return err
	}

	state := mat.NewVecDense(c.StateSize, nil)
	action, err := actor.Forward(state)
	if err != nil {
		return fmt.Errorf("could not evaluate actor: %w", err)
	}
	logger.Debug("evaluated actor", "state", matutils.Format(state.T()),
		"action", matutils.Format(action))

	value, err := critic.Forward(mat.NewDense(1, c.StateSize, nil),
		mat.NewDense(1, c.ActionSize, nil))
	if err != nil {
		return fmt.Errorf("could not evaluate critic: %w", err)
	}

	report := struct {
		Config *config.Config `yaml:"config"`
		Action []float64      `yaml:"action"`
		Value  float64        `yaml:"value"`
	}{
		Config: c,
		Action: action.RawRowView(0),
		Value:  value.AtVec(0),
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return enc.Close()
}

func save(path string, logger *slog.Logger, c *config.Config) error {
	actor, critic, err := build(logger, c)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create checkpoint: %w", err)
	}
	defer f.Close()

	if err := actor.Save(f); err != nil {
		return fmt.Errorf("could not save actor: %w", err)
	}
	if err := critic.Save(f); err != nil {
		return fmt.Errorf("could not save critic: %w", err)
	}
	if err := f.Sync(); err != nil {
		return err
	}

	logger.Info("saved checkpoint", "path", path)
	return nil
}

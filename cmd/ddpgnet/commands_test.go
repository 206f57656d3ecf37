package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/ddpgnet/internal/config"
	"github.com/samuelfneumann/ddpgnet/internal/logging"
	"github.com/samuelfneumann/ddpgnet/model"
)

func small() *config.Config {
	c := config.Default()
	c.StateSize, c.ActionSize = 3, 2
	c.ActorFC1Units, c.ActorFC2Units = 8, 6
	c.CriticFCS1Units, c.CriticFC2Units = 8, 6
	return c
}

func TestInspect(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, inspect(&buf, logging.NewNop(), small()))

	var report struct {
		Config config.Config `yaml:"config"`
		Action []float64     `yaml:"action"`
		Value  float64       `yaml:"value"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, 3, report.Config.StateSize)
	require.Len(t, report.Action, 2)
	for _, a := range report.Action {
		assert.True(t, a >= -1 && a <= 1)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ddpg.gob")
	c := small()
	require.NoError(t, save(path, logging.NewNop(), c))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := bufio.NewReader(f)
	actor, err := model.LoadActor(r)
	require.NoError(t, err)
	assert.Equal(t, c.StateSize, actor.StateSize())
	assert.Equal(t, c.Seed, actor.Seed())

	critic, err := model.LoadCritic(r)
	require.NoError(t, err)
	assert.Equal(t, c.ActionSize, critic.ActionSize())
	assert.Equal(t, c.CriticFCS1Units, critic.Config().FCS1Units)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "critic_fcs1_units", key("critic-fcs1-units"))
}

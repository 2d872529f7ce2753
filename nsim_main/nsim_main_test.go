// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package nsim_main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/types"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.Nil(t, err)

	assert.Equal(t, types.QueueKindHeap, cfg.Simulator.Scheduler.QueueKind)
	assert.Equal(t, 100, cfg.Simulator.TaskQueueSize)
	assert.True(t, cfg.Packet.Enabled)
	assert.True(t, cfg.Packet.Checking)
	assert.Equal(t, "off", cfg.Pcap.LinkType)
	assert.False(t, cfg.Batch)

	stopAt, err := cfg.StopTime()
	require.Nil(t, err)
	assert.Equal(t, types.Never, stopAt)
}

func TestLoadConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "nsim.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(`
simulator:
  scheduler:
    queue: map
packet:
  checking: false
stop-at: 2.5s
pcap:
  link-type: raw
  file: out.pcap
`), 0644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(fn)
	require.Nil(t, v.ReadInConfig())
	cfg, err := LoadWithViper(v)
	require.Nil(t, err)

	assert.Equal(t, types.QueueKindMap, cfg.Simulator.Scheduler.QueueKind)
	assert.True(t, cfg.Packet.Enabled)
	assert.False(t, cfg.Packet.Checking)
	assert.Equal(t, "raw", cfg.Pcap.LinkType)
	assert.Equal(t, "out.pcap", cfg.Pcap.File)
	stopAt, err := cfg.StopTime()
	require.Nil(t, err)
	assert.Equal(t, types.MilliSeconds(2500), stopAt)
}

func TestLoadInvalid(t *testing.T) {
	for key, val := range map[string]string{
		"resolution":     "fortnight",
		"log":            "loud",
		"pcap.link-type": "ieee802154",
	} {
		v := viper.New()
		SetDefaults(v)
		v.Set(key, val)
		_, err := LoadWithViper(v)
		assert.NotNil(t, err, key)
	}

	v := viper.New()
	SetDefaults(v)
	v.Set("stop-at", "soon")
	cfg, err := LoadWithViper(v)
	require.Nil(t, err)
	_, err = cfg.StopTime()
	assert.NotNil(t, err)

	v.Set("simulator.scheduler.queue", "skiplist")
	cfg, err = LoadWithViper(v)
	require.Nil(t, err)
	cfg.StopAt = ""
	_, err = createSimulator(cfg)
	assert.NotNil(t, err)
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, name := range []string{"config", "queue", "resolution", "stop-at", "log", "metadata", "checking",
		"pcap", "pcap-file", "scenario", "metrics", "stats-log", "batch", "seed"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestMainBatch(t *testing.T) {
	level := logger.GetLevel()
	defer logger.SetLevel(level)

	dir := t.TempDir()
	scenarioFile := filepath.Join(dir, "scenario.yaml")
	require.Nil(t, os.WriteFile(scenarioFile, []byte(`
stop-at: 1s
events:
  - at: "0"
    cmd: packet new 20
  - at: 1ms
    cmd: packet 1 add udp
  - at: 1ms
    cmd: packet 1 add ipv4
  - at: 2ms
    cmd: packet 1 send 10ms
  - at: 5s
    cmd: packet new 30
`), 0644))
	pcapFile := filepath.Join(dir, "trace.pcap")

	v := viper.New()
	SetDefaults(v)
	v.Set("scenario", scenarioFile)
	v.Set("pcap.link-type", "raw")
	v.Set("pcap.file", pcapFile)
	v.Set("batch", true)
	v.Set("stats-log", filepath.Join(dir, "stats.csv"))
	cfg, err := LoadWithViper(v)
	require.Nil(t, err)

	ctx := progctx.New(nil)
	require.Nil(t, Main(ctx, cfg, nil))
	assert.NotNil(t, ctx.Err())

	st, err := os.Stat(pcapFile)
	require.Nil(t, err)
	// file header, one frame header and 20+8+20 bytes of packet
	assert.Equal(t, int64(24+16+48), st.Size())

	stats, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(string(stats), "timeSec,executed,"))
}

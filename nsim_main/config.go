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
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/packet"
	"github.com/openthread/nsim/pcap"
	"github.com/openthread/nsim/simulator"
	"github.com/openthread/nsim/types"
)

type PcapConfig struct {
	File     string `mapstructure:"file" yaml:"file"`
	LinkType string `mapstructure:"link-type" yaml:"link-type"`
}

// Config is the complete nsim configuration, read from a YAML file and overridden by flags.
type Config struct {
	Simulator  simulator.Config `mapstructure:"simulator" yaml:"simulator"`
	Packet     packet.Config    `mapstructure:"packet" yaml:"packet"`
	Resolution string           `mapstructure:"resolution" yaml:"resolution"`
	StopAt     string           `mapstructure:"stop-at" yaml:"stop-at"`
	LogLevel   string           `mapstructure:"log" yaml:"log"`
	Pcap       PcapConfig       `mapstructure:"pcap" yaml:"pcap"`
	Scenario   string           `mapstructure:"scenario" yaml:"scenario"`
	Metrics    string           `mapstructure:"metrics" yaml:"metrics"`
	StatsLog   string           `mapstructure:"stats-log" yaml:"stats-log"`
	Batch      bool             `mapstructure:"batch" yaml:"batch"`
	// Seed of the random source; 0 picks a time-based seed.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// SetDefaults configures default values for the configuration.
func SetDefaults(v *viper.Viper) {
	simCfg := simulator.DefaultConfig()
	pktCfg := packet.DefaultConfig()

	v.SetDefault("simulator.scheduler.queue", string(simCfg.Scheduler.QueueKind))
	v.SetDefault("simulator.task-queue-size", simCfg.TaskQueueSize)
	v.SetDefault("packet.enabled", pktCfg.Enabled)
	v.SetDefault("packet.checking", pktCfg.Checking)
	v.SetDefault("packet.free-list-cap", pktCfg.FreeListCap)
	v.SetDefault("resolution", types.ResolutionNsStr)
	v.SetDefault("log", "warn")
	v.SetDefault("pcap.file", "current.pcap")
	v.SetDefault("pcap.link-type", "off")
}

// LoadWithViper unmarshals v into a Config and validates the settings that need no side effects.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	cfg := Config{
		Simulator: *simulator.DefaultConfig(),
		Packet:    *packet.DefaultConfig(),
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config")
	}
	if _, err := types.ParseResolution(cfg.Resolution); err != nil {
		return nil, err
	}
	if _, err := logger.ParseLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	if pcap.ParseLinkTypeStr(cfg.Pcap.LinkType) == pcap.LinkTypeUnknown {
		return nil, errors.Errorf("unknown pcap link type: %s", cfg.Pcap.LinkType)
	}
	return &cfg, nil
}

// StopTime parses the stop-at setting, which depends on the time resolution in effect.
// An empty setting means Never.
func (cfg *Config) StopTime() (types.Time, error) {
	if cfg.StopAt == "" {
		return types.Never, nil
	}
	t, err := types.ParseTime(cfg.StopAt)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid stop-at")
	}
	return t, nil
}

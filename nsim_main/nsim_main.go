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

// Package nsim_main wires the simulator, packet metadata, the console and the optional outputs into
// the nsim program.
package nsim_main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openthread/nsim/cli"
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/packet"
	"github.com/openthread/nsim/pcap"
	"github.com/openthread/nsim/prng"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/scenario"
	"github.com/openthread/nsim/simulator"
	"github.com/openthread/nsim/statslog"
	"github.com/openthread/nsim/types"
)

var (
	version = "0.1.0"
)

// NewRootCommand builds the nsim command. Flags override values of the optional config file.
func NewRootCommand(cliOptions *cli.CliOptions) *cobra.Command {
	var cfgFile string
	v := viper.New()
	SetDefaults(v)

	rootCmd := &cobra.Command{
		Use:   "nsim",
		Short: "Discrete-event network simulator core with an interactive console",
		Long: `nsim runs a discrete-event scheduler in virtual time. Events are scheduled from the
console or from a scenario file, and packets with layer metadata can be built, fragmented,
reassembled and written to a pcap trace.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "failed to read config file")
				}
			}
			cfg, err := LoadWithViper(v)
			if err != nil {
				return err
			}
			return Main(progctx.New(nil), cfg, cliOptions)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "YAML configuration file")
	flags.String("queue", string(types.DefaultQueueKind), "event queue implementation: heap, list or map")
	flags.String("resolution", types.ResolutionNsStr, "time resolution: ns, us, ms or s")
	flags.String("stop-at", "", "stop the simulation at this virtual time, e.g. 10s")
	flags.String("log", "warn", "log level: micro, trace, debug, info, note, warn, error or off")
	flags.Bool("metadata", true, "record packet metadata")
	flags.Bool("checking", true, "make packet metadata mismatches fatal")
	flags.String("pcap", "off", "pcap link type for sent packets: off, raw or ethernet")
	flags.String("pcap-file", "current.pcap", "pcap output file")
	flags.String("scenario", "", "YAML scenario file with timed console commands")
	flags.String("metrics", "", "serve Prometheus metrics at this address, e.g. localhost:9100")
	flags.String("stats-log", "", "write a CSV log of simulation stats to this file")
	flags.Bool("batch", false, "run the simulation to completion without a console")
	flags.Int64("seed", 0, "random seed, 0 for a time-based seed")

	bindFlag(v, rootCmd, "queue", "simulator.scheduler.queue")
	bindFlag(v, rootCmd, "resolution", "resolution")
	bindFlag(v, rootCmd, "stop-at", "stop-at")
	bindFlag(v, rootCmd, "log", "log")
	bindFlag(v, rootCmd, "metadata", "packet.enabled")
	bindFlag(v, rootCmd, "checking", "packet.checking")
	bindFlag(v, rootCmd, "pcap", "pcap.link-type")
	bindFlag(v, rootCmd, "pcap-file", "pcap.file")
	bindFlag(v, rootCmd, "scenario", "scenario")
	bindFlag(v, rootCmd, "metrics", "metrics")
	bindFlag(v, rootCmd, "stats-log", "stats-log")
	bindFlag(v, rootCmd, "batch", "batch")
	bindFlag(v, rootCmd, "seed", "seed")
	return rootCmd
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, flagName, configKey string) {
	_ = v.BindPFlag(configKey, cmd.Flags().Lookup(flagName))
}

// Main runs nsim with cfg until the console exits, or in batch mode until the simulation finishes.
func Main(ctx *progctx.ProgCtx, cfg *Config, cliOptions *cli.CliOptions) error {
	lv, err := logger.ParseLevelString(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(lv)

	res, err := types.ParseResolution(cfg.Resolution)
	if err != nil {
		return err
	}
	if err = types.SetResolution(res); err != nil {
		return err
	}

	seed := prng.Init(prng.RandomSeed(cfg.Seed))
	logger.Infof("random seed: %d", seed)

	sim, err := createSimulator(cfg)
	if err != nil {
		return err
	}
	logger.SetSimTimeSource(sim)

	if cfg.Metrics != "" {
		m, err := simulator.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		sim.SetMetrics(m)
		serveMetrics(ctx, cfg.Metrics, m)
	}

	factory := packet.NewMetadataFactory(&cfg.Packet)
	if cfg.StatsLog != "" {
		sl := statslog.New(cfg.StatsLog, factory.Pool())
		if err := sl.Init(); err != nil {
			return err
		}
		sim.SetObserver(sl)
		// runs after the simulator stopped serving
		defer sl.Close(sim)
	}

	rt := cli.NewCmdRunner(ctx, sim, factory, eventWriter{os.Stdout})
	if lt := pcap.ParseLinkTypeStr(cfg.Pcap.LinkType); lt != pcap.LinkTypeOff {
		pf, err := pcap.NewFile(cfg.Pcap.File, lt)
		if err != nil {
			return err
		}
		defer func() {
			if err := pf.Close(); err != nil {
				logger.Errorf("pcap close failed: %v", err)
			}
		}()
		rt.SetPcap(pf)
	}

	if cfg.Scenario != "" {
		sc, err := scenario.Load(cfg.Scenario)
		if err != nil {
			return err
		}
		ids := sc.Schedule(sim, rt.RunInLoop)
		logger.Infof("scenario %s: %d commands scheduled", cfg.Scenario, len(ids))
	}

	if cfg.Batch {
		sim.Run()
		logger.Infof("simulation finished at %v after %d events", sim.Now(), sim.EventCount())
		sim.Destroy()
		ctx.Cancel("batch done")
		ctx.Wait()
		return nil
	}

	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})
	handleSignals(ctx)
	logger.SetStdoutCallback(cli.Cli)

	serving := make(chan struct{})
	sim.PostAsync(false, func() {
		close(serving)
	})
	go sim.Serve(ctx)
	<-serving

	err = cli.Cli.Run(rt, cliOptions)
	ctx.Cancel(errors.Wrapf(err, "console exit"))

	logger.Debugf("waiting for nsim to stop gracefully ...")
	ctx.Wait()
	sim.Destroy()
	return nil
}

func createSimulator(cfg *Config) (*simulator.Simulator, error) {
	stopAt, err := cfg.StopTime()
	if err != nil {
		return nil, err
	}
	simCfg := cfg.Simulator
	simCfg.StopAt = stopAt
	return simulator.New(&simCfg)
}

// eventWriter redraws the console prompt after output of scheduled commands.
type eventWriter struct {
	w io.Writer
}

func (ew eventWriter) Write(p []byte) (int, error) {
	n, err := ew.w.Write(p)
	cli.Cli.OnStdout()
	return n, err
}

func serveMetrics(ctx *progctx.ProgCtx, addr string, m *simulator.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx.WaitAdd("metrics", 1)
	go func() {
		defer ctx.WaitDone("metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics server exited: %v", err)
		}
	}()
	ctx.Defer(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	logger.Infof("serving Prometheus metrics at %s/metrics", addr)
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

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

package cli

import (
	"fmt"
	"io"
	"net"
	"reflect"

	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/nsim/event"
	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/packet"
	"github.com/openthread/nsim/pcap"
	"github.com/openthread/nsim/prng"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/simulator"
	"github.com/openthread/nsim/types"
)

const (
	Prompt = "> "
)

var (
	CommandInterruptedError = errors.New("command interrupted due to program exit")
	goEverChunk             = types.Seconds(3600)
)

type CommandContext struct {
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes CLI commands against a served Simulator. Packets and timers created by commands
// are only touched on the simulator goroutine.
type CmdRunner struct {
	sim      *simulator.Simulator
	ctx      *progctx.ProgCtx
	factory  *packet.MetadataFactory
	pcap     pcap.File
	help     Help
	eventOut io.Writer
	inLoop   bool

	packets      map[int]*packet.Packet
	nextPacketId int
	timers       map[int]event.Id
	nextTimerId  int
}

// NewCmdRunner creates a runner. Output of scheduled commands, such as echo timers, goes to eventOut.
func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulator.Simulator, factory *packet.MetadataFactory, eventOut io.Writer) *CmdRunner {
	return &CmdRunner{
		ctx:          ctx,
		sim:          sim,
		factory:      factory,
		help:         newHelp(),
		eventOut:     eventOut,
		packets:      map[int]*packet.Packet{},
		nextPacketId: 1,
		timers:       map[int]event.Id{},
		nextTimerId:  1,
	}
}

// SetPcap makes sent packets appear in f.
func (rt *CmdRunner) SetPcap(f pcap.File) {
	rt.pcap = f
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

// RunInLoop runs cmdline from inside a simulation event, such as a scenario entry. Commands that
// advance the simulation are refused there.
func (rt *CmdRunner) RunInLoop(cmdline string) {
	rt.inLoop = true
	defer func() {
		rt.inLoop = false
	}()
	logger.Debugf("scenario command: %s", cmdline)
	_ = rt.RunCommand(cmdline, rt.eventOut)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.At != nil {
		rt.executeAt(cc, cmd.At)
	} else if cmd.Every != nil {
		rt.executeEvery(cc, cmd.Every)
	} else if cmd.Cancel != nil {
		rt.executeCancel(cc, cmd.Cancel)
	} else if cmd.Events != nil {
		rt.executeEvents(cc)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Run != nil {
		rt.executeRun(cc)
	} else if cmd.Time != nil {
		rt.executeTime(cc)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc)
	} else if cmd.Pool != nil {
		rt.executePool(cc)
	} else if cmd.Packet != nil {
		rt.executePacket(cc, cmd.Packet)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// postAsyncWait runs f on the simulator goroutine and waits for it. Inside a simulation event f
// runs directly.
func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulator.Simulator)) {
	if rt.inLoop {
		f(rt.sim)
		return
	}

	done := make(chan struct{})
	rt.sim.PostAsync(false, func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		defer func() {
			if r := recover(); r != nil {
				cc.errorf("panic: %v", r)
			}
		}()
		f(rt.sim)
	})
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) refuseInLoop(cc *CommandContext, name string) bool {
	if rt.inLoop {
		cc.errorf("'%s' cannot run inside a simulation event", name)
		return true
	}
	return false
}

func parseTimeArg(cc *CommandContext, arg *TimeArg) (types.Time, bool) {
	t, err := types.ParseTime(arg.Val)
	if err != nil {
		cc.error(err)
		return 0, false
	}
	return t, true
}

func (rt *CmdRunner) echo(text string) {
	_, _ = fmt.Fprintf(rt.eventOut, "[%v] %s\n", rt.sim.Now(), text)
}

func (rt *CmdRunner) executeAt(cc *CommandContext, cmd *AtCmd) {
	delay, ok := parseTimeArg(cc, &cmd.Time)
	if !ok {
		return
	}
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		timerId := rt.nextTimerId
		rt.nextTimerId++
		rt.timers[timerId] = sim.Schedule(delay, event.InvokerFunc(func() {
			delete(rt.timers, timerId)
			rt.echo(cmd.Echo.Text)
		}))
		cc.outputf("%d\n", timerId)
	})
}

func (rt *CmdRunner) executeEvery(cc *CommandContext, cmd *EveryCmd) {
	interval, ok := parseTimeArg(cc, &cmd.Interval)
	if !ok {
		return
	}
	if interval == 0 {
		cc.errorf("interval must be positive")
		return
	}
	var jitter types.Time
	if cmd.Jitter != nil {
		if jitter, ok = parseTimeArg(cc, &cmd.Jitter.Max); !ok {
			return
		}
	}
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		timerId := rt.nextTimerId
		rt.nextTimerId++
		var tick func()
		tick = func() {
			rt.echo(cmd.Echo.Text)
			rt.timers[timerId] = sim.Schedule(interval+prng.NewJitter(jitter), event.InvokerFunc(tick))
		}
		rt.timers[timerId] = sim.Schedule(interval+prng.NewJitter(jitter), event.InvokerFunc(tick))
		cc.outputf("%d\n", timerId)
	})
}

func (rt *CmdRunner) executeCancel(cc *CommandContext, cmd *CancelCmd) {
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		id, ok := rt.timers[cmd.Id]
		if !ok {
			cc.errorf("timer %d not found", cmd.Id)
			return
		}
		sim.Cancel(id)
		delete(rt.timers, cmd.Id)
	})
}

type eventInfo struct {
	Uid     uint64 `yaml:"uid"`
	Time    string `yaml:"time"`
	Context string `yaml:"ctx,omitempty"`
}

func (rt *CmdRunner) executeEvents(cc *CommandContext) {
	var infos []eventInfo
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		for _, ev := range sim.PendingEvents() {
			info := eventInfo{
				Uid:  ev.Uid,
				Time: ev.Time.String(),
			}
			if ev.Context != types.NoContext {
				info.Context = fmt.Sprintf("%d", ev.Context)
			}
			infos = append(infos, info)
		}
	})
	if len(infos) > 0 {
		cc.outputItemsAsYaml(infos)
	}
}

func (rt *CmdRunner) waitGo(cc *CommandContext, duration types.Time) {
	done := rt.sim.Go(duration)
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if rt.refuseInLoop(cc, "go") {
		return
	}
	if cmd.Ever == nil {
		duration, ok := parseTimeArg(cc, cmd.Time)
		if !ok {
			return
		}
		rt.waitGo(cc, duration)
		return
	}

	for { // run forever but stop if rt.ctx.Err indicates "done"
		rt.waitGo(cc, goEverChunk)
		if rt.ctx.Err() != nil || cc.err != nil {
			break
		}
		finished := false
		rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
			finished = sim.IsFinished()
		})
		if finished {
			break
		}
	}
}

func (rt *CmdRunner) executeRun(cc *CommandContext) {
	if rt.refuseInLoop(cc, "run") {
		return
	}
	rt.waitGo(cc, types.Never)
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	var now types.Time
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		now = sim.Now()
	})
	cc.outputf("%v\n", now)
}

func (rt *CmdRunner) outputStruct(cc *CommandContext, v interface{}) {
	val := reflect.ValueOf(v)
	typ := reflect.TypeOf(v)
	for i := 0; i < val.NumField(); i++ {
		cc.outputf("%-20s %v\n", typ.Field(i).Name, val.Field(i).Interface())
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext) {
	var counters simulator.Counters
	var pending, slots int
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		counters = sim.Counters()
		pending = sim.PendingCount()
		slots = sim.QueueLen()
	})
	rt.outputStruct(cc, counters)
	cc.outputf("%-20s %v\n", "Pending", pending)
	cc.outputf("%-20s %v\n", "QueueSlots", slots)
}

func (rt *CmdRunner) executePool(cc *CommandContext) {
	var stats packet.PoolStats
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		stats = rt.factory.Pool().Stats()
	})
	rt.outputStruct(cc, stats)
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevel())
		return
	}
	lv, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(lv)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext) {
	if rt.refuseInLoop(cc, "exit") {
		return
	}
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		sim.Stop()
	})
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executePacket(cc *CommandContext, cmd *PacketCmd) {
	rt.postAsyncWait(cc, func(sim *simulator.Simulator) {
		if cmd.New != nil {
			if cmd.New.Size < 0 {
				cc.errorf("invalid packet size %d", cmd.New.Size)
				return
			}
			cc.outputf("%d\n", rt.addPacket(packet.NewPacket(rt.factory, uint32(cmd.New.Size))))
			return
		}

		op := cmd.Op
		p, ok := rt.packets[op.Id]
		if !ok {
			cc.errorf("packet %d not found", op.Id)
			return
		}
		if op.Add != nil {
			p.AddHeader(packet.NewLayerHeader(newLayer(op.Add.Name, p)))
		} else if op.Remove != nil {
			rt.removeLayer(cc, p, op.Remove.Name)
		} else if op.Frag != nil {
			if op.Frag.Start < 0 || op.Frag.End < op.Frag.Start || op.Frag.End > int(p.Size()) {
				cc.errorf("invalid fragment [%d:%d) of %d-byte packet", op.Frag.Start, op.Frag.End, p.Size())
				return
			}
			frag := p.CreateFragment(uint32(op.Frag.Start), uint32(op.Frag.End-op.Frag.Start))
			cc.outputf("%d\n", rt.addPacket(frag))
		} else if op.Join != nil {
			other, ok := rt.packets[op.Join.Other]
			if !ok {
				cc.errorf("packet %d not found", op.Join.Other)
				return
			}
			p.AddAtEnd(other)
		} else if op.Info != nil {
			rt.outputPacketInfo(cc, p)
		} else if op.Send != nil {
			delay, ok := parseTimeArg(cc, &op.Send.Delay)
			if ok {
				rt.sendPacket(sim, op.Id, p.Copy(), delay)
			}
		}
	})
}

func (rt *CmdRunner) addPacket(p *packet.Packet) int {
	id := rt.nextPacketId
	rt.nextPacketId++
	rt.packets[id] = p
	return id
}

// newLayer creates a layer with fixed test addresses. An IPv4 layer carries the protocol of the
// header it is put in front of.
func newLayer(name string, p *packet.Packet) packet.Layer {
	switch name {
	case "ipv4":
		proto := layers.IPProtocolUDP
		if items := p.Metadata().Items(); len(items) > 0 && items[0].TypeId.Name() == layers.LayerTypeTCP.String() {
			proto = layers.IPProtocolTCP
		}
		return &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: proto,
			SrcIP:    net.IPv4(10, 0, 0, 1),
			DstIP:    net.IPv4(10, 0, 0, 2),
		}
	case "udp":
		return &layers.UDP{SrcPort: 49152, DstPort: 5683}
	case "tcp":
		return &layers.TCP{SrcPort: 49152, DstPort: 80, Seq: 1, Window: 65535, SYN: true}
	default:
		logger.Panicf("unknown layer %s", name)
		return nil
	}
}

func (rt *CmdRunner) removeLayer(cc *CommandContext, p *packet.Packet, name string) {
	h := packet.NewLayerHeader(newLayer(name, p))
	if rt.factory.Config().Enabled {
		items := p.Metadata().Items()
		if len(items) == 0 || items[0].TypeId != h.TypeId() || items[0].IsFragment {
			cc.errorf("packet does not start with a complete %s header", h.TypeId())
			return
		}
	}
	if p.RemoveHeader(h) == 0 {
		cc.errorf("no %s header in packet", h.TypeId())
	}
}

type itemInfo struct {
	Type     string `yaml:"type"`
	Offset   uint32 `yaml:"offset"`
	Size     uint32 `yaml:"size"`
	Fragment string `yaml:"fragment,omitempty"`
}

func (rt *CmdRunner) outputPacketInfo(cc *CommandContext, p *packet.Packet) {
	cc.outputf("uid=%d size=%d\n", p.Uid(), p.Size())
	var infos []itemInfo
	for _, it := range p.Metadata().Items() {
		info := itemInfo{
			Type:   it.TypeId.String(),
			Offset: it.Offset,
			Size:   it.CurrentSize,
		}
		if it.IsFragment {
			info.Fragment = fmt.Sprintf("%d:%d", it.CurrentTrimmedFromStart, it.CurrentTrimmedFromStart+it.CurrentSize)
		}
		infos = append(infos, info)
	}
	if len(infos) > 0 {
		cc.outputItemsAsYaml(infos)
	}
}

func (rt *CmdRunner) sendPacket(sim *simulator.Simulator, id int, p *packet.Packet, delay types.Time) {
	sim.Schedule(delay, event.InvokerFunc(func() {
		defer p.Release()
		rt.echo(fmt.Sprintf("sent packet %d: %v", id, p))
		if rt.pcap == nil {
			return
		}
		err := rt.pcap.AppendFrame(pcap.Frame{
			Timestamp: sim.Now(),
			Data:      p.Bytes(),
		})
		if err != nil {
			logger.Errorf("pcap write failed: %v", err)
		}
	}))
}

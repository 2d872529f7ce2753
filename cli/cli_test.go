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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/packet"
	"github.com/openthread/nsim/prng"
	"github.com/openthread/nsim/progctx"
	"github.com/openthread/nsim/simulator"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	assert.NotNil(t, parseBytes([]byte("wrongcmd"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("at 1.5s echo \"hello world\""), &cmd))
	require.NotNil(t, cmd.At)
	assert.Equal(t, "1.5s", cmd.At.Time.Val)
	assert.Equal(t, "hello world", cmd.At.Echo.Text)
	assert.NotNil(t, parseBytes([]byte("at 1s"), &cmd))
	assert.NotNil(t, parseBytes([]byte("at echo \"x\""), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("every 64us echo \"tick\""), &cmd))
	require.NotNil(t, cmd.Every)
	assert.Equal(t, "64us", cmd.Every.Interval.Val)
	assert.Nil(t, cmd.Every.Jitter)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("every 1s jitter 10ms echo \"tick\""), &cmd))
	require.NotNil(t, cmd.Every.Jitter)
	assert.Equal(t, "10ms", cmd.Every.Jitter.Max.Val)

	cmd = Command{}
	assert.True(t, parseBytes([]byte("cancel 3"), &cmd) == nil && cmd.Cancel != nil && cmd.Cancel.Id == 3)
	assert.NotNil(t, parseBytes([]byte("cancel"), &cmd))

	cmd = Command{}
	assert.True(t, parseBytes([]byte("events"), &cmd) == nil && cmd.Events != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("counters"), &cmd) == nil && cmd.Counters != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("pool"), &cmd) == nil && cmd.Pool != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("time"), &cmd) == nil && cmd.Time != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("run"), &cmd) == nil && cmd.Run != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)

	for _, goCmd := range []string{"go 1", "go 1.1", "go 64us", "go 5h", "go 10ms"} {
		cmd = Command{}
		assert.Nil(t, parseBytes([]byte(goCmd), &cmd), goCmd)
		require.NotNil(t, cmd.Go)
		require.NotNil(t, cmd.Go.Time)
	}
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("go ever"), &cmd))
	assert.True(t, cmd.Go != nil && cmd.Go.Ever != nil && cmd.Go.Time == nil)

	cmd = Command{}
	assert.True(t, parseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil && cmd.Help.HelpTopic == "")
	cmd = Command{}
	assert.True(t, parseBytes([]byte("help packet"), &cmd) == nil && cmd.Help.HelpTopic == "packet")

	cmd = Command{}
	assert.True(t, parseBytes([]byte("loglevel"), &cmd) == nil && cmd.LogLevel != nil)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("loglevel debug"), &cmd) == nil && cmd.LogLevel.Level == "debug")
	assert.NotNil(t, parseBytes([]byte("loglevel loud"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet new 100"), &cmd))
	assert.True(t, cmd.Packet != nil && cmd.Packet.New != nil && cmd.Packet.New.Size == 100)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet 2 add ipv4"), &cmd))
	assert.True(t, cmd.Packet.Op != nil && cmd.Packet.Op.Id == 2 && cmd.Packet.Op.Add.Name == "ipv4")
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet 2 remove tcp"), &cmd))
	assert.Equal(t, "tcp", cmd.Packet.Op.Remove.Name)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet 2 frag 10 20"), &cmd))
	assert.True(t, cmd.Packet.Op.Frag.Start == 10 && cmd.Packet.Op.Frag.End == 20)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet 2 join 3"), &cmd))
	assert.Equal(t, 3, cmd.Packet.Op.Join.Other)
	cmd = Command{}
	assert.True(t, parseBytes([]byte("packet 2 info"), &cmd) == nil && cmd.Packet.Op.Info != nil)
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("packet 2 send 1ms"), &cmd))
	assert.Equal(t, "1ms", cmd.Packet.Op.Send.Delay.Val)
	assert.NotNil(t, parseBytes([]byte("packet 2 add ipv6"), &cmd))
	assert.NotNil(t, parseBytes([]byte("packet"), &cmd))
}

func TestHelp(t *testing.T) {
	help := newHelp()
	for _, c := range []string{"at", "cancel", "counters", "events", "every", "exit", "go", "help", "loglevel",
		"packet", "pool", "run", "time"} {
		_, ok := help.commands[c]
		assert.True(t, ok, c)
		assert.NotEmpty(t, help.commandsShort[c], c)
	}

	general := help.outputGeneralHelp()
	assert.Contains(t, general, "packet")
	assert.Contains(t, general, "help <command>")

	assert.Contains(t, help.outputCommandHelp("packet"), "packet new <size>")
	assert.Contains(t, help.outputCommandHelp("pac"), "packet new <size>")
	assert.Contains(t, help.outputCommandHelp("nothing"), "Non-existent")
	// "e" is ambiguous
	assert.Contains(t, help.outputCommandHelp("e"), "Non-existent")
}

type testRunner struct {
	t        *testing.T
	ctx      *progctx.ProgCtx
	rt       *CmdRunner
	eventOut *bytes.Buffer
}

func newTestRunner(t *testing.T, serve bool) *testRunner {
	sim, err := simulator.New(nil)
	require.Nil(t, err)
	ctx := progctx.New(nil)
	eventOut := &bytes.Buffer{}
	tr := &testRunner{
		t:        t,
		ctx:      ctx,
		rt:       NewCmdRunner(ctx, sim, packet.NewMetadataFactory(nil), eventOut),
		eventOut: eventOut,
	}
	if serve {
		go sim.Serve(ctx)
	}
	return tr
}

func (tr *testRunner) run(cmdline string) string {
	var out bytes.Buffer
	_ = tr.rt.RunCommand(cmdline, &out)
	return out.String()
}

func (tr *testRunner) stop() {
	tr.ctx.Cancel("test done")
	tr.ctx.Wait()
}

func TestCmdRunnerTimers(t *testing.T) {
	tr := newTestRunner(t, true)
	defer tr.stop()

	assert.Equal(t, "1\nDone\n", tr.run("at 1.5s echo \"hello\""))
	assert.Equal(t, "2\nDone\n", tr.run("every 1s echo \"tick\""))
	assert.Contains(t, tr.run("events"), "uid:")
	assert.Equal(t, "Done\n", tr.run("go 3s"))
	assert.Equal(t, "[1s] tick\n[1.5s] hello\n[2s] tick\n[3s] tick\n", tr.eventOut.String())
	assert.Equal(t, "3s\nDone\n", tr.run("time"))

	assert.Equal(t, "Done\n", tr.run("cancel 2"))
	assert.Contains(t, tr.run("cancel 1"), "Error: timer 1 not found")
	assert.Equal(t, "Done\n", tr.run("events"))

	counters := tr.run("counters")
	assert.Contains(t, counters, "Executed")
	assert.Contains(t, counters, "Cancelled")

	tr.eventOut.Reset()
	assert.Equal(t, "Done\n", tr.run("go ever"))
	assert.Equal(t, "", tr.eventOut.String())
	assert.Equal(t, "Done\n", tr.run("run"))
	assert.Contains(t, tr.run("go soon"), "Error:")
}

func TestCmdRunnerPackets(t *testing.T) {
	tr := newTestRunner(t, true)
	defer tr.stop()

	assert.Equal(t, "1\nDone\n", tr.run("packet new 100"))
	assert.Equal(t, "Done\n", tr.run("packet 1 add udp"))
	assert.Equal(t, "Done\n", tr.run("packet 1 add ipv4"))
	info := tr.run("packet 1 info")
	assert.True(t, strings.HasPrefix(info, "uid=1 size=128\n"), info)
	assert.Contains(t, info, "type: IPv4")
	assert.Contains(t, info, "type: UDP")

	assert.Contains(t, tr.run("packet 1 remove udp"), "Error:")
	assert.Equal(t, "Done\n", tr.run("packet 1 remove ipv4"))
	assert.Contains(t, tr.run("packet 1 remove ipv4"), "Error:")

	assert.Equal(t, "2\nDone\n", tr.run("packet 1 frag 0 50"))
	assert.Equal(t, "3\nDone\n", tr.run("packet 1 frag 50 108"))
	assert.Contains(t, tr.run("packet 1 frag 50 200"), "Error:")
	assert.Contains(t, tr.run("packet 2 info"), "fragment: 0:42")
	assert.Equal(t, "Done\n", tr.run("packet 2 join 3"))
	info = tr.run("packet 2 info")
	assert.Contains(t, info, "size=108")
	assert.NotContains(t, info, "fragment")
	assert.Equal(t, "Done\n", tr.run("packet 2 remove udp"))

	assert.Contains(t, tr.run("packet 9 info"), "Error: packet 9 not found")
	assert.Contains(t, tr.run("packet 1 join 9"), "Error:")

	assert.Equal(t, "Done\n", tr.run("packet 1 send 1ms"))
	assert.Equal(t, "Done\n", tr.run("go 1ms"))
	assert.Contains(t, tr.eventOut.String(), "[1ms] sent packet 1: UDP (8) Payload (size=100)")

	assert.Contains(t, tr.run("pool"), "Allocated")
}

func TestCmdRunnerMisc(t *testing.T) {
	tr := newTestRunner(t, true)
	defer tr.stop()

	level := logger.GetLevel()
	defer logger.SetLevel(level)
	assert.Equal(t, "Done\n", tr.run("loglevel debug"))
	assert.Equal(t, "debug\nDone\n", tr.run("loglevel"))

	prng.Init(1)
	assert.Equal(t, "1\nDone\n", tr.run("every 1s jitter 500ms echo \"j\""))
	assert.Equal(t, "Done\n", tr.run("go 2s"))
	assert.Contains(t, tr.eventOut.String(), "] j\n")
	assert.Contains(t, tr.run("every 0 echo \"z\""), "Error: interval must be positive")

	assert.Contains(t, tr.run("help"), "loglevel")
	assert.Contains(t, tr.run("bogus"), "Error:")

	assert.Equal(t, "Done\n", tr.run("exit"))
	assert.NotNil(t, tr.ctx.Err())
	assert.NotNil(t, tr.rt.RunCommand("time", &bytes.Buffer{}))
}

func TestCmdRunnerInLoop(t *testing.T) {
	tr := newTestRunner(t, false)
	defer tr.stop()

	tr.rt.RunInLoop("packet new 5")
	assert.Equal(t, "1\nDone\n", tr.eventOut.String())

	tr.eventOut.Reset()
	tr.rt.RunInLoop("go 1s")
	assert.Contains(t, tr.eventOut.String(), "Error: 'go' cannot run inside a simulation event")
	tr.eventOut.Reset()
	tr.rt.RunInLoop("exit")
	assert.Contains(t, tr.eventOut.String(), "Error:")
	assert.Nil(t, tr.ctx.Err())
}

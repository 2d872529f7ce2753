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
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	At       *AtCmd       `  @@` //nolint
	Cancel   *CancelCmd   `| @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Events   *EventsCmd   `| @@` //nolint
	Every    *EveryCmd    `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Packet   *PacketCmd   `| @@` //nolint
	Pool     *PoolCmd     `| @@` //nolint
	Run      *RunCmd      `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
}

// noinspection GoStructTag
type TimeArg struct {
	Val string `@((Int|Float)["h"|"m"|"s"|"ms"|"us"|"ns"])` //nolint
}

// noinspection GoStructTag
type EchoArg struct {
	Dummy struct{} `"echo"`  //nolint
	Text  string   `@String` //nolint
}

// noinspection GoStructTag
type AtCmd struct {
	Cmd  struct{} `"at"` //nolint
	Time TimeArg  `@@`   //nolint
	Echo EchoArg  `@@`   //nolint
}

// noinspection GoStructTag
type JitterArg struct {
	Dummy struct{} `"jitter"` //nolint
	Max   TimeArg  `@@`       //nolint
}

// noinspection GoStructTag
type EveryCmd struct {
	Cmd      struct{}   `"every"` //nolint
	Interval TimeArg    `@@`      //nolint
	Jitter   *JitterArg `[ @@ ]`  //nolint
	Echo     EchoArg    `@@`      //nolint
}

// noinspection GoStructTag
type CancelCmd struct {
	Cmd struct{} `"cancel"` //nolint
	Id  int      `@Int`     //nolint
}

// noinspection GoStructTag
type EventsCmd struct {
	Cmd struct{} `"events"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd struct{} `"counters"` //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`   //nolint
	Time *TimeArg  `( @@`   //nolint
	Ever *EverFlag `| @@ )` //nolint
}

// noinspection GoStructTag
type RunCmd struct {
	Cmd struct{} `"run"` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type PoolCmd struct {
	Cmd struct{} `"pool"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"loglevel"`                                                                                       //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"none"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type LayerArg struct {
	Name string `@( "ipv4" | "udp" | "tcp" )` //nolint
}

// noinspection GoStructTag
type NewPacketArgs struct {
	Dummy struct{} `"new"` //nolint
	Size  int      `@Int`  //nolint
}

// noinspection GoStructTag
type FragArgs struct {
	Dummy struct{} `"frag"` //nolint
	Start int      `@Int`   //nolint
	End   int      `@Int`   //nolint
}

// noinspection GoStructTag
type JoinArgs struct {
	Dummy struct{} `"join"` //nolint
	Other int      `@Int`   //nolint
}

// noinspection GoStructTag
type InfoFlag struct {
	Dummy struct{} `"info"` //nolint
}

// noinspection GoStructTag
type SendArgs struct {
	Dummy struct{} `"send"` //nolint
	Delay TimeArg  `@@`     //nolint
}

// noinspection GoStructTag
type PacketOp struct {
	Id     int       `@Int`          //nolint
	Add    *LayerArg `( "add" @@`    //nolint
	Remove *LayerArg `| "remove" @@` //nolint
	Frag   *FragArgs `| @@`          //nolint
	Join   *JoinArgs `| @@`          //nolint
	Info   *InfoFlag `| @@`          //nolint
	Send   *SendArgs `| @@ )`        //nolint
}

// noinspection GoStructTag
type PacketCmd struct {
	Cmd struct{}       `"packet"` //nolint
	New *NewPacketArgs `( @@`     //nolint
	Op  *PacketOp      `| @@ )`   //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}

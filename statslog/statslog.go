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

// Package statslog writes a CSV log of simulation activity over virtual time. An entry is added for each
// virtual timestamp at which the statistics changed.
package statslog

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/openthread/nsim/logger"
	"github.com/openthread/nsim/packet"
	"github.com/openthread/nsim/simulator"
	"github.com/openthread/nsim/types"
)

type stats struct {
	executed      uint64
	scheduled     uint64
	cancelled     uint64
	pending       int
	poolAllocated uint64
	poolFree      int
}

// Log is a simulator.EventObserver.
type Log struct {
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	pool          *packet.Pool
	timestamp     types.Time // time of the current stats
	stats         stats
	oldStats      stats
}

// New creates a stats log that will be written to fileName. Pool statistics are included when pool is not nil.
func New(fileName string, pool *packet.Pool) *Log {
	return &Log{
		logFileName: fileName,
		pool:        pool,
	}
}

// Init creates the log file, replacing an existing one, and writes the CSV header.
func (sl *Log) Init() error {
	logger.AssertNil(sl.logFile)

	_ = os.Remove(sl.logFileName)
	f, err := os.OpenFile(sl.logFileName, os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return errors.Wrapf(err, "creating stats log file %s failed", sl.logFileName)
	}
	sl.logFile = f
	sl.isFileEnabled = true
	sl.writeLogFileHeader()
	logger.Debugf("stats log file '%s' created.", sl.logFileName)
	return nil
}

func (sl *Log) OnEvent(s *simulator.Simulator) {
	if now := s.Now(); now != sl.timestamp {
		if sl.stats != sl.oldStats {
			sl.writeLogEntry(sl.timestamp, sl.stats)
			sl.oldStats = sl.stats
		}
		sl.timestamp = now
	}
	sl.stats = sl.calcStats(s)
}

// Close adds a final entry with the current stats of s and closes the file.
func (sl *Log) Close(s *simulator.Simulator) {
	sl.writeLogEntry(s.Now(), sl.calcStats(s))
	sl.close()
	logger.Debugf("stats log stopped and CSV log file closed.")
}

func (sl *Log) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,executed,scheduled,cancelled,pending,poolAllocated,poolFree"
	_ = sl.writeToLogFile(header)
}

func (sl *Log) calcStats(s *simulator.Simulator) stats {
	c := s.Counters()
	st := stats{
		executed:  c.Executed,
		scheduled: c.Scheduled,
		cancelled: c.Cancelled,
		pending:   s.PendingCount(),
	}
	if sl.pool != nil {
		ps := sl.pool.Stats()
		st.poolAllocated = ps.Allocated
		st.poolFree = ps.FreeLen
	}
	return st
}

func (sl *Log) writeLogEntry(ts types.Time, st stats) {
	entry := fmt.Sprintf("%12.6f, %3d,%3d,%3d,%3d,%3d,%3d", ts.Seconds(), st.executed, st.scheduled,
		st.cancelled, st.pending, st.poolAllocated, st.poolFree)
	_ = sl.writeToLogFile(entry)
	logger.Tracef("statslog entry added: %s", entry)
}

func (sl *Log) writeToLogFile(line string) error {
	if !sl.isFileEnabled {
		return nil
	}
	_, err := sl.logFile.WriteString(line + "\n")
	if err != nil {
		sl.close()
		logger.Errorf("couldn't write to stats log file (%s), closing it", sl.logFileName)
	}
	return err
}

func (sl *Log) close() {
	if sl.logFile != nil {
		_ = sl.logFile.Close()
		sl.logFile = nil
		sl.isFileEnabled = false
	}
}

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

package packet

type Config struct {
	// Enabled turns on metadata recording. Disabled metadata ignores every operation.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Checking makes metadata strict: removal mismatches and corrupt state are fatal, and the
	// record list is validated after each mutation. Checking implies Enabled.
	Checking    bool `mapstructure:"checking" yaml:"checking"`
	FreeListCap int  `mapstructure:"free-list-cap" yaml:"free-list-cap"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Checking:    true,
		FreeListCap: DefaultFreeListCap,
	}
}

// MetadataFactory holds the state shared by all metadata of one simulation: the switches, the
// block pool and the uid counters. It is not goroutine-safe.
type MetadataFactory struct {
	cfg  Config
	pool *Pool
	ids  *IdAllocator
}

func NewMetadataFactory(cfg *Config) *MetadataFactory {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Checking {
		c.Enabled = true
	}
	return &MetadataFactory{
		cfg:  c,
		pool: NewPool(c.FreeListCap),
		ids:  NewIdAllocator(),
	}
}

func (f *MetadataFactory) Config() Config {
	return f.cfg
}

func (f *MetadataFactory) Pool() *Pool {
	return f.pool
}

func (f *MetadataFactory) Ids() *IdAllocator {
	return f.ids
}

// NewMetadata creates metadata for packet uid whose initial content is a payload of size bytes.
func (f *MetadataFactory) NewMetadata(uid uint64, size uint32) *Metadata {
	m := f.newEmpty(uid)
	if size > 0 {
		m.doAddHeader(PayloadTypeId, size)
	}
	return m
}

func (f *MetadataFactory) newEmpty(uid uint64) *Metadata {
	m := &Metadata{
		f:         f,
		packetUid: uid,
		head:      none,
		tail:      none,
	}
	if f.cfg.Enabled {
		m.data = f.pool.Create(initialDataSize)
	}
	return m
}

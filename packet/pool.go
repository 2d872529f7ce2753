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

import (
	"github.com/openthread/nsim/logger"
)

const (
	DefaultFreeListCap = 1000
	initialDataSize    = 10
)

// Data is a reference-counted block of metadata records, shared between copies of a packet.
type Data struct {
	count    uint32
	dirtyEnd uint16
	buf      []byte
}

func (d *Data) Capacity() uint32 {
	return uint32(len(d.buf))
}

// RefCount is the number of metadata instances sharing d.
func (d *Data) RefCount() uint32 {
	return d.count
}

// DirtyEnd is the high-water mark of bytes written into d by any sharer.
func (d *Data) DirtyEnd() uint16 {
	return d.dirtyEnd
}

type PoolStats struct {
	Allocated uint64
	Reused    uint64
	Recycled  uint64
	Dropped   uint64
	FreeLen   int
	MaxSize   uint32
}

// Pool recycles Data blocks. Blocks smaller than the largest size ever requested are dropped
// instead of kept, so the free list converges to blocks that fit every request.
// Pool is not goroutine-safe.
type Pool struct {
	free    []*Data
	freeCap int
	maxSize uint32
	stats   PoolStats
}

func NewPool(freeListCap int) *Pool {
	if freeListCap < 0 {
		freeListCap = 0
	}
	return &Pool{
		freeCap: freeListCap,
		maxSize: initialDataSize,
	}
}

// Create returns a block with a reference count of 1 and a capacity of at least size.
func (p *Pool) Create(size uint32) *Data {
	if size > p.maxSize {
		p.maxSize = size
	}
	for len(p.free) > 0 {
		d := p.free[len(p.free)-1]
		p.free[len(p.free)-1] = nil
		p.free = p.free[:len(p.free)-1]
		if d.Capacity() >= size {
			d.count = 1
			d.dirtyEnd = 0
			p.stats.Reused++
			return d
		}
		p.stats.Dropped++
	}
	p.stats.Allocated++
	return &Data{
		count: 1,
		buf:   make([]byte, p.maxSize),
	}
}

// Recycle takes back a block whose reference count dropped to zero.
func (p *Pool) Recycle(d *Data) {
	if d.count != 0 {
		logger.Panicf("recycle of referenced metadata block (count=%d)", d.count)
	}
	if d.Capacity() < p.maxSize || len(p.free) >= p.freeCap {
		p.stats.Dropped++
		return
	}
	p.free = append(p.free, d)
	p.stats.Recycled++
}

func (p *Pool) Share(d *Data) *Data {
	d.count++
	return d
}

// Unshare drops one reference and recycles the block when it was the last one.
func (p *Pool) Unshare(d *Data) {
	if d.count == 0 {
		logger.Panicf("unshare of unreferenced metadata block")
	}
	d.count--
	if d.count == 0 {
		p.Recycle(d)
	}
}

func (p *Pool) MaxSize() uint32 {
	return p.maxSize
}

func (p *Pool) Stats() PoolStats {
	s := p.stats
	s.FreeLen = len(p.free)
	s.MaxSize = p.maxSize
	return s
}

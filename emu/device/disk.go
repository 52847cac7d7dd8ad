/*
 * rv64sim - Block-addressed disk device.
 *
 * Copyright 2026, rv64sim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package device

import (
	"os"

	"github.com/rv64lab/rv64sim/emu/addr"
)

// Disk register offsets: a tiny programmed-I/O block device (spec §5.5)
// good enough to boot a trivial block-reading test image. The guest
// programs a sector number and a destination physical address, then
// writes Command to trigger a synchronous transfer.
const (
	diskSector  = 0x00 // 8 bytes: sector number
	diskAddr    = 0x08 // 8 bytes: destination/source physical address
	diskCommand = 0x10 // 4 bytes: 1=read, 2=write
	diskStatus  = 0x14 // 4 bytes: 0=idle, 1=busy, 2=error
)

const sectorSize = 512

// MemWriter/MemReader let the disk move bytes to/from the bus's backing
// store without importing emu/bus (which would create an import cycle).
type MemWriter func(a addr.Phys, data []byte)
type MemReader func(a addr.Phys, n int) []byte

// Disk is a simple synchronous sector-addressed block device backed by
// a flat file.
type Disk struct {
	file        *os.File
	sector      uint64
	destAddr    uint64
	status      uint32
	writeMem    MemWriter
	readMem     MemReader
}

// NewDisk opens path (creating it if missing) as the backing store.
func NewDisk(path string, writeMem MemWriter, readMem MemReader) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &Disk{file: f, writeMem: writeMem, readMem: readMem}, nil
}

func (d *Disk) Name() string { return "disk" }

func (d *Disk) Load(offset addr.Phys, size int) uint64 {
	switch offset {
	case diskSector:
		return d.sector
	case diskAddr:
		return d.destAddr
	case diskStatus:
		return uint64(d.status)
	default:
		return 0
	}
}

func (d *Disk) Store(offset addr.Phys, size int, value uint64) {
	switch offset {
	case diskSector:
		d.sector = value
	case diskAddr:
		d.destAddr = value
	case diskCommand:
		d.execute(uint32(value))
	}
}

func (d *Disk) execute(cmd uint32) {
	buf := make([]byte, sectorSize)
	switch cmd {
	case 1: // read
		if _, err := d.file.ReadAt(buf, int64(d.sector)*sectorSize); err != nil {
			d.status = 2
			return
		}
		if d.writeMem != nil {
			d.writeMem(addr.Phys(d.destAddr), buf)
		}
		d.status = 0
	case 2: // write
		if d.readMem != nil {
			buf = d.readMem(addr.Phys(d.destAddr), sectorSize)
		}
		if _, err := d.file.WriteAt(buf, int64(d.sector)*sectorSize); err != nil {
			d.status = 2
			return
		}
		d.status = 0
	default:
		d.status = 2
	}
}

// Close releases the backing file.
func (d *Disk) Close() error { return d.file.Close() }

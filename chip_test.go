package rfm96w

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type regWrite struct {
	reg Register
	v   byte
}

// chip models the parts of an SX1276 the driver touches: the register file,
// the FIFO with its auto-incrementing pointer, write-1-to-clear IRQ flags and
// Tx/Rx completion driven by polling.
type chip struct {
	regs [0x80]byte
	fifo [256]byte
	ptr  byte

	writes   []regWrite
	packets  [][]byte // payloads seen when entering Tx
	irqReads int

	// txPolls is the number of RegOpMode reads that still report Tx after
	// entering it.
	txPolls int
	txLeft  int

	// rxAfter raises RxDone with rxPacket on the rxAfter-th RegIrqFlags read;
	// zero never delivers.
	rxAfter  int
	rxAddr   byte
	rxPacket []byte

	fail func(w []byte) error
}

func newChip() *chip {
	c := &chip{}
	c.regs[RegVersion] = ChipVersion
	c.regs[RegModemConfig1] = 0x72
	c.regs[RegModemConfig2] = 0x70
	c.regs[RegLna] = 0x20
	c.regs[RegOpMode] = 0x09
	return c
}

func (c *chip) Tx(w, r []byte) error {
	if len(w) != 2 {
		return fmt.Errorf("chip: %d byte frame", len(w))
	}
	if c.fail != nil {
		if err := c.fail(w); err != nil {
			return err
		}
	}
	reg := Register(w[0] & 0x7f)
	if w[0]&0x80 != 0 {
		if r != nil {
			return errors.New("chip: write with a read buffer")
		}
		c.write(reg, w[1])
		return nil
	}
	if len(r) != 2 {
		return fmt.Errorf("chip: read buffer of %d bytes", len(r))
	}
	r[1] = c.read(reg)
	return nil
}

func (c *chip) write(reg Register, v byte) {
	c.writes = append(c.writes, regWrite{reg, v})
	switch reg {
	case RegFifo:
		c.fifo[c.ptr] = v
		c.ptr++
	case RegFifoAddrPtr:
		c.ptr = v
		c.regs[reg] = v
	case RegIrqFlags:
		c.regs[reg] &^= v
	case RegOpMode:
		c.regs[reg] = v
		if Mode(v&modeMask) == ModeTx {
			base := c.regs[RegFifoTxBaseAddr]
			p := make([]byte, c.regs[RegPayloadLength])
			for i := range p {
				p[i] = c.fifo[base+byte(i)]
			}
			c.packets = append(c.packets, p)
			c.txLeft = c.txPolls
		}
	default:
		c.regs[reg] = v
	}
}

func (c *chip) read(reg Register) byte {
	switch reg {
	case RegFifo:
		v := c.fifo[c.ptr]
		c.ptr++
		return v
	case RegOpMode:
		if Mode(c.regs[reg]&modeMask) == ModeTx {
			if c.txLeft > 0 {
				c.txLeft--
			} else {
				c.regs[reg] = c.regs[reg]&^modeMask | byte(ModeStandby)
				c.regs[RegIrqFlags] |= byte(IrqTxDone)
			}
		}
	case RegIrqFlags:
		c.irqReads++
		if c.rxAfter > 0 {
			c.rxAfter--
			if c.rxAfter == 0 {
				c.deliver()
			}
		}
	}
	return c.regs[reg]
}

func (c *chip) deliver() {
	for i, b := range c.rxPacket {
		c.fifo[c.rxAddr+byte(i)] = b
	}
	c.regs[RegFifoRxCurrentAddr] = c.rxAddr
	c.regs[RegRxNbBytes] = byte(len(c.rxPacket))
	c.regs[RegIrqFlags] |= byte(IrqRxDone | IrqValidHeader)
}

// writesTo returns the values written to reg, in order.
func (c *chip) writesTo(reg Register) []byte {
	var out []byte
	for _, w := range c.writes {
		if w.reg == reg {
			out = append(out, w.v)
		}
	}
	return out
}

type sleepLog []time.Duration

func (s *sleepLog) sleep(d time.Duration) { *s = append(*s, d) }

func newChipLora(t *testing.T, c *chip, opts Opts) *Lora {
	t.Helper()
	cs := &gpiotest.Pin{N: "CS", L: gpio.High}
	rst := &gpiotest.Pin{N: "RST", L: gpio.High}
	l, err := New(c, cs, rst, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.sleep = func(time.Duration) {}
	c.writes = nil
	return l
}

// newPlaybackLora returns a Lora replaying exact bus frames, with explicit
// header and no header reassertion.
func newPlaybackLora(ops ...conntest.IO) (*Lora, *conntest.Playback) {
	p := &conntest.Playback{Ops: ops, DontPanic: true}
	l := &Lora{
		bus:            p,
		cs:             &gpiotest.Pin{N: "CS", L: gpio.High},
		reset:          &gpiotest.Pin{N: "RST", L: gpio.High},
		frequency:      DefaultFrequency,
		explicitHeader: true,
		mode:           ModeStandby,
		log:            func(format string, v ...interface{}) {},
		sleep:          func(time.Duration) {},
	}
	return l, p
}

func rd(reg Register, v byte) conntest.IO {
	return conntest.IO{W: []byte{byte(reg), 0x00}, R: []byte{0x00, v}}
}

func wr(reg Register, v byte) conntest.IO {
	return conntest.IO{W: []byte{byte(reg) | 0x80, v}}
}

func checkPlayed(t *testing.T, p *conntest.Playback) {
	t.Helper()
	if p.Count != len(p.Ops) {
		t.Errorf("played %d of %d bus frames", p.Count, len(p.Ops))
	}
}

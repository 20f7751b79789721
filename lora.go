// Package rfm96w drives a Semtech SX1276/77/78/79 radio, as found on HopeRF
// RFM95W/96W/98W modules, in LoRa mode over an SPI bus.
//
// All event detection is done by polling RegIrqFlags; the DIO lines are not
// used. A Lora is not safe for concurrent use: it owns the bus and the two
// control lines and every read-modify-write of a configuration register
// relies on that.
package rfm96w

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

var (
	ErrVersionMismatch     = errors.New("rfm96w: version mismatch")
	ErrAlreadyTransmitting = errors.New("rfm96w: already transmitting")
	ErrPollTimeout         = errors.New("rfm96w: poll timeout")
	ErrPayloadTooLarge     = errors.New("rfm96w: payload too large")
)

// BusError is a failed bus transaction. It is not recoverable at the driver
// level.
type BusError struct {
	Op  string
	Reg Register
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("rfm96w: %s %s: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Bus is the SPI connection to the radio. A spi.Conn satisfies it; a nil r
// makes Tx a write-only transaction.
type Bus interface {
	Tx(w, r []byte) error
}

// Pin is a digital output. A gpio.PinOut satisfies it.
type Pin interface {
	Out(l gpio.Level) error
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// Opts configures the radio at construction. Zero fields take the defaults
// noted on each field.
type Opts struct {
	Frequency       uint32   // carrier in MHz, default 433
	Bandwidth       uint32   // Hz, default 125000
	SpreadingFactor uint8    // 6..12, default 7
	CodingRate      uint8    // denominator of 4/x, default 5
	PreambleLength  uint16   // symbols, default 8
	PaOutput        PaOutput // default PaOutputBoost
	DisableCrc      bool
	ImplicitHeader  bool
	// TxPower is the output power in dBm, default 20. Since 0 selects the
	// default, pass a negative value for 0 dBm on PaOutputRFO.
	TxPower int
	// SkipHeaderReassert stops SetMode from rewriting the header format bit
	// before every mode change.
	SkipHeaderReassert bool
	Logger             LogPrintf
}

func (o *Opts) setDefaults() {
	if o.Frequency == 0 {
		o.Frequency = DefaultFrequency
	}
	if o.Bandwidth == 0 {
		o.Bandwidth = DefaultBandwidth
	}
	if o.SpreadingFactor == 0 {
		o.SpreadingFactor = DefaultSpreadingFactor
	}
	if o.CodingRate == 0 {
		o.CodingRate = DefaultCodingRate
	}
	if o.PreambleLength == 0 {
		o.PreambleLength = DefaultPreambleLength
	}
	if o.TxPower == 0 {
		o.TxPower = DefaultTxPower
	}
}

// Lora is an SX127x radio.
type Lora struct {
	bus   Bus
	cs    Pin
	reset Pin

	frequency      uint32
	explicitHeader bool
	mode           Mode
	reassertHeader bool

	log   LogPrintf
	sleep func(time.Duration)
}

var _ conn.Resource = &Lora{}

// New resets the radio, checks its version and applies opts. It leaves the
// radio in Standby.
func New(bus Bus, cs, reset Pin, opts Opts) (*Lora, error) {
	opts.setDefaults()
	l := &Lora{
		bus:            bus,
		cs:             cs,
		reset:          reset,
		frequency:      opts.Frequency,
		explicitHeader: !opts.ImplicitHeader,
		mode:           ModeSleep,
		reassertHeader: !opts.SkipHeaderReassert,
		log:            opts.Logger,
		sleep:          time.Sleep,
	}
	if l.log == nil {
		l.log = func(format string, v ...interface{}) {}
	}
	if err := l.init(opts); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lora) init(opts Opts) error {
	if err := l.cs.Out(gpio.High); err != nil {
		return err
	}
	if err := l.ResetLora(); err != nil {
		return err
	}

	v, err := l.Version()
	if err != nil {
		return err
	}
	if v != ChipVersion {
		return fmt.Errorf("%w: got %#02x, want %#02x", ErrVersionMismatch, v, ChipVersion)
	}
	l.log("rfm96w: version %#02x", v)

	if err := l.SetMode(ModeSleep); err != nil {
		return err
	}
	// Whole 256 byte FIFO for both directions.
	if err := l.WriteRegister(RegFifoTxBaseAddr, 0); err != nil {
		return err
	}
	if err := l.WriteRegister(RegFifoRxBaseAddr, 0); err != nil {
		return err
	}
	if err := l.SetFrequency(opts.Frequency); err != nil {
		return err
	}
	if err := l.SetPreambleLength(opts.PreambleLength); err != nil {
		return err
	}
	if err := l.setAgcAuto(); err != nil {
		return err
	}
	if err := l.SetSignalBandwidth(opts.Bandwidth); err != nil {
		return err
	}
	if err := l.SetCodingRate4(opts.CodingRate); err != nil {
		return err
	}
	if err := l.SetSpreadingFactor(opts.SpreadingFactor); err != nil {
		return err
	}
	if err := l.SetCrc(!opts.DisableCrc); err != nil {
		return err
	}
	if err := l.SetTxPower(opts.TxPower, opts.PaOutput); err != nil {
		return err
	}
	if err := l.SetLnaBoost(true); err != nil {
		return err
	}
	return l.SetMode(ModeStandby)
}

// ResetLora pulses the active-low reset line.
func (l *Lora) ResetLora() error {
	if err := l.reset.Out(gpio.Low); err != nil {
		return err
	}
	l.sleep(10 * time.Millisecond)
	if err := l.reset.Out(gpio.High); err != nil {
		return err
	}
	l.sleep(10 * time.Millisecond)
	return nil
}

// Version reads the silicon revision, ChipVersion on a working chip.
func (l *Lora) Version() (byte, error) {
	return l.ReadRegister(RegVersion)
}

func (l *Lora) String() string {
	return fmt.Sprintf("rfm96w{%dMHz %s}", l.frequency, l.mode)
}

// Halt puts the radio to sleep.
func (l *Lora) Halt() error {
	return l.SetMode(ModeSleep)
}

// Mode returns the last mode written to the radio.
func (l *Lora) Mode() Mode { return l.mode }

// ExplicitHeader reports whether the explicit header format is selected.
func (l *Lora) ExplicitHeader() bool { return l.explicitHeader }

// SetMode writes m to RegOpMode, always with LoRa modulation selected. Unless
// disabled in Opts, the header format is written again first.
func (l *Lora) SetMode(m Mode) error {
	if l.reassertHeader {
		if err := l.applyHeaderMode(); err != nil {
			return err
		}
	}
	if err := l.WriteRegister(RegOpMode, ModeLongRange|m.Code()); err != nil {
		return err
	}
	l.mode = m
	return nil
}

func (l *Lora) applyHeaderMode() error {
	if l.explicitHeader {
		return l.SetExplicitHeaderMode()
	}
	return l.SetImplicitHeaderMode()
}

// SetExplicitHeaderMode sends length, coding rate and CRC presence in a
// header with every packet.
func (l *Lora) SetExplicitHeaderMode() error {
	if err := l.updateRegister(RegModemConfig1, mc1ImplicitHeader, 0); err != nil {
		return err
	}
	l.explicitHeader = true
	return nil
}

// SetImplicitHeaderMode omits the header; both ends must agree on the packet
// format. Spreading factor 6 only works in this mode.
func (l *Lora) SetImplicitHeaderMode() error {
	if err := l.updateRegister(RegModemConfig1, mc1ImplicitHeader, mc1ImplicitHeader); err != nil {
		return err
	}
	l.explicitHeader = false
	return nil
}

// ReadRegister reads one register.
func (l *Lora) ReadRegister(reg Register) (byte, error) {
	w := []byte{byte(reg) & 0x7f, 0x00}
	r := make([]byte, len(w))
	if err := l.transfer(w, r); err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: err}
	}
	return r[1], nil
}

// WriteRegister writes one register.
func (l *Lora) WriteRegister(reg Register, v byte) error {
	if err := l.transfer([]byte{byte(reg) | 0x80, v}, nil); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// updateRegister replaces the bits of reg selected by mask with v.
func (l *Lora) updateRegister(reg Register, mask, v byte) error {
	old, err := l.ReadRegister(reg)
	if err != nil {
		return err
	}
	return l.WriteRegister(reg, old&^mask|v&mask)
}

// transfer frames one bus transaction with chip-select. Chip-select is
// released even when the transaction fails.
func (l *Lora) transfer(w, r []byte) error {
	if err := l.cs.Out(gpio.Low); err != nil {
		return err
	}
	err := l.bus.Tx(w, r)
	if e := l.cs.Out(gpio.High); err == nil {
		err = e
	}
	return err
}

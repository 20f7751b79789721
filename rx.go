package rfm96w

import (
	"context"
	"time"
)

// NoTimeout makes PollIRQ wait for a packet forever.
const NoTimeout = -1

const (
	pollInterval        = time.Millisecond
	pollForeverInterval = 100 * time.Millisecond
)

// IrqFlags reads RegIrqFlags.
func (l *Lora) IrqFlags() (IrqFlags, error) {
	v, err := l.ReadRegister(RegIrqFlags)
	return IrqFlags(v), err
}

// ClearIrq clears every flag set in RegIrqFlags.
func (l *Lora) ClearIrq() error {
	flags, err := l.IrqFlags()
	if err != nil {
		return err
	}
	return l.WriteRegister(RegIrqFlags, byte(flags))
}

// PollIRQ enters RxContinuous and polls for RxDone, returning the size of
// the received packet. With limit >= 0 it checks limit+1 times, 1 ms apart,
// before failing with ErrPollTimeout; the limit is a number of polls, not a
// duration. With NoTimeout it polls every 100 ms until a packet arrives.
func (l *Lora) PollIRQ(limit int) (int, error) {
	if limit < 0 {
		return l.PollIRQContext(context.Background())
	}
	if err := l.SetMode(ModeRxContinuous); err != nil {
		return 0, err
	}
	for count := 0; ; count++ {
		flags, err := l.IrqFlags()
		if err != nil {
			return 0, err
		}
		if flags&IrqRxDone != 0 {
			return l.rxDone()
		}
		if count >= limit {
			return 0, ErrPollTimeout
		}
		l.sleep(pollInterval)
	}
}

// PollIRQContext is PollIRQ(NoTimeout) that also gives up when ctx is done.
// A register access in progress is not interrupted.
func (l *Lora) PollIRQContext(ctx context.Context) (int, error) {
	if err := l.SetMode(ModeRxContinuous); err != nil {
		return 0, err
	}
	for {
		flags, err := l.IrqFlags()
		if err != nil {
			return 0, err
		}
		if flags&IrqRxDone != 0 {
			return l.rxDone()
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		l.sleep(pollForeverInterval)
	}
}

func (l *Lora) rxDone() (int, error) {
	if err := l.ClearIrq(); err != nil {
		return 0, err
	}
	return l.ReadyPacketSize()
}

// ReadyPacketSize returns the size of the last received packet.
func (l *Lora) ReadyPacketSize() (int, error) {
	n, err := l.ReadRegister(RegRxNbBytes)
	return int(n), err
}

// ReadPacket copies the last received packet out of the FIFO. Only the first
// ReadyPacketSize bytes (as returned by PollIRQ) are valid.
func (l *Lora) ReadPacket() ([MaxPayloadLength]byte, error) {
	var buf [MaxPayloadLength]byte
	if err := l.ClearIrq(); err != nil {
		return buf, err
	}
	size, err := l.ReadyPacketSize()
	if err != nil {
		return buf, err
	}
	addr, err := l.ReadRegister(RegFifoRxCurrentAddr)
	if err != nil {
		return buf, err
	}
	if err := l.WriteRegister(RegFifoAddrPtr, addr); err != nil {
		return buf, err
	}
	for i := 0; i < size && i < len(buf); i++ {
		if buf[i], err = l.ReadRegister(RegFifo); err != nil {
			return buf, err
		}
	}
	return buf, l.WriteRegister(RegFifoAddrPtr, 0)
}

// Receive waits for a packet like PollIRQ and returns its payload.
func (l *Lora) Receive(limit int) ([]byte, error) {
	n, err := l.PollIRQ(limit)
	if err != nil {
		return nil, err
	}
	buf, err := l.ReadPacket()
	if err != nil {
		return nil, err
	}
	p := make([]byte, n)
	copy(p, buf[:])
	return p, nil
}

// PacketRSSI returns the RSSI of the last packet in dBm.
func (l *Lora) PacketRSSI() (int, error) {
	rssi, err := l.ReadRegister(RegPktRssiValue)
	if err != nil {
		return 0, err
	}
	if l.frequency < rfMidBandThreshold {
		return int(rssi) - rssiOffsetLfPort, nil
	}
	return int(rssi) - rssiOffsetHfPort, nil
}

// PacketSNR returns the SNR of the last packet in dB.
func (l *Lora) PacketSNR() (float64, error) {
	snr, err := l.ReadRegister(RegPktSnrValue)
	if err != nil {
		return 0, err
	}
	return float64(int8(snr)) * 0.25, nil
}

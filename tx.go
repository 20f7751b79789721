package rfm96w

import "fmt"

// ChunkError reports the TxBulk chunk that failed.
type ChunkError struct {
	Chunk  int // index of the chunk
	Offset int // offset of the chunk in the data
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("rfm96w: bulk chunk %d at offset %d: %v", e.Chunk, e.Offset, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Transmitting reports whether the radio is in Tx or FsTx. When it is not,
// a leftover TxDone flag is cleared.
func (l *Lora) Transmitting() (bool, error) {
	op, err := l.ReadRegister(RegOpMode)
	if err != nil {
		return false, err
	}
	if m := Mode(op & modeMask); m == ModeTx || m == ModeFsTx {
		return true, nil
	}
	flags, err := l.IrqFlags()
	if err != nil {
		return false, err
	}
	if flags&IrqTxDone != 0 {
		if err := l.WriteRegister(RegIrqFlags, byte(IrqTxDone)); err != nil {
			return false, err
		}
	}
	return false, nil
}

// TxDone reports whether the TxDone flag is set.
func (l *Lora) TxDone() (bool, error) {
	flags, err := l.IrqFlags()
	if err != nil {
		return false, err
	}
	return flags&IrqTxDone != 0, nil
}

// TransmitPayloadBusy sends one packet of up to MaxPayloadLength bytes and
// spins until the radio leaves Tx. It returns the number of bytes sent.
func (l *Lora) TransmitPayloadBusy(payload []byte) (int, error) {
	if err := l.TransmitPayload(payload); err != nil {
		return 0, err
	}
	for {
		tx, err := l.Transmitting()
		if err != nil {
			return 0, err
		}
		if !tx {
			return len(payload), nil
		}
	}
}

// TransmitPayload loads payload into the FIFO and enters Tx without waiting
// for completion. Use Transmitting to find out when the packet is out.
// After entering Standby it always writes the header format, whatever
// Opts.SkipHeaderReassert says.
func (l *Lora) TransmitPayload(payload []byte) error {
	if len(payload) > MaxPayloadLength {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	tx, err := l.Transmitting()
	if err != nil {
		return err
	}
	if tx {
		return ErrAlreadyTransmitting
	}

	if err := l.SetMode(ModeStandby); err != nil {
		return err
	}
	if err := l.applyHeaderMode(); err != nil {
		return err
	}
	if err := l.WriteRegister(RegIrqFlags, 0); err != nil {
		return err
	}
	if err := l.WriteRegister(RegFifoAddrPtr, 0); err != nil {
		return err
	}
	if err := l.WriteRegister(RegPayloadLength, 0); err != nil {
		return err
	}
	// The FIFO pointer auto-increments.
	for _, b := range payload {
		if err := l.WriteRegister(RegFifo, b); err != nil {
			return err
		}
	}
	if err := l.WriteRegister(RegPayloadLength, byte(len(payload))); err != nil {
		return err
	}
	return l.SetMode(ModeTx)
}

// TxBulk sends data as consecutive packets of BulkChunkSize bytes, the last
// one shorter, each with TransmitPayloadBusy. It stops at the first failing
// chunk and returns the bytes sent so far with a *ChunkError.
func (l *Lora) TxBulk(data []byte) (int, error) {
	// DIO0 on TxDone. Nothing here waits on it, but the register needs a
	// defined value while transmitting.
	if err := l.WriteRegister(RegDioMapping1, 0x01); err != nil {
		return 0, err
	}

	var buf [BulkChunkSize]byte
	sent := 0
	for i := 0; sent < len(data); i++ {
		n := copy(buf[:], data[sent:])
		for j := n; j < len(buf); j++ {
			buf[j] = 0
		}
		if _, err := l.TransmitPayloadBusy(buf[:n]); err != nil {
			return sent, &ChunkError{Chunk: i, Offset: sent, Err: err}
		}
		l.log("rfm96w: bulk chunk %d sent, %d bytes", i, n)
		sent += n
	}
	return sent, nil
}

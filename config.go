package rfm96w

// bwBins holds the supported signal bandwidths in Hz, indexed by their
// RegModemConfig1 code. Code 9 is 500 kHz, selected for any other value.
var bwBins = [...]uint32{7800, 10400, 15600, 20800, 31250, 41700, 62500, 125000, 250000, 500000}

const bwCodeWide = 9

// SetFrequency sets the carrier frequency in MHz.
func (l *Lora) SetFrequency(mhz uint32) error {
	l.frequency = mhz
	frf := uint64(mhz) << 19 / 32

	if err := l.WriteRegister(RegFrfMsb, byte(frf>>16)); err != nil {
		return err
	}
	if err := l.WriteRegister(RegFrfMid, byte(frf>>8)); err != nil {
		return err
	}
	return l.WriteRegister(RegFrfLsb, byte(frf))
}

// Frequency returns the carrier frequency in MHz.
func (l *Lora) Frequency() uint32 { return l.frequency }

func bandwidthCode(hz uint32) byte {
	for i, bw := range bwBins[:bwCodeWide] {
		if bw == hz {
			return byte(i)
		}
	}
	return bwCodeWide
}

// SetSignalBandwidth sets the signal bandwidth in Hz. Values outside
// 7800, 10400, 15600, 20800, 31250, 41700, 62500, 125000 and 250000 select
// 500 kHz, with the sensitivity errata applied (SX1276 errata note 2.1).
func (l *Lora) SetSignalBandwidth(hz uint32) error {
	bw := bandwidthCode(hz)

	opt1, opt2 := byte(0x03), byte(0x65)
	if bw == bwCodeWide {
		opt1 = 0x02
		if l.frequency < rfMidBandThreshold {
			opt2 = 0x7f
		} else {
			opt2 = 0x64
		}
		l.log("rfm96w: 500kHz errata at %dMHz: %#02x", l.frequency, opt2)
	}
	if err := l.WriteRegister(RegHighBWOptimize1, opt1); err != nil {
		return err
	}
	if err := l.WriteRegister(RegHighBWOptimize2, opt2); err != nil {
		return err
	}

	if err := l.updateRegister(RegModemConfig1, mc1BandwidthMask, bw<<4); err != nil {
		return err
	}
	return l.setLdoFlag()
}

// SignalBandwidth returns the configured bandwidth in Hz, 0 for a reserved
// register code.
func (l *Lora) SignalBandwidth() (uint32, error) {
	mc1, err := l.ReadRegister(RegModemConfig1)
	if err != nil {
		return 0, err
	}
	bw := mc1 >> 4
	if int(bw) >= len(bwBins) {
		return 0, nil
	}
	return bwBins[bw], nil
}

// SetSpreadingFactor sets the spreading factor, clamped to 6..12. Spreading
// factor 6 requires implicit header mode, which is left to the caller.
func (l *Lora) SetSpreadingFactor(sf uint8) error {
	if sf < 6 {
		sf = 6
	} else if sf > 12 {
		sf = 12
	}

	var detectionOptimize byte = 0xc3
	var detectionThreshold byte = 0x0a
	if sf == 6 {
		detectionOptimize = 0xc5
		detectionThreshold = 0x0c
	}
	if err := l.WriteRegister(RegDetectionOptimize, detectionOptimize); err != nil {
		return err
	}
	if err := l.WriteRegister(RegDetectionThreshold, detectionThreshold); err != nil {
		return err
	}

	if err := l.updateRegister(RegModemConfig2, mc2SpreadingMask, sf<<4); err != nil {
		return err
	}
	return l.setLdoFlag()
}

// SpreadingFactor returns the configured spreading factor.
func (l *Lora) SpreadingFactor() (uint8, error) {
	mc2, err := l.ReadRegister(RegModemConfig2)
	if err != nil {
		return 0, err
	}
	return mc2 >> 4, nil
}

// lowDataRateOptimize reports whether symbols last longer than 16 ms
// (datasheet 4.1.1.5 and 4.1.1.6).
func lowDataRateOptimize(bw uint32, sf uint8) bool {
	symbolRate := bw >> sf
	if symbolRate == 0 {
		return true
	}
	return 1000/symbolRate > 16
}

func (l *Lora) setLdoFlag() error {
	bw, err := l.SignalBandwidth()
	if err != nil {
		return err
	}
	sf, err := l.SpreadingFactor()
	if err != nil {
		return err
	}
	var v byte
	if lowDataRateOptimize(bw, sf) {
		v = mc3LowDataRate
	}
	return l.updateRegister(RegModemConfig3, mc3LowDataRate, v)
}

// SetCodingRate4 sets the coding rate to 4/denominator, denominator clamped
// to 5..8.
func (l *Lora) SetCodingRate4(denominator uint8) error {
	if denominator < 5 {
		denominator = 5
	} else if denominator > 8 {
		denominator = 8
	}
	cr := denominator - 4
	return l.updateRegister(RegModemConfig1, mc1CodingRateMask, cr<<1)
}

// SetPreambleLength sets the preamble length in symbols.
func (l *Lora) SetPreambleLength(length uint16) error {
	if err := l.WriteRegister(RegPreambleMsb, byte(length>>8)); err != nil {
		return err
	}
	return l.WriteRegister(RegPreambleLsb, byte(length))
}

// SetCrc enables or disables the payload CRC.
func (l *Lora) SetCrc(crc bool) error {
	var v byte
	if crc {
		v = mc2CrcOn
	}
	return l.updateRegister(RegModemConfig2, mc2CrcOn, v)
}

// SetInvertIQ inverts the I and Q signals, as LoRaWAN downlinks do.
func (l *Lora) SetInvertIQ(invert bool) error {
	iq, iq2 := byte(0x27), byte(0x1d)
	if invert {
		iq, iq2 = 0x66, 0x19
	}
	if err := l.WriteRegister(RegInvertIQ, iq); err != nil {
		return err
	}
	return l.WriteRegister(RegInvertIQ2, iq2)
}

// SetSyncWord sets the LoRa sync word. 0x34 is reserved for LoRaWAN.
func (l *Lora) SetSyncWord(sw byte) error {
	return l.WriteRegister(RegSyncWord, sw)
}

// SetLnaBoost enables the high frequency LNA boost (150% current).
func (l *Lora) SetLnaBoost(boost bool) error {
	var v byte
	if boost {
		v = lnaBoostHf
	}
	return l.updateRegister(RegLna, lnaBoostHf, v)
}

func (l *Lora) setAgcAuto() error {
	return l.updateRegister(RegModemConfig3, mc3AgcAutoOn, mc3AgcAutoOn)
}

// SetTxPower sets the output power in dBm. On PaOutputRFO level is clamped
// to 0..14. On PaOutputBoost it is clamped to 2..20; 18 to 20 dBm enable the
// +20 dBm mode (datasheet 5.4.3) with 140 mA over-current protection.
func (l *Lora) SetTxPower(level int, out PaOutput) error {
	if out == PaOutputRFO {
		if level < 0 {
			level = 0
		} else if level > 14 {
			level = 14
		}
		return l.WriteRegister(RegPaConfig, paRfoBase|byte(level))
	}

	if level > 17 {
		if level > 20 {
			level = 20
		}
		// 18..20 maps to 15..17, PaDac adds the 3 dB back.
		level -= 3
		if err := l.WriteRegister(RegPaDac, paDacHighPower); err != nil {
			return err
		}
		if err := l.SetOcp(140); err != nil {
			return err
		}
	} else {
		if level < 2 {
			level = 2
		}
		if err := l.WriteRegister(RegPaDac, paDacDefault); err != nil {
			return err
		}
		if err := l.SetOcp(100); err != nil {
			return err
		}
	}
	level -= 2
	return l.WriteRegister(RegPaConfig, paBoost|byte(level))
}

// ocpTrim returns the OcpTrim field for a current limit in mA.
func ocpTrim(ma int) byte {
	switch {
	case ma < 45:
		return 0
	case ma <= 120:
		return byte((ma - 45) / 5)
	case ma <= 240:
		return byte((ma + 30) / 10)
	default:
		return 27
	}
}

// SetOcp enables over-current protection at ma milliamps.
func (l *Lora) SetOcp(ma int) error {
	return l.WriteRegister(RegOcp, ocpOn|ocpTrim(ma)&ocpTrimMask)
}

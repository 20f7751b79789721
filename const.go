package rfm96w

import "fmt"

// Register is a 7-bit SX127x register address.
type Register byte

// Mode is the low-order operating mode code written to RegOpMode.
type Mode byte

// PaOutput selects one of the two physical transmitter outputs.
type PaOutput byte

// IrqFlags is the content of RegIrqFlags.
type IrqFlags byte

const (
	RegFifo               Register = 0x00
	RegOpMode             Register = 0x01
	RegFrfMsb             Register = 0x06
	RegFrfMid             Register = 0x07
	RegFrfLsb             Register = 0x08
	RegPaConfig           Register = 0x09
	RegOcp                Register = 0x0b
	RegLna                Register = 0x0c
	RegFifoAddrPtr        Register = 0x0d
	RegFifoTxBaseAddr     Register = 0x0e
	RegFifoRxBaseAddr     Register = 0x0f
	RegFifoRxCurrentAddr  Register = 0x10
	RegIrqFlags           Register = 0x12
	RegRxNbBytes          Register = 0x13
	RegPktSnrValue        Register = 0x19
	RegPktRssiValue       Register = 0x1a
	RegModemConfig1       Register = 0x1d
	RegModemConfig2       Register = 0x1e
	RegPreambleMsb        Register = 0x20
	RegPreambleLsb        Register = 0x21
	RegPayloadLength      Register = 0x22
	RegModemConfig3       Register = 0x26
	RegDetectionOptimize  Register = 0x31
	RegInvertIQ           Register = 0x33
	RegHighBWOptimize1    Register = 0x36
	RegDetectionThreshold Register = 0x37
	RegSyncWord           Register = 0x39
	RegHighBWOptimize2    Register = 0x3a
	RegInvertIQ2          Register = 0x3b
	RegDioMapping1        Register = 0x40
	RegVersion            Register = 0x42
	RegPaDac              Register = 0x4d
)

var registerNames = map[Register]string{
	RegFifo:               "RegFifo",
	RegOpMode:             "RegOpMode",
	RegFrfMsb:             "RegFrfMsb",
	RegFrfMid:             "RegFrfMid",
	RegFrfLsb:             "RegFrfLsb",
	RegPaConfig:           "RegPaConfig",
	RegOcp:                "RegOcp",
	RegLna:                "RegLna",
	RegFifoAddrPtr:        "RegFifoAddrPtr",
	RegFifoTxBaseAddr:     "RegFifoTxBaseAddr",
	RegFifoRxBaseAddr:     "RegFifoRxBaseAddr",
	RegFifoRxCurrentAddr:  "RegFifoRxCurrentAddr",
	RegIrqFlags:           "RegIrqFlags",
	RegRxNbBytes:          "RegRxNbBytes",
	RegPktSnrValue:        "RegPktSnrValue",
	RegPktRssiValue:       "RegPktRssiValue",
	RegModemConfig1:       "RegModemConfig1",
	RegModemConfig2:       "RegModemConfig2",
	RegPreambleMsb:        "RegPreambleMsb",
	RegPreambleLsb:        "RegPreambleLsb",
	RegPayloadLength:      "RegPayloadLength",
	RegModemConfig3:       "RegModemConfig3",
	RegDetectionOptimize:  "RegDetectionOptimize",
	RegInvertIQ:           "RegInvertIQ",
	RegHighBWOptimize1:    "RegHighBWOptimize1",
	RegDetectionThreshold: "RegDetectionThreshold",
	RegSyncWord:           "RegSyncWord",
	RegHighBWOptimize2:    "RegHighBWOptimize2",
	RegInvertIQ2:          "RegInvertIQ2",
	RegDioMapping1:        "RegDioMapping1",
	RegVersion:            "RegVersion",
	RegPaDac:              "RegPaDac",
}

func (r Register) String() string {
	if s, ok := registerNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reg(%#02x)", byte(r))
}

const (
	// ModeLongRange is bit 7 of RegOpMode. It selects LoRa modulation and is
	// part of every mode write.
	ModeLongRange byte = 0x80

	ModeSleep        Mode = 0x00
	ModeStandby      Mode = 0x01
	ModeFsTx         Mode = 0x02
	ModeTx           Mode = 0x03
	ModeRxContinuous Mode = 0x05
	ModeRxSingle     Mode = 0x06

	// modeMask covers RegOpMode bits 2..0.
	modeMask byte = 0x07
)

var modeNames = map[Mode]string{
	ModeSleep:        "Sleep",
	ModeStandby:      "Standby",
	ModeFsTx:         "FsTx",
	ModeTx:           "Tx",
	ModeRxContinuous: "RxContinuous",
	ModeRxSingle:     "RxSingle",
}

// Code returns the value of RegOpMode bits 2..0 for m.
func (m Mode) Code() byte {
	return byte(m) & modeMask
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%#02x)", byte(m))
}

const (
	// PaOutputBoost is the only output wired on RFM95W/96W/98W modules.
	PaOutputBoost PaOutput = 0
	PaOutputRFO   PaOutput = 1

	// paBoost is RegPaConfig bit 7 (PaSelect).
	paBoost byte = 0x80
	// paRfoBase sets RegPaConfig MaxPower (bits 6..4) to its maximum.
	paRfoBase byte = 0x70

	// RegPaDac values: +20 dBm unlock and the chip default.
	paDacHighPower byte = 0x87
	paDacDefault   byte = 0x84
)

// RegIrqFlags bits, one bit each.
const (
	IrqCadDetected     IrqFlags = 1 << 0
	IrqFhssChange      IrqFlags = 1 << 1
	IrqCadDone         IrqFlags = 1 << 2
	IrqTxDone          IrqFlags = 1 << 3
	IrqValidHeader     IrqFlags = 1 << 4
	IrqPayloadCrcError IrqFlags = 1 << 5
	IrqRxDone          IrqFlags = 1 << 6
	IrqRxTimeout       IrqFlags = 1 << 7
)

var irqNames = [8]string{"CadDetected", "FhssChange", "CadDone", "TxDone", "ValidHeader", "PayloadCrcError", "RxDone", "RxTimeout"}

func (f IrqFlags) String() string {
	str := "["
	for i := uint(0); i < 8; i++ {
		if f&(1<<i) == 0 {
			continue
		}
		if len(str) > 1 {
			str += ","
		}
		str += irqNames[i]
	}
	return str + "]"
}

// Modem configuration fields.
const (
	// RegModemConfig1: Bw bits 7..4, CodingRate bits 3..1, ImplicitHeaderModeOn bit 0.
	mc1BandwidthMask  byte = 0xf0
	mc1CodingRateMask byte = 0x0e
	mc1ImplicitHeader byte = 0x01

	// RegModemConfig2: SpreadingFactor bits 7..4, RxPayloadCrcOn bit 2.
	mc2SpreadingMask byte = 0xf0
	mc2CrcOn         byte = 0x04

	// RegModemConfig3: LowDataRateOptimize bit 3, AgcAutoOn bit 2.
	mc3LowDataRate byte = 0x08
	mc3AgcAutoOn   byte = 0x04

	// RegLna: LnaBoostHf bits 1..0.
	lnaBoostHf byte = 0x03

	// RegOcp: OcpOn bit 5, OcpTrim bits 4..0.
	ocpOn       byte = 0x20
	ocpTrimMask byte = 0x1f
)

const (
	// ChipVersion is the RegVersion value of the SX1276/77/78/79.
	ChipVersion byte = 0x12
	// MaxPayloadLength is the FIFO limit of one LoRa packet.
	MaxPayloadLength = 255
	// BulkChunkSize is the payload size TxBulk splits data into.
	BulkChunkSize = 255

	DefaultFrequency       uint32 = 433
	DefaultBandwidth       uint32 = 125000
	DefaultSpreadingFactor uint8  = 7
	DefaultCodingRate      uint8  = 5
	DefaultPreambleLength  uint16 = 8
	DefaultTxPower         int    = 20

	// Frequencies below this use the low-frequency port (MHz).
	rfMidBandThreshold uint32 = 525
	rssiOffsetHfPort          = 157
	rssiOffsetLfPort          = 164
)

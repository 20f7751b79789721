// Command rfm96w sends and receives raw LoRa packets with an SX127x radio on
// a Linux SPI bus.
//
//	rfm96w [flags] version
//	rfm96w [flags] tx text...
//	rfm96w [flags] rx
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/NV4RE/rfm96w"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

func main() {
	spiDev := flag.String("spi", "/dev/spidev0.1", "SPI port")
	csName := flag.String("cs", "GPIO7", "chip-select pin")
	rstName := flag.String("reset", "GPIO25", "reset pin")
	freq := flag.Uint("freq", uint(rfm96w.DefaultFrequency), "carrier frequency in MHz")
	sf := flag.Uint("sf", uint(rfm96w.DefaultSpreadingFactor), "spreading factor")
	power := flag.Int("power", rfm96w.DefaultTxPower, "output power in dBm on PA_BOOST")
	timeout := flag.Int("timeout", rfm96w.NoTimeout, "receive polls before giving up, negative waits forever")
	verbose := flag.Bool("v", false, "log driver activity")
	hz := 1 * physic.MegaHertz
	flag.Var(&hz, "hz", "SPI clock")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	if _, err := driverreg.Init(); err != nil {
		log.Fatal(err)
	}

	p, err := spireg.Open(*spiDev)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	// Chip-select is driven by the driver on a plain GPIO.
	c, err := p.Connect(hz, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		log.Fatal(err)
	}
	cs, err := outPin(*csName)
	if err != nil {
		log.Fatal(err)
	}
	rst, err := outPin(*rstName)
	if err != nil {
		log.Fatal(err)
	}

	opts := rfm96w.Opts{
		Frequency:       uint32(*freq),
		SpreadingFactor: uint8(*sf),
		TxPower:         *power,
		PaOutput:        rfm96w.PaOutputBoost,
	}
	if *verbose {
		opts.Logger = log.Printf
	}
	radio, err := rfm96w.New(c, cs, rst, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer radio.Halt()

	if err := run(radio, flag.Arg(0), flag.Args()[1:], *timeout); err != nil {
		log.Print(err)
		radio.Halt()
		os.Exit(1)
	}
}

func outPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("failed to find %s pin", name)
	}
	if err := p.Out(gpio.High); err != nil {
		return nil, err
	}
	return p, nil
}

func run(radio *rfm96w.Lora, cmd string, args []string, timeout int) error {
	switch cmd {
	case "version":
		v, err := radio.Version()
		if err != nil {
			return err
		}
		fmt.Printf("%s version %#02x\n", radio, v)
		return nil

	case "tx":
		data := []byte(strings.Join(args, " "))
		n, err := radio.TxBulk(data)
		if err != nil {
			return err
		}
		log.Printf("sent %d bytes", n)
		return nil

	case "rx":
		for {
			p, err := radio.Receive(timeout)
			if err != nil {
				return err
			}
			rssi, err := radio.PacketRSSI()
			if err != nil {
				return err
			}
			snr, err := radio.PacketSNR()
			if err != nil {
				return err
			}
			fmt.Printf("len=%d rssi=%ddBm snr=%.2fdB %q\n", len(p), rssi, snr, p)
		}
	}
	return fmt.Errorf("unknown command %q", cmd)
}

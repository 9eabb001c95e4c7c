package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/BeatGlow/fbtft/conn"
)

func main() {
	busFlag := flag.Int("bus", 0, "SPI bus")
	deviceFlag := flag.Int("device", 0, "SPI device")
	modeFlag := flag.Uint("mode", 0, "SPI mode to set (0-3)")
	speedFlag := flag.Int("speed", 0, "Maximum speed in Hz to set, 0 keeps the current")
	flag.Parse()

	c, err := conn.OpenSPI(*busFlag, *deviceFlag)
	if err != nil {
		log.Fatalln("open failed: ", err)
	}
	fmt.Println("connected using", c)

	if err = c.SetMode(conn.SPIMode(*modeFlag)); err != nil {
		log.Fatalln("set mode failed: ", err)
	}
	if *speedFlag > 0 {
		if err = c.SetMaxSpeed(*speedFlag); err != nil {
			log.Fatalln("set speed failed: ", err)
		}
	}
	fmt.Println("configured", c)

	if err = c.Close(); err != nil {
		log.Fatalln("close failed: ", err)
	}
}

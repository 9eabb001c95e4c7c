package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	xdraw "golang.org/x/image/draw"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/fbtft"
	"github.com/BeatGlow/fbtft/config"
	"github.com/BeatGlow/fbtft/draw"
	"github.com/BeatGlow/fbtft/pixel"
)

func main() {
	configFlag := flag.String("config", "fbtft.hcl", "Configuration file")
	logoFlag := flag.String("logo", "", "Image to show in the center of the display")
	fpsFlag := flag.Int("fps", 20, "Animation frames per second")
	debugFlag := flag.Bool("debug", false, "Log driver diagnostics")
	flag.Parse()

	const logFlagsService = log.Lshortfile
	const logFlagsInteractive = log.Lshortfile | log.Ltime | log.Lmicroseconds
	if sdnotify("start") {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(logFlagsService)
	} else {
		log.SetFlags(logFlagsInteractive)
	}

	c, err := config.ReadConfigFile(*configFlag)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	var logf fbtft.Logf
	if *debugFlag {
		logf = log.Printf
	}
	driver, err := c.Driver(logf)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	driver.Registry = fbtft.NewRegistry()

	if _, err = host.Init(); err != nil {
		log.Fatal(errors.Annotate(err, "host init"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	device, err := fbtft.Attach(ctx, driver)
	cancel()
	if err != nil {
		log.Fatal(errors.ErrorStack(errors.Annotatef(err, "attach %s", driver.Panel)))
	}
	log.Printf("using device: %s", device)
	if node, ok := device.Node(); ok {
		log.Printf("registered %s", node)
	}

	var (
		buf  = device.Buffer()
		r    = buf.Bounds()
		logo image.Image
	)
	if *logoFlag != "" {
		if logo, err = loadLogo(*logoFlag, r.Size()); err != nil {
			log.Print(errors.ErrorStack(err))
		}
	}

	a := alive.NewAlive()
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stopCh
		log.Printf("received %s, stopping", sig)
		a.Stop()
	}()

	sdnotify(daemon.SdNotifyReady)
	log.Println("hit control-c to stop...")

	interval := time.Second / time.Duration(max(*fpsFlag, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for offset := 0; a.IsRunning(); offset++ {
		drawFrame(buf, r, offset, logo)
		select {
		case <-ticker.C:
		case <-a.StopChan():
		}
	}

	sdnotify(daemon.SdNotifyStopping)
	if err = device.Detach(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	log.Printf("flushed %d frames", device.Scheduler().Flushes())
}

func drawFrame(buf *fbtft.Buffer, r image.Rectangle, offset int, logo image.Image) {
	// Draw gradient inside box
	for y := 1; y < r.Max.Y-1; y++ {
		for x := 1; x < r.Max.X-1; x++ {
			buf.Set(x, y, color.RGBA{
				R: uint8(x + y + offset),
				G: uint8(x - y + offset),
				B: uint8(x + y - offset),
				A: 0xff,
			})
		}
	}

	// Draw box around edge
	draw.Rectangle(buf, r, pixel.White)
	draw.RoundedRectangle(buf, r.Inset(4), 6, pixel.Black)

	if logo != nil {
		size := logo.Bounds().Size()
		pos := image.Pt(r.Dx()/2-size.X/2, r.Dy()/2-size.Y/2)
		buf.Blit(pos, logo)
	}
}

// loadLogo decodes the image at path and scales it to fit half the screen.
func loadLogo(path string, screen image.Point) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "logo")
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Annotatef(err, "logo %s", path)
	}

	var (
		size  = src.Bounds().Size()
		limit = screen.Div(2)
	)
	if size.X > limit.X || size.Y > limit.Y {
		scale := min(float64(limit.X)/float64(size.X), float64(limit.Y)/float64(size.Y))
		size = image.Pt(max(int(float64(size.X)*scale), 1), max(int(float64(size.Y)*scale), 1))
	}

	dst := pixel.NewCRGB16Image(size.X, size.Y)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config fbtft.hcl] [-logo image.png]\n", os.Args[0])
		flag.PrintDefaults()
	}
}

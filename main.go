// Command vip runs CHIP-8 programs in a window or a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/retroenv/retrogolib/buildinfo"

	"github.com/nf/vip/chip8"
	"github.com/nf/vip/vip"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	log.SetPrefix("vip: ")
	log.SetFlags(0)

	cfg := vip.DefaultConfig()
	var (
		cliFlag     = flag.Bool("cli", false, "run in the terminal instead of a window")
		rateFlag    = flag.Int("rate", cfg.Rate, "instructions per `second`")
		keyPollFlag = flag.Duration("keypoll", cfg.KeyPoll, "`interval` at which a key wait checks the keypad")
		seedFlag    = flag.Int64("seed", cfg.Seed, "random number `seed`")
		watchFlag   = flag.Bool("watch", false, "reload the program when its file changes (implies the window stays open)")
		quirksFlag  = flag.String("quirks", "", "comma separated `list` of quirks (shift, loadstore, jump, overflow, clip)")
		versionFlag = flag.Bool("version", false, "print the version and exit")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <program.ch8>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()
	if *versionFlag {
		fmt.Printf("vip version %s\n", buildinfo.Version(version, commit, date))
		return
	}
	if flag.NArg() != 1 {
		flag.Usage()
	}

	quirks, err := chip8.ParseQuirks(*quirksFlag)
	if err != nil {
		log.Fatalf("-quirks: %v", err)
	}
	cfg.Rate = *rateFlag
	cfg.KeyPoll = *keyPollFlag
	cfg.Seed = *seedFlag
	cfg.Quirks = quirks
	cfg.KeepOpen = *watchFlag

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	err = run(flag.Arg(0), cfg, !*cliFlag, *watchFlag)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}

	if err != nil {
		log.Fatal(err)
	}
}

func run(romFile string, cfg vip.Config, guiEnabled, watchEnabled bool) error {
	rom, err := os.ReadFile(romFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := vip.NewRunner(cfg)
	if watchEnabled {
		if err := watch(ctx, romFile, r); err != nil {
			return fmt.Errorf("watching %s: %w", romFile, err)
		}
	}

	var fe vip.Frontend = vip.NewTerminal()
	if guiEnabled {
		fe = vip.NewGUI()
	}
	return r.Run(ctx, rom, fe)
}

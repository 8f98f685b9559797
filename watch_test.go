package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"

	"github.com/nf/vip/chip8"
	"github.com/nf/vip/vip"
)

type frontendFunc func(ctx context.Context, b vip.Bridge) error

func (f frontendFunc) Run(ctx context.Context, b vip.Bridge) error { return f(ctx, b) }

func TestWatchReload(t *testing.T) {
	var (
		dir     = t.TempDir()
		romFile = filepath.Join(dir, "test.ch8")
		loop    = []byte{0x12, 0x00} // 200: JP 200
		draw    = []byte{
			0xa0, 0x50, // 200: I = glyph 0
			0xd0, 0x05, // 202: DRW V0, V0, 5
			0x12, 0x04, // 204: JP 204
		}
	)
	assert.NoError(t, os.WriteFile(romFile, loop, 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := vip.DefaultConfig()
	cfg.KeepOpen = true
	r := vip.NewRunner(cfg)
	assert.NoError(t, watch(ctx, romFile, r))

	var want chip8.Frame
	for y, b := range chip8.Glyph(0) {
		want[y] = uint64(b) << 56
	}
	fe := frontendFunc(func(ctx context.Context, b vip.Bridge) error {
		if err := os.WriteFile(romFile, draw, 0o644); err != nil {
			return err
		}
		for {
			if f, _ := b.Frame(); f == want {
				return nil
			}
			select {
			case <-b.Updated():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	assert.NoError(t, r.Run(ctx, loop, fe))
}

func TestWatchMissingDir(t *testing.T) {
	r := vip.NewRunner(vip.DefaultConfig())
	err := watch(context.Background(), filepath.Join(t.TempDir(), "missing", "x.ch8"), r)
	if err == nil {
		t.Error("watching a missing directory succeeded")
	}
}

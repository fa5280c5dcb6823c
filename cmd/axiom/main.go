// Command axiom runs the compositor: the protocol server, the
// workspace engine, and the render pipeline, wired together through
// the shared snapshot.
//
// Usage:
//
//	axiom [-outputs "WxH@S+X,Y;..."] [-backend auto|vulkan|gl]
//	      [-present-mode auto|fifo|mailbox|immediate]
//	      [-debug-outputs] [-split-frame-callbacks]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/axiom-wm/axiom/internal/geom"
	"github.com/axiom-wm/axiom/internal/protocol"
	"github.com/axiom-wm/axiom/internal/render"
	"github.com/axiom-wm/axiom/internal/snapshot"
	"github.com/axiom-wm/axiom/internal/workspace"
)

var (
	outputsFlag    = flag.String("outputs", "1920x1080@1.0+0,0", "semicolon-separated WxH@S+X,Y output specs")
	backendFlag    = flag.String("backend", "auto", "render backend: auto, vulkan, or gl")
	presentFlag    = flag.String("present-mode", "auto", "present mode: auto, fifo, mailbox, or immediate")
	debugOutputs   = flag.Bool("debug-outputs", false, "overlay output rectangles")
	splitFrameCB   = flag.Bool("split-frame-callbacks", false, "distribute frame-callback delivery across overlapped outputs")
	headlessFlag   = flag.Bool("headless", false, "run the render pipeline against an offscreen target instead of a window")
	texturePoolCap = flag.Int("texture-pool-cap", 256, "maximum textures retained across the render pipeline's LRU pool")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "axiom:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: axiom [flags]\n\n")
	flag.PrintDefaults()
}

func run() error {
	backend, err := parseBackend(*backendFlag)
	if err != nil {
		return err
	}
	presentMode, err := render.ParsePresentMode(*presentFlag)
	if err != nil {
		return err
	}
	outputs, err := parseOutputs(*outputsFlag)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log = log.With(zap.String("backend", string(backend)))

	// render.Pipeline starts a span per frame via the global tracer; a
	// real span processor/exporter is outside this module's scope (no
	// collector wired up yet), but installing the SDK provider still
	// gives RenderFrame spans a real sampler and Shutdown semantics
	// instead of the otel default no-op provider silently discarding
	// the Tracer() call.
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	snap := snapshot.New()
	engine := workspace.New(1920, workspace.WithLogger(log.Named("workspace")), workspace.WithClock(time.Now))

	srv, err := protocol.NewServer(engine, snap, log.Named("protocol"), time.Now)
	if err != nil {
		return fmt.Errorf("protocol server init: %w", err)
	}
	defer srv.Close()

	primary := outputs[0]
	presenter, dev, err := buildPresenter(*headlessFlag, primary)
	if err != nil {
		return fmt.Errorf("presenter init: %w", err)
	}
	defer presenter.Close()

	pipeline := render.New(dev, render.Config{TexturePoolCap: *texturePoolCap}, log.Named("render"))
	pipeline.Resize(int(primary.Width), int(primary.Height))
	defer pipeline.Shutdown()

	snap.PublishOutputs(outputsToSnapshot(outputs))
	srv.SetViewport(geom.Rect{X: float64(primary.X), Y: float64(primary.Y), W: float64(primary.Width), H: float64(primary.Height)})

	// presentMode, debugOutputs and splitFrameCB are accepted and
	// validated here so a misconfigured flag fails at startup per §6,
	// even though the GPU-backend-specific behavior they'd otherwise
	// drive (swapchain present mode, output-rect overlay, per-output
	// callback fan-out) lives below the Device interface this module
	// does not implement a concrete GPU backend for.
	log.Info("axiom starting",
		zap.String("outputs", *outputsFlag),
		zap.String("present-mode", *presentFlag),
		zap.Bool("debug-outputs", *debugOutputs),
		zap.Bool("split-frame-callbacks", *splitFrameCB),
		zap.Bool("headless", *headlessFlag),
	)
	_ = presentMode

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve()
	}()

	deadlineTicker := time.NewTicker(time.Second)
	defer deadlineTicker.Stop()

	frameTicker := time.NewTicker(16 * time.Millisecond)
	defer frameTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("axiom shutting down")
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("protocol server: %w", err)
			}
			return nil
		case <-deadlineTicker.C:
			srv.SweepDeadlines()
		case <-frameTicker.C:
			w, h, serr := presenter.AcquireFrame()
			switch render.ClassifySurfaceError(serr, log) {
			case render.ActionShutdown:
				return fmt.Errorf("render: fatal presenter error")
			case render.ActionReconfigureAndSkip:
				presenter.Reconfigure(w, h)
				continue
			case render.ActionSkip:
				continue
			}
			srv.Tick()
			pipeline.SyncFromShared(snap)
			if err := pipeline.ProcessPendingTextureUpdates(snap); err != nil {
				log.Warn("texture upload failed", zap.Error(err))
			}
			pipeline.RenderFrame(ctx, snap)
			presenter.Present()
		}
	}
}

func buildPresenter(headless bool, primary protocol.OutputSpec) (render.Presenter, render.Device, error) {
	dev := render.NewNullDevice()
	if headless {
		return render.NewHeadlessPresenter(int(primary.Width), int(primary.Height)), dev, nil
	}
	p, err := render.NewGLFWPresenter(int(primary.Width), int(primary.Height), "axiom", zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return p, dev, nil
}

type backendKind string

const (
	backendAuto   backendKind = "auto"
	backendVulkan backendKind = "vulkan"
	backendGL     backendKind = "gl"
)

func parseBackend(s string) (backendKind, error) {
	switch backendKind(s) {
	case backendAuto, backendVulkan, backendGL:
		return backendKind(s), nil
	default:
		return "", fmt.Errorf("axiom: unknown backend %q (want auto, vulkan, or gl)", s)
	}
}

func parseOutputs(s string) ([]protocol.OutputSpec, error) {
	var specs []protocol.OutputSpec
	for i, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cmd, err := protocol.ParseControlLine("add " + part)
		if err != nil {
			return nil, fmt.Errorf("output spec %d: %w", i, err)
		}
		specs = append(specs, cmd.Output)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("axiom: at least one output is required")
	}
	return specs, nil
}

func outputsToSnapshot(specs []protocol.OutputSpec) []snapshot.Output {
	out := make([]snapshot.Output, 0, len(specs))
	for i, s := range specs {
		out = append(out, snapshot.Output{
			Index:   i,
			OriginX: s.X,
			OriginY: s.Y,
			Width:   uint32(s.Width),
			Height:  uint32(s.Height),
			Scale:   s.Scale,
			Enabled: true,
		})
	}
	return out
}

package main

import (
	"context"
	"errors"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
	"github.com/soypat/glvox/config"
	"github.com/soypat/glvox/glbuild"
	"github.com/soypat/glvox/glrender"
	"github.com/soypat/glvox/internal/input"
	"github.com/urfave/cli"
)

// editReach is the distance in front of the camera at which voxels are edited.
const editReach float32 = 3

var keyBindings = map[glfw.Key]input.Key{
	glfw.KeyW:           input.KeyForward,
	glfw.KeyS:           input.KeyBackward,
	glfw.KeyA:           input.KeyLeft,
	glfw.KeyD:           input.KeyRight,
	glfw.KeySpace:       input.KeyUp,
	glfw.KeyLeftControl: input.KeyDown,
	glfw.KeyLeftShift:   input.KeyFast,
}

// Run opens the interactive window. The GL context, the device and every
// dispatch live on the main OS thread.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if dir := ctx.String("shaders"); dir != "" {
		cfg.Shaders.Dir = dir
	}
	if ctx.Bool("hot-reload") {
		cfg.Shaders.HotReload = true
	}
	sc, err := loadScene(cfg)
	if err != nil {
		return err
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	window, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   cfg.Window.Title,
		Version: [2]int{4, 6},
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
	})
	if err != nil {
		return err
	}
	defer terminate()
	glfw.SwapInterval(1)

	dev := compute.NewGPU()
	defer dev.Release()
	info := dev.Info()
	logger.Noticef("using %s (%s)", info.Renderer, info.Version)

	res := glbuild.NewResources(cfg.Shaders.Dir)
	width, height := window.GetFramebufferSize()
	pc, err := pipelineConfig(cfg, sc, width, height)
	if err != nil {
		return err
	}
	pl, err := glrender.NewPipeline(dev, res, pc)
	if err != nil {
		return err
	}
	defer pl.Release()
	comp, err := glrender.NewCompositor(dev, res)
	if err != nil {
		return err
	}
	defer func() { comp.Release() }()
	comp.Exposure = cfg.Render.Exposure

	mailbox := input.NewMailbox(cfg.Octree.DeltaCapacity)
	cam := cameraBuilder(cfg, width, height)
	bindInput(window, mailbox, cam, len(sc.palette))

	changed := make(chan string, 8)
	if cfg.Shaders.HotReload {
		watchCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := res.Watch(watchCtx, changed); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warningf("shader hot reload disabled: %v", err)
			}
		}()
	}

	timer := glrender.NewFrameTimer()
	deltas := make([]glvox.Delta, 0, cfg.Octree.DeltaCapacity)
	for !window.ShouldClose() {
		glfw.PollEvents()
		state, dropped := mailbox.Snapshot()
		if state.Quit {
			break
		}
		comp = reloadShaders(changed, pl, comp, dev, res)

		dt := float32(timer.Tick().Seconds())
		moveCamera(cam, &state, cfg.Camera, dt)
		var overflow int
		deltas, overflow = collectEdits(deltas, pl.Octree(), state.Edits, cfg.Octree.DeltaCapacity)
		if dropped += overflow; dropped > 0 {
			logger.Infof("%d edits dropped this frame", dropped)
		}

		width, height = window.GetFramebufferSize()
		if width == 0 || height == 0 {
			// Minimized. Pending edits are applied on the next drawn frame.
			continue
		}
		if err := pl.Resize(width, height); err != nil {
			return err
		}
		cam.WithImageSize(width, height)
		if err := pl.Frame(cam.Build(), deltas); err != nil {
			return err
		}
		if len(deltas) > 0 {
			if _, err := pl.Updater().CheckCapacity(); err != nil {
				return err
			}
		}
		deltas = deltas[:0]
		if err := comp.Draw(pl.Raytracer().Texture(), width, height); err != nil {
			return err
		}
		window.SwapBuffers()
	}
	s := timer.Stats()
	logger.Noticef("%d frames, mean %.2f ms (%.1f fps), p99 %.2f ms", s.Frames, 1000*s.Mean, s.FPS(), 1000*s.P99)
	return nil
}

// bindInput routes window events into the mailbox. Callbacks run during
// PollEvents.
func bindInput(window *glfw.Window, mb *input.Mailbox, cam *glrender.CameraBuilder, materials int) {
	material := uint32(1)
	looking := false
	target := func() ms3.Vec {
		return ms3.Add(cam.Origin, ms3.Scale(editReach, cam.Forward()))
	}
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Repeat {
			return
		}
		if k, ok := keyBindings[key]; ok {
			mb.SetKey(k, action == glfw.Press)
			return
		}
		if action != glfw.Press {
			return
		}
		switch {
		case key == glfw.KeyEscape:
			mb.RequestQuit()
		case key == glfw.KeyX:
			mb.PostEdit(input.Edit{World: target(), Edit: glvox.EditClear})
		case key >= glfw.Key1 && key <= glfw.Key9:
			if n := uint32(key - glfw.Key1 + 1); int(n) < materials {
				material = n
				logger.Infof("material %d selected", n)
			}
		}
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		switch button {
		case glfw.MouseButtonLeft:
			if action == glfw.Press {
				mb.PostEdit(input.Edit{World: target(), Edit: glvox.EditSet, Value: material})
			}
		case glfw.MouseButtonRight:
			looking = action == glfw.Press
			mb.ReleaseCursor()
			if looking {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if looking {
			mb.CursorMoved(x, y)
		}
	})
}

func moveCamera(cam *glrender.CameraBuilder, s *input.State, cfg config.Camera, dt float32) {
	speed := cfg.MoveSpeed * dt
	if s.Down(input.KeyFast) {
		speed *= 2
	}
	cam.Fly(
		speed*s.Axis(input.KeyForward, input.KeyBackward),
		speed*s.Axis(input.KeyRight, input.KeyLeft),
		speed*s.Axis(input.KeyUp, input.KeyDown),
	)
	sens := cfg.LookSensitivity * math32.Pi / 180
	cam.Look(float32(s.LookX)*sens, -float32(s.LookY)*sens)
}

// collectEdits appends world space edit requests to dst as delta records,
// skipping points outside the root cube. Edits that would grow dst past
// limit are dropped and counted.
func collectEdits(dst []glvox.Delta, oct *glvox.Octree, edits []input.Edit, limit int) (_ []glvox.Delta, dropped int) {
	for _, e := range edits {
		if !oct.PointInside(e.World) {
			logger.Debugf("edit at %v outside the tree", e.World)
			continue
		}
		if len(dst) >= limit {
			dropped++
			continue
		}
		dst = append(dst, glvox.Delta{Position: oct.Normalize(e.World), Edit: e.Edit, Value: e.Value})
	}
	return dst, dropped
}

// reloadShaders recompiles programs whose sources changed. Compilation
// errors are logged and the previous programs stay in use.
func reloadShaders(changed <-chan string, pl *glrender.Pipeline, comp *glrender.Compositor, dev *compute.GPU, res *glbuild.Resources) *glrender.Compositor {
	for {
		select {
		case name := <-changed:
			switch name {
			case glbuild.BlitVertex, glbuild.BlitFragment:
				next, err := glrender.NewCompositor(dev, res)
				if err != nil {
					logger.Errorf("reloading %s: %v", name, err)
					continue
				}
				next.Exposure = comp.Exposure
				comp.Release()
				comp = next
				logger.Noticef("reloaded %s", name)
			default:
				if err := pl.Reload(name); err != nil {
					logger.Errorf("reloading %s: %v", name, err)
				}
			}
		default:
			return comp
		}
	}
}

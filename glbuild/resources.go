package glbuild

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/soypat/glvox/log"
)

//go:embed shaders
var embedded embed.FS

var logger = log.New("glbuild")

var (
	ErrUnknownStage   = errors.New("glbuild: unknown shader stage extension")
	ErrDuplicateStage = errors.New("glbuild: shader stage given twice")
	ErrNoOverrideDir  = errors.New("glbuild: resources have no override directory to watch")
)

// Shader names of the octree pipeline.
const (
	UpdateShader   = "update.comp"
	RaytraceShader = "raytrace.comp"
	BlitVertex     = "blit.vert"
	BlitFragment   = "blit.frag"
)

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// StageOf infers the stage of a shader from its file extension.
func StageOf(name string) (Stage, error) {
	switch path.Ext(name) {
	case ".vert":
		return StageVertex, nil
	case ".frag":
		return StageFragment, nil
	case ".comp":
		return StageCompute, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// Resources loads shader sources by logical name. Sources found in the
// override directory take precedence over the embedded ones.
type Resources struct {
	dir string
}

// NewResources returns a loader. An empty dir uses the embedded sources only.
func NewResources(dir string) *Resources {
	return &Resources{dir: dir}
}

// Dir returns the override directory.
func (r *Resources) Dir() string { return r.dir }

// Load returns the source text of the named shader.
func (r *Resources) Load(name string) (string, error) {
	if _, err := StageOf(name); err != nil {
		return "", err
	}
	if r.dir != "" {
		b, err := os.ReadFile(filepath.Join(r.dir, name))
		if err == nil {
			return string(b), nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	b, err := embedded.ReadFile(path.Join("shaders", name))
	if err != nil {
		return "", fmt.Errorf("glbuild: loading %s: %w", name, err)
	}
	return string(b), nil
}

// Program returns the combined source of a program built from the named
// shaders, one per stage, in the format parsed by glgl.ParseCombined.
// Compute stages are prefixed with the shared header.
func (r *Resources) Program(names ...string) (string, error) {
	var b strings.Builder
	var seen [StageCompute + 1]bool
	for _, name := range names {
		stage, err := StageOf(name)
		if err != nil {
			return "", err
		}
		if seen[stage] {
			return "", fmt.Errorf("%w: %s", ErrDuplicateStage, stage)
		}
		seen[stage] = true
		src, err := r.Load(name)
		if err != nil {
			return "", err
		}
		b.WriteString("#shader ")
		b.WriteString(stage.String())
		b.WriteByte('\n')
		b.WriteString(GLSLVersion)
		if stage == StageCompute {
			b.Write(AppendHeader(nil))
		}
		b.WriteString(src)
		if !strings.HasSuffix(src, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// Watch reports the names of shaders written in the override directory on
// changed until ctx is done. It blocks and is meant to run in its own
// goroutine.
func (r *Resources) Watch(ctx context.Context, changed chan<- string) error {
	if r.dir == "" {
		return ErrNoOverrideDir
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(r.dir); err != nil {
		return err
	}
	logger.Infof("watching %s for shader changes", r.dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if _, err := StageOf(name); err != nil {
				continue
			}
			select {
			case changed <- name:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warningf("shader watcher: %v", err)
		}
	}
}

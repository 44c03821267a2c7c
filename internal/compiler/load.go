package compiler

import (
	"fmt"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/aircore/internal/ir"
)

// LoadDir loads the CUE package in dir and compiles it. A configuration
// without a name is named after its directory.
func LoadDir(dir string, catalog PortCatalog) (*ir.Config, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	cfg, err := Compile(v, catalog)
	if err != nil {
		return nil, err
	}

	if cfg.Name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		cfg.Name = filepath.Base(abs)
	}
	return cfg, nil
}

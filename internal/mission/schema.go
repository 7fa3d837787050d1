package mission

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed mission.cue
var missionSchema []byte

// validateSchema checks raw mission YAML against the embedded CUE schema.
func validateSchema(name string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(missionSchema, cue.Filename("mission.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile mission schema: %w", err)
	}
	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, name, err)
	}
	val := ctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, name, err)
	}
	if err := schema.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, name, err)
	}
	return nil
}

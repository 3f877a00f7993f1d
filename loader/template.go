package loader

import (
	"fmt"
	"path/filepath"

	"github.com/c360studio/protodb/record"
	"github.com/c360studio/protodb/resolve"
)

// Template binds a path template such as "/path/to/{uri}.rttm" to a
// deferred loader.
//
// The suffix check happens here, once, so a bad template fails at binding
// time. Everything else happens per record when the returned loader runs:
// placeholders are filled from the record's resolved fields, the path is
// resolved against configDir, the factory is instantiated on that path and
// invoked with the record.
func (r *Registry) Template(template, configDir string) (Func, error) {
	factory, err := r.Lookup(filepath.Ext(template))
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", template, err)
	}

	return func(rec *record.Record) (any, error) {
		raw, err := rec.Format(template)
		if err != nil {
			return nil, err
		}

		path, err := resolve.Path(raw, configDir)
		if err != nil {
			return nil, fmt.Errorf("%w (via %q template)", err, template)
		}

		load, err := factory(path)
		if err != nil {
			return nil, fmt.Errorf("instantiate loader for %s: %w", path, err)
		}
		return load(rec)
	}, nil
}

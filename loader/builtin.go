package loader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/c360studio/protodb/annotation"
	"github.com/c360studio/protodb/record"
	"github.com/c360studio/protodb/resolve"
)

// ErrNoEntry is returned by the .map loader when the record's uri is absent.
var ErrNoEntry = errors.New("no entry for uri")

// NewListLoader loads the whole list file, whatever the record.
func NewListLoader(path string) (Func, error) {
	lines, err := resolve.List(path)
	if err != nil {
		return nil, err
	}
	return func(*record.Record) (any, error) {
		out := make([]string, len(lines))
		copy(out, lines)
		return out, nil
	}, nil
}

// NewUEMLoader parses "uri channel start end" lines.
func NewUEMLoader(path string) (Func, error) {
	timelines := make(map[string]*annotation.Timeline)
	err := scanFields(path, 4, func(fields []string) error {
		start, end, err := parseInterval(fields[2], fields[3], false)
		if err != nil {
			return err
		}
		uri := fields[0]
		t, ok := timelines[uri]
		if !ok {
			t = annotation.NewTimeline(uri)
			timelines[uri] = t
		}
		t.Add(annotation.Segment{Start: start, End: end})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(r *record.Record) (any, error) {
		uri := r.URI()
		if t, ok := timelines[uri]; ok {
			return annotation.NewTimeline(uri, t.Segments()...), nil
		}
		return annotation.NewTimeline(uri), nil
	}, nil
}

// NewRTTMLoader parses "SPEAKER uri channel start duration <NA> <NA> label ..."
// lines.
func NewRTTMLoader(path string) (Func, error) {
	annotations := make(map[string]*annotation.Annotation)
	err := scanFields(path, 8, func(fields []string) error {
		start, end, err := parseInterval(fields[3], fields[4], true)
		if err != nil {
			return err
		}
		uri := fields[1]
		a, ok := annotations[uri]
		if !ok {
			a = annotation.NewAnnotation(uri)
			annotations[uri] = a
		}
		a.Add(annotation.Segment{Start: start, End: end}, fields[7])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(r *record.Record) (any, error) {
		uri := r.URI()
		out := annotation.NewAnnotation(uri)
		if a, ok := annotations[uri]; ok {
			for _, tr := range a.Tracks() {
				out.Add(tr.Segment, tr.Label)
			}
		}
		return out, nil
	}, nil
}

// NewMapLoader parses "uri value" lines.
func NewMapLoader(path string) (Func, error) {
	values := make(map[string]string)
	err := scanFields(path, 2, func(fields []string) error {
		values[fields[0]] = strings.Join(fields[1:], " ")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(r *record.Record) (any, error) {
		v, ok := values[r.URI()]
		if !ok {
			return nil, fmt.Errorf("%w %q in %s", ErrNoEntry, r.URI(), path)
		}
		return v, nil
	}, nil
}

// scanFields calls fn with the whitespace-separated fields of every
// non-blank, non-comment line. Lines with fewer than minFields fields fail.
func scanFields(path string, minFields int, fn func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < minFields {
			return fmt.Errorf("%s:%d: expected at least %d fields, got %d", path, lineno, minFields, len(fields))
		}
		if err := fn(fields); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
	}
	return scanner.Err()
}

// parseInterval parses start and either end or duration.
func parseInterval(a, b string, isDuration bool) (float64, float64, error) {
	start, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse start %q: %w", a, err)
	}
	second, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", b, err)
	}
	if isDuration {
		return start, start + second, nil
	}
	return start, second, nil
}

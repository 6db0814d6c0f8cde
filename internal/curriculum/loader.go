package curriculum

import (
	_ "embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed track.schema.json
var trackSchemaJSON string

var trackSchema = mustCompileSchema(trackSchemaJSON)

func mustCompileSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("curriculum: invalid embedded track schema: " + err.Error())
	}
	return s
}

// trackFile is the on-disk shape of one track.
type trackFile struct {
	Track       string `yaml:"track"`
	Description string `yaml:"description"`
	Units       []struct {
		ID     string `yaml:"id"`
		Kind   Kind   `yaml:"kind"`
		Title  string `yaml:"title"`
		Points *int64 `yaml:"points"`
	} `yaml:"units"`
}

// Loader reads track files from a directory tree and builds a Curriculum.
type Loader struct {
	rootDir    string
	files      []string
	curriculum *Curriculum
}

// NewLoader walks rootDir, validates every track file and builds the curriculum.
// YAML files without a top-level "track" key are skipped.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{rootDir: rootDir}

	units, err := l.loadAll()
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("loading curriculum: no track files under %s", rootDir)
	}

	cur, err := New(units)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}
	l.curriculum = cur

	slog.Info("curriculum loaded", "dir", rootDir, "tracks", len(cur.Tracks()), "units", cur.Len())
	return l, nil
}

// Curriculum returns the loaded curriculum.
func (l *Loader) Curriculum() *Curriculum {
	return l.curriculum
}

// Files returns the track files that were loaded, in load order.
func (l *Loader) Files() []string {
	return append([]string(nil), l.files...)
}

// Load is a shorthand for NewLoader(dir).Curriculum().
func Load(rootDir string) (*Curriculum, error) {
	l, err := NewLoader(rootDir)
	if err != nil {
		return nil, err
	}
	return l.Curriculum(), nil
}

func (l *Loader) loadAll() ([]Unit, error) {
	var units []Unit
	err := filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		trackUnits, ok, err := l.loadTrack(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !ok {
			slog.Debug("skipping non-track YAML", "path", path)
			return nil
		}
		l.files = append(l.files, path)
		units = append(units, trackUnits...)
		return nil
	})
	return units, err
}

func (l *Loader) loadTrack(path string) ([]Unit, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("parse yaml: %w", err)
	}
	if _, ok := raw["track"]; !ok {
		return nil, false, nil
	}

	if err := validateTrack(raw); err != nil {
		return nil, false, err
	}

	var tf trackFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, false, fmt.Errorf("decode track: %w", err)
	}

	units := make([]Unit, 0, len(tf.Units))
	for i, u := range tf.Units {
		points := u.Kind.DefaultPoints()
		if u.Points != nil {
			points = *u.Points
		}
		units = append(units, Unit{
			ID:      strings.TrimSpace(u.ID),
			Kind:    u.Kind,
			Ordinal: i,
			Track:   strings.TrimSpace(tf.Track),
			Title:   u.Title,
			Points:  points,
		})
	}
	return units, true, nil
}

// ValidateTrack checks raw track YAML against the track schema.
func ValidateTrack(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return validateTrack(raw)
}

func validateTrack(raw map[string]any) error {
	result, err := trackSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate track: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid track file: %s", strings.Join(msgs, "; "))
}

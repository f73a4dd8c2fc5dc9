// Package production provides production integrations: status persistence,
// transition publishing, visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/scheduler"
	"github.com/comalice/tickfsm/timebase"
)

// MachineStatus is the observable state of one machine.
type MachineStatus struct {
	Name      string             `json:"name" yaml:"name"`
	State     string             `json:"state" yaml:"state"`
	StateType string             `json:"state_type" yaml:"state_type"`
	EnteredAt timebase.TimePoint `json:"entered_at" yaml:"entered_at"`
	Running   bool               `json:"running" yaml:"running"`
}

// StatusOf captures the status of m.
func StatusOf[ID comparable, C any](m *tickfsm.Machine[ID, C]) MachineStatus {
	id := m.StateID()
	return MachineStatus{
		Name:      m.Name(),
		State:     fmt.Sprint(id),
		StateType: m.Definition().StateName(id),
		EnteredAt: m.EnteredAt(),
		Running:   m.Running(),
	}
}

// Snapshot is a point-in-time status report of a runtime: its machines and
// its scheduler's task table. It is diagnostic output, not a restore point.
type Snapshot struct {
	ID       string               `json:"id" yaml:"id"`
	TakenAt  time.Time            `json:"taken_at" yaml:"taken_at"`
	Tick     uint64               `json:"tick" yaml:"tick"`
	Machines []MachineStatus      `json:"machines" yaml:"machines"`
	Tasks    []scheduler.TaskInfo `json:"tasks" yaml:"tasks"`
}

// Persister stores and loads snapshots by id.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
}

// codec is the serialization a filePersister uses.
type codec struct {
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

type filePersister struct {
	dir   string
	codec codec
}

func newFilePersister(dir string, c codec) (*filePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &filePersister{dir: dir, codec: c}, nil
}

func (p *filePersister) Save(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.ID == "" {
		return errors.New("snapshot id is empty")
	}
	data, err := p.codec.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", p.codec.ext, err)
	}

	fn := filepath.Join(p.dir, snapshot.ID+"."+p.codec.ext)
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (p *filePersister) Load(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	fn := filepath.Join(p.dir, id+"."+p.codec.ext)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("snapshot %q: %w", id, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot Snapshot
	if err := p.codec.unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%s unmarshal: %w", p.codec.ext, err)
	}
	snapshot.ID = id
	return snapshot, nil
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct{ *filePersister }

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	fp, err := newFilePersister(dir, codec{
		ext: "json",
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	})
	if err != nil {
		return nil, err
	}
	return &JSONPersister{fp}, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct{ *filePersister }

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	fp, err := newFilePersister(dir, codec{
		ext:       "yaml",
		marshal:   yaml.Marshal,
		unmarshal: yaml.Unmarshal,
	})
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{fp}, nil
}

// NewPersister returns the persister for format "json" or "yaml".
func NewPersister(format, dir string) (Persister, error) {
	switch format {
	case "json":
		p, err := NewJSONPersister(dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "yaml", "yml":
		p, err := NewYAMLPersister(dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}

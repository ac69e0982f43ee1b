// Package mockfrontend implements a fixture-driven stand-in for the real
// aggregator, used by integration tests that want canned responses without
// standing up real agents. It satisfies the same Aggregator shape
// internal/frontend dispatches to, so it can be registered with
// frontend.Register in place of a real *aggregator.Aggregator.
package mockfrontend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"gopkg.in/yaml.v3"

	"github.com/google/ecclesia-mmaster/internal/resource"
)

// fixture is one YAML-encoded Query<R>Response. The original mock service
// (ecclesia/mmaster/mock/service.cc) reads text-format protobuf fixtures;
// no textproto library exists in this repository's dependency pack, so the
// format here is YAML over the same {id, status, fields} shape — a
// format substitution, not a behavior change.
type fixture struct {
	ID     resource.Identifier `yaml:"id"`
	Status string              `yaml:"status"`
	Fields map[string]any      `yaml:"fields"`
}

var statusByName = map[string]code.Code{
	"OK":        code.Code_OK,
	"NOT_FOUND": code.Code_NOT_FOUND,
}

func (f fixture) toResponse() resource.Response {
	status, ok := statusByName[strings.ToUpper(f.Status)]
	if !ok {
		status = code.Code_OK
	}
	return resource.Response{ID: f.ID, Status: status, Fields: f.Fields}
}

// Service is the loaded fixture set, grouped by resource kind.
type Service struct {
	byKind map[resource.Kind][]resource.Response
}

// Load reads every *.yaml file in dir. Each file is matched to the
// resource.Kind whose name prefixes its base filename (
// "grouped by resource-type prefix"; no resource name is a prefix of
// another, so the match is unambiguous), and parsed as a YAML list of
// fixtures for that kind.
func Load(dir string) (*Service, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mockfrontend: reading fixture dir %s: %w", dir, err)
	}

	s := &Service{byKind: make(map[resource.Kind][]resource.Response)}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		kind, ok := kindForFilename(entry.Name())
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("mockfrontend: reading fixture file %s: %w", entry.Name(), err)
		}

		var fixtures []fixture
		if err := yaml.Unmarshal(data, &fixtures); err != nil {
			return nil, fmt.Errorf("mockfrontend: parsing fixture file %s: %w", entry.Name(), err)
		}

		for _, f := range fixtures {
			s.byKind[kind] = append(s.byKind[kind], f.toResponse())
		}
	}

	return s, nil
}

func kindForFilename(name string) (resource.Kind, bool) {
	base := strings.TrimSuffix(name, ".yaml")
	for _, k := range resource.Kinds {
		if strings.HasPrefix(strings.ToLower(base), strings.ToLower(string(k))) {
			return k, true
		}
	}
	return "", false
}

// Enumerate streams the id of every loaded response for kind.
func (s *Service) Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error {
	for _, r := range s.byKind[kind] {
		if err := onWrite(r.ID); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the first loaded response for kind whose id is semantically
// equal to id, or a NOT_FOUND response carrying the request id.
func (s *Service) Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) resource.Response {
	for _, r := range s.byKind[kind] {
		if r.ID.Equal(id) {
			return r
		}
	}
	return resource.NotFound(id)
}

// Package mapper implements the snapshot-based, lock-free-read devpath
// mapper: machine<->agent devpath translation over a merged topology graph
// that is rebuilt and atomically published whenever an agent's plugin list
// changes.
package mapper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/ecclesia-mmaster/internal/devpath"
	"github.com/google/ecclesia-mmaster/internal/topology"
	"github.com/google/ecclesia-mmaster/pkg/apperror"
	"github.com/google/ecclesia-mmaster/pkg/config"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// Updater reports an agent's current local plugin devpath list. The mapper
// invokes each updater at most once per rebuild; updaters are not required
// to be thread-safe. A non-nil error or an empty plugin list both fall
// back to the agent's configured fallback list.
type Updater interface {
	Update(ctx context.Context) (plugins []string, changed bool, err error)
}

// Snapshot is the immutable result of one rebuild: the merged machine graph
// plus each agent's own pre-merge graph, kept for diagnostics.
type Snapshot struct {
	Root  *topology.Graph
	Owned map[string]*topology.Graph
}

// Mapper is the snapshot-based devpath mapper. Zero value is not usable;
// construct with New.
type Mapper struct {
	cfg      *config.Config
	updaters map[string]Updater

	snapshot atomic.Pointer[Snapshot]

	rebuildMu sync.Mutex
	built     bool
}

// New constructs a Mapper for the given configuration. updaters maps agent
// name to its snapshot updater; an agent with no entry always falls back to
// its configured fallback plugin list.
func New(cfg *config.Config, updaters map[string]Updater) *Mapper {
	return &Mapper{cfg: cfg, updaters: updaters}
}

// Rebuild invokes each agent's updater, and if any reported a change (or
// this is the first build), regenerates per-agent graphs, applies
// inversions and the merge spec, and atomically publishes the new
// snapshot. Concurrent Rebuild calls are serialized; concurrent readers
// during a rebuild observe either the old or the new snapshot.
func (m *Mapper) Rebuild(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "mapper.Rebuild")
	defer span.End()

	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	changedAny := !m.built
	plugins := make(map[string][]string, len(m.cfg.Agents))

	for _, agent := range m.cfg.Agents {
		list, changed := m.reportPlugins(ctx, agent)
		if changed {
			changedAny = true
		}
		if len(list) == 0 {
			list = append([]string(nil), agent.FallbackPlugins...)
		}
		plugins[agent.Name] = list
	}

	span.SetAttributes(telemetry.MapperRebuildAttributes(0, changedAny)...)
	if !changedAny {
		return nil
	}

	perAgent := make(map[string]*topology.Graph, len(plugins))
	for name, list := range plugins {
		g, err := topology.Generate(name, list)
		if err != nil {
			telemetry.SetError(ctx, err)
			return err
		}
		perAgent[name] = g
	}

	for _, op := range m.cfg.Merge.InvertOps {
		g, ok := perAgent[op.Agent]
		if !ok {
			err := apperror.New(apperror.CodeSpecMismatch,
				fmt.Sprintf("invert_ops references unknown agent %q", op.Agent))
			telemetry.SetError(ctx, err)
			return err
		}
		if err := topology.Invert(g, op.NewRootDevpath, op.UpstreamConnectors); err != nil {
			telemetry.SetError(ctx, err)
			return err
		}
	}

	root, err := topology.Merge(perAgent, m.cfg.Merge)
	if err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	m.snapshot.Store(&Snapshot{Root: root, Owned: perAgent})
	m.built = true
	span.SetAttributes(telemetry.MapperRebuildAttributes(root.Len(), changedAny)...)
	return nil
}

func (m *Mapper) reportPlugins(ctx context.Context, agent config.AgentConfig) (plugins []string, changed bool) {
	upd, ok := m.updaters[agent.Name]
	if !ok {
		return nil, false
	}
	list, changed, err := upd.Update(ctx)
	if err != nil {
		logger.Get().Warn("agent snapshot updater failed, falling back",
			"agent", agent.Name, "error", err)
		return nil, false
	}
	return list, changed
}

// Snapshot returns the currently published snapshot, or nil if Rebuild has
// never succeeded.
func (m *Mapper) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// DomainDevpathToMachine translates an agent-local devpath into its
// machine-global form.
func (m *Mapper) DomainDevpathToMachine(domain, devpathStr string) (string, error) {
	path, ns, text, err := devpath.Components(devpathStr)
	if err != nil {
		return "", apperror.ErrInvalidDevpath
	}

	snap := m.snapshot.Load()
	if snap == nil {
		return "", apperror.ErrNotFound
	}

	id, ok := snap.Root.VertexByPair(topology.LocalPair{Agent: domain, Local: path})
	if !ok {
		return "", apperror.ErrNotFound
	}

	return devpath.Join(snap.Root.Vertex(id).Global, ns, text), nil
}

// MachineDevpathToDomain translates a machine-global devpath into the
// given agent's local form.
func (m *Mapper) MachineDevpathToDomain(domain, devpathStr string) (string, error) {
	path, ns, text, err := devpath.Components(devpathStr)
	if err != nil {
		return "", apperror.ErrInvalidDevpath
	}

	snap := m.snapshot.Load()
	if snap == nil {
		return "", apperror.ErrNotFound
	}

	id, ok := snap.Root.VertexByGlobal(path)
	if !ok {
		return "", apperror.ErrNotFound
	}

	for _, p := range snap.Root.Vertex(id).Pairs {
		if p.Agent == domain {
			return devpath.Join(p.Local, ns, text), nil
		}
	}
	return "", apperror.ErrNotFound
}

// MachineDevpathToDomains returns the set of distinct agent names that
// report the vertex at the given machine-global devpath. It returns an
// empty slice (not an error) when no vertex matches.
func (m *Mapper) MachineDevpathToDomains(devpathStr string) ([]string, error) {
	path, _, _, err := devpath.Components(devpathStr)
	if err != nil {
		return nil, apperror.ErrInvalidDevpath
	}

	snap := m.snapshot.Load()
	if snap == nil {
		return nil, nil
	}

	id, ok := snap.Root.VertexByGlobal(path)
	if !ok {
		return nil, nil
	}

	seen := make(map[string]bool)
	var domains []string
	for _, p := range snap.Root.Vertex(id).Pairs {
		if !seen[p.Agent] {
			seen[p.Agent] = true
			domains = append(domains, p.Agent)
		}
	}
	return domains, nil
}

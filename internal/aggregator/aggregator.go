// Package aggregator implements the streaming resource aggregator:
// fan-out Enumerate across every agent's collector, and candidate-agent
// Query routing with first-OK-wins semantics.
package aggregator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/collector"
	"github.com/google/ecclesia-mmaster/internal/resource"
	"github.com/google/ecclesia-mmaster/pkg/logger"
	"github.com/google/ecclesia-mmaster/pkg/telemetry"
)

// Mapper is the subset of *mapper.Mapper the aggregator needs: devpath
// translation and domain derivation over the current snapshot.
type Mapper interface {
	DomainDevpathToMachine(domain, devpath string) (string, error)
	MachineDevpathToDomain(domain, devpath string) (string, error)
	MachineDevpathToDomains(devpath string) ([]string, error)
}

type agentEntry struct {
	collector collector.Collector
	osDomain  string
}

// AgentSpec registers one agent's collector and os_domain with the
// aggregator.
type AgentSpec struct {
	Name      string
	OsDomain  string
	Collector collector.Collector
}

// Aggregator fans streaming Enumerate/Query calls out across every
// registered agent's collector, using Mapper to translate between
// machine-global and agent-local devpaths.
type Aggregator struct {
	mapper Mapper
	agents map[string]agentEntry
}

// New builds an Aggregator over mapper and the given agent collectors.
func New(mapper Mapper, specs []AgentSpec) *Aggregator {
	agents := make(map[string]agentEntry, len(specs))
	for _, s := range specs {
		agents[s.Name] = agentEntry{collector: s.Collector, osDomain: s.OsDomain}
	}
	return &Aggregator{mapper: mapper, agents: agents}
}

// Enumerate fans Enumerate(kind) out to every agent's collector
// concurrently, translates each id's devpath to machine-global form, and
// forwards translated ids to onWrite in the order they arrive on an
// internal merge channel, modeling response streaming as a channel rather
// than a generator; onWrite is only ever called from this single
// consuming goroutine, never concurrently). Responses whose devpath
// fails to translate are dropped and logged, never surfaced. OsDomain
// responses are deduplicated by name across agents.
func (a *Aggregator) Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error {
	ch := make(chan resource.Identifier)

	g, gctx := errgroup.WithContext(ctx)
	for name, entry := range a.agents {
		name, entry := name, entry
		g.Go(func() error {
			agentCtx, span := telemetry.StartSpan(gctx, "aggregator.Enumerate.agent")
			span.SetAttributes(telemetry.EnumerateAttributes(name, string(kind))...)
			defer span.End()

			err := entry.collector.Enumerate(agentCtx, kind, func(localID resource.Identifier) error {
				translated, ok := a.translate(kind, name, localID)
				if !ok {
					return nil
				}
				select {
				case ch <- translated:
					return nil
				case <-agentCtx.Done():
					return agentCtx.Err()
				}
			})
			if err != nil {
				telemetry.SetError(agentCtx, err)
			}
			return err
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(ch)
	}()

	seenOsDomain := make(map[string]bool)
	var writeErr error
	for id := range ch {
		if kind == resource.KindOsDomain {
			if seenOsDomain[id.Name] {
				continue
			}
			seenOsDomain[id.Name] = true
		}
		if writeErr != nil {
			continue
		}
		if err := onWrite(id); err != nil {
			writeErr = err
		}
	}

	if err := <-done; err != nil && writeErr == nil {
		return err
	}
	return writeErr
}

func (a *Aggregator) translate(kind resource.Kind, agentName string, localID resource.Identifier) (resource.Identifier, bool) {
	if !kind.DevpathKeyed() {
		return localID, true
	}
	machine, err := a.mapper.DomainDevpathToMachine(agentName, localID.Devpath)
	if err != nil {
		logger.Get().Warn("aggregator: dropping enumerate response with untranslatable devpath",
			"agent", agentName, "devpath", localID.Devpath, "error", err)
		return resource.Identifier{}, false
	}
	return resource.Identifier{Devpath: machine}, true
}

// Query derives the candidate agent set from id, queries each candidate
// concurrently with its locally-translated id, and returns the first OK
// response (with id replaced by the original request id), or a
// NOT_FOUND response carrying the original id if none answer OK.
func (a *Aggregator) Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) resource.Response {
	candidates := a.candidateAgents(kind, id)

	ctx, span := telemetry.StartSpan(ctx, "aggregator.Query")
	span.SetAttributes(telemetry.QueryAttributes(string(kind), id.Devpath, len(candidates))...)
	defer span.End()

	if len(candidates) == 0 {
		return resource.NotFound(id)
	}

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan resource.Response, len(candidates))
	var wg sync.WaitGroup

	for _, name := range candidates {
		entry := a.agents[name]
		localID, ok := a.translateForQuery(kind, name, id)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, entry agentEntry, localID resource.Identifier) {
			defer wg.Done()
			agentCtx, agentSpan := telemetry.StartSpan(qctx, "aggregator.Query.agent")
			agentSpan.SetAttributes(telemetry.EnumerateAttributes(name, string(kind))...)
			defer agentSpan.End()

			resp, err := entry.collector.Query(agentCtx, kind, localID, mask)
			if err != nil {
				telemetry.SetError(agentCtx, err)
				logger.Get().Warn("aggregator: collector query failed", "agent", name, "error", err)
				return
			}
			select {
			case results <- resp:
			case <-qctx.Done():
			}
		}(name, entry, localID)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for resp := range results {
		if resp.Status == code.Code_OK {
			cancel()
			resp.ID = id
			return resp
		}
	}
	return resource.NotFound(id)
}

func (a *Aggregator) translateForQuery(kind resource.Kind, agentName string, id resource.Identifier) (resource.Identifier, bool) {
	if !kind.DevpathKeyed() {
		return id, true
	}
	local, err := a.mapper.MachineDevpathToDomain(agentName, id.Devpath)
	if err != nil {
		return resource.Identifier{}, false
	}
	return resource.Identifier{Devpath: local}, true
}

// candidateAgents implements the candidate-agent derivation rule: devpath-keyed
// resources consult the mapper; OsDomain consults every agent whose
// configured os_domain matches the request name.
func (a *Aggregator) candidateAgents(kind resource.Kind, id resource.Identifier) []string {
	if kind.DevpathKeyed() {
		domains, err := a.mapper.MachineDevpathToDomains(id.Devpath)
		if err != nil {
			return nil
		}
		return domains
	}
	var out []string
	for name, e := range a.agents {
		if e.osDomain == id.Name {
			out = append(out, name)
		}
	}
	return out
}

package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreamware/clusterscope/internal/info"
)

var indexStates = map[string]string{
	"RW": IndexReady,
	"WO": IndexBuilding,
	"D":  IndexError,
}

var indexTypes = map[string]string{
	"numeric":     "numeric",
	"string":      "string",
	"geo2dsphere": "geo2dsphere",
}

// ListIndexes returns the secondary indexes of every namespace, each
// reconciled across the nodes that report it.
func (a *Assembler) ListIndexes(ctx context.Context) ([]IndexView, error) {
	names, err := a.Namespaces(ctx)
	if err != nil {
		return nil, err
	}

	indexes := make([]IndexView, 0)
	for _, ns := range names {
		// Index definitions are cluster-wide; there is nothing to divide.
		for _, rec := range info.Reconcile(a.queryAll(ctx, info.SIndex(ns)), 1, info.IndexGroup) {
			indexes = append(indexes, indexView(ns, rec))
		}
	}
	return indexes, nil
}

func indexView(ns string, rec info.AggregatedRecord) IndexView {
	attr := rec.Attributes
	namespace := attr["ns"]
	if namespace == "" {
		namespace = ns
	}

	typ, ok := indexTypes[strings.ToLower(attr["type"])]
	if !ok {
		typ = "string"
	}
	state, ok := indexStates[attr["state"]]
	if !ok {
		state = IndexReady
	}

	return IndexView{
		Name:      rec.Name,
		Namespace: namespace,
		Set:       attr["set"],
		Bin:       attr["bin"],
		Type:      typ,
		State:     state,
		NodeCount: rec.RespondingNodes,
	}
}

// ListUDFs returns the UDF modules registered on the cluster, as reported by
// any one node.
func (a *Assembler) ListUDFs(ctx context.Context) ([]UDFModule, error) {
	raw, err := a.q.QueryAnyNode(ctx, info.CmdUDFList)
	if err != nil {
		return nil, fmt.Errorf("list udfs: %w", err)
	}

	records := info.ParseSubRecords(raw, "", ",")
	modules := make([]UDFModule, 0, len(records))
	for _, rec := range records {
		typ := strings.ToUpper(rec["type"])
		if typ == "" {
			typ = "LUA"
		}
		hash, _ := info.Lookup(rec, "hash", "content_hash")
		modules = append(modules, UDFModule{
			Filename: rec["filename"],
			Type:     typ,
			Hash:     hash,
		})
	}
	return modules, nil
}

// Status reports whether the cluster answers and how large it is. Nodes are
// counted when they answer the status check.
func (a *Assembler) Status(ctx context.Context) ConnectionStatus {
	names, err := a.Namespaces(ctx)
	if err != nil {
		return ConnectionStatus{}
	}

	alive := 0
	for _, r := range a.queryAll(ctx, info.CmdStatus) {
		if r.OK() && strings.TrimSpace(r.Payload) == "ok" {
			alive++
		}
	}

	st := ConnectionStatus{
		Connected:      true,
		NodeCount:      alive,
		NamespaceCount: len(names),
	}
	if build, err := a.q.QueryAnyNode(ctx, info.CmdBuild); err == nil {
		st.Build = strings.TrimSpace(build)
	}
	if edition, err := a.q.QueryAnyNode(ctx, info.CmdEdition); err == nil {
		st.Edition = strings.TrimSpace(edition)
	}
	return st
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dreamware/clusterscope/internal/info"
)

// Terminal commands recognized by Execute, matched case-insensitively.
const (
	ShowNamespaces = "show namespaces"
	ShowSets       = "show sets"
	ShowBins       = "show bins"
	ShowIndexes    = "show indexes"
	ShowSIndex     = "show sindex"
)

// ErrEmptyCommand is returned by Execute for a blank command.
var ErrEmptyCommand = errors.New("telemetry: empty command")

// Execute runs one terminal command and returns its printable output.
//
// Besides the show commands it understands status, build, node and
// statistics. Anything else is passed through as a raw info command:
// per-node commands (see info.IsPerNodeCommand) go to every node and print
// one block per node, the rest are answered by any one node.
//
// Per-node failures appear in the output as "--- node (error) ---" blocks.
// An error is returned only when a single-node query fails.
func (a *Assembler) Execute(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", ErrEmptyCommand
	}

	switch lower := strings.ToLower(command); lower {
	case ShowNamespaces:
		return a.showNamespaces(ctx)
	case ShowSets:
		return a.showSets(ctx)
	case ShowBins:
		return a.showBins(ctx)
	case ShowIndexes, ShowSIndex:
		return a.showIndexes(ctx)
	case info.CmdStatus, info.CmdNode:
		raw, err := a.q.QueryAnyNode(ctx, lower)
		return strings.TrimSpace(raw), err
	case info.CmdBuild:
		return a.showBuild(ctx)
	case info.CmdStatistics:
		return "Statistics:\n" + a.perNode(ctx, info.CmdStatistics, sortedPairs), nil
	}

	if info.IsPerNodeCommand(command) {
		return a.perNode(ctx, command, strings.TrimSpace), nil
	}
	raw, err := a.q.QueryAnyNode(ctx, command)
	if err != nil {
		return "", err
	}
	if raw = strings.TrimSpace(raw); raw == "" {
		return "(empty response)", nil
	}
	return raw, nil
}

func (a *Assembler) showNamespaces(ctx context.Context) (string, error) {
	names, err := a.Namespaces(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "(no namespaces)", nil
	}
	return "Namespaces:\n" + indent(names), nil
}

func (a *Assembler) showSets(ctx context.Context) (string, error) {
	names, err := a.Namespaces(ctx)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, ns := range names {
		stats, _, _ := a.namespaceStats(ctx, ns)
		rf := info.IntField(stats, 1, "replication-factor")
		for _, s := range info.ReconcileNamedGroups(a.queryAll(ctx, info.Sets(ns)), int(rf)) {
			lines = append(lines, fmt.Sprintf("%s.%s  objects=%d  tombstones=%d  (nodes=%d)",
				ns, s.Name, s.Int("objects"), s.Int("tombstones"), s.RespondingNodes))
		}
	}
	if len(lines) == 0 {
		return "(no sets)", nil
	}
	return "Sets:\n" + indent(lines), nil
}

// showBins lists the distinct bin names of every namespace. A bins answer is
// a comma-separated list whose key=value entries are counters such as
// bin_names and bin_names_quota; the bare entries are the names.
func (a *Assembler) showBins(ctx context.Context) (string, error) {
	names, err := a.Namespaces(ctx)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	for _, ns := range names {
		for _, r := range a.queryAll(ctx, info.Bins(ns)) {
			if !r.OK() {
				continue
			}
			counters := info.ParseFlatPairs(r.Payload, ",")
			for _, tok := range info.ParseTokenList(r.Payload, ",") {
				key, _, _ := strings.Cut(tok, "=")
				if _, isCounter := counters[strings.TrimSpace(key)]; isCounter {
					continue
				}
				seen[tok] = true
			}
		}
	}
	if len(seen) == 0 {
		return "(no bins)", nil
	}
	bins := make([]string, 0, len(seen))
	for b := range seen {
		bins = append(bins, b)
	}
	sort.Strings(bins)
	return "Bins:\n" + indent(bins), nil
}

func (a *Assembler) showIndexes(ctx context.Context) (string, error) {
	indexes, err := a.ListIndexes(ctx)
	if err != nil {
		return "", err
	}
	if len(indexes) == 0 {
		return "(no indexes)", nil
	}
	lines := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		lines = append(lines, fmt.Sprintf("%s.%s  bin=%s  type=%s  state=%s  (nodes=%d)",
			idx.Namespace, idx.Name, idx.Bin, idx.Type, idx.State, idx.NodeCount))
	}
	return "Indexes:\n" + indent(lines), nil
}

func (a *Assembler) showBuild(ctx context.Context) (string, error) {
	build, err := a.q.QueryAnyNode(ctx, info.CmdBuild)
	if err != nil {
		return "", err
	}
	edition, err := a.q.QueryAnyNode(ctx, info.CmdEdition)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(edition) + " " + strings.TrimSpace(build), nil
}

// perNode broadcasts cmd and prints one block per node in node order.
func (a *Assembler) perNode(ctx context.Context, cmd string, format func(string) string) string {
	resps := a.queryAll(ctx, cmd)
	if len(resps) == 0 {
		return "(no nodes)"
	}
	blocks := make([]string, 0, len(resps))
	for _, r := range resps {
		if !r.OK() {
			blocks = append(blocks, fmt.Sprintf("--- %s (error) ---", r.NodeID))
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- %s ---\n%s", r.NodeID, format(r.Payload)))
	}
	return strings.Join(blocks, "\n\n")
}

func sortedPairs(raw string) string {
	fields := info.ParseFlatPairs(raw, "")
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	return indent(lines)
}

func indent(lines []string) string {
	return "  " + strings.Join(lines, "\n  ")
}

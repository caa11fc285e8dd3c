package info

// FieldSpec names one logical field and its alternative spellings. Key is
// both the canonical output key and the first spelling looked up.
type FieldSpec struct {
	Key     string
	Aliases []string
}

func (f FieldSpec) lookup(fields map[string]string) (string, bool) {
	if v, ok := fields[f.Key]; ok {
		return v, true
	}
	return Lookup(fields, f.Aliases...)
}

// F is shorthand for a FieldSpec.
func F(key string, aliases ...string) FieldSpec {
	return FieldSpec{Key: key, Aliases: aliases}
}

// GroupSpec declares how sub-records of one kind (sets, indexes) are grouped
// and combined across nodes.
type GroupSpec struct {
	// NameKeys are the spellings of the grouping name, in priority order.
	NameKeys []string
	// Counters are summed, then divided by the effective replication factor.
	Counters []FieldSpec
	// Sizes are summed and never divided.
	Sizes []FieldSpec
	// Marks are saturating counters; the maximum is kept.
	Marks []FieldSpec
	// Attributes are strings; the first node's value is kept.
	Attributes []FieldSpec
}

// SetGroup reconciles per-namespace set statistics ("sets/<ns>").
var SetGroup = GroupSpec{
	NameKeys: []string{"set", "set_name"},
	Counters: []FieldSpec{F("objects"), F("tombstones")},
	Sizes:    []FieldSpec{F("memory_data_bytes"), F("device_data_bytes")},
	Marks:    []FieldSpec{F("stop-writes-count", "stop_writes_count")},
}

// IndexGroup reconciles secondary index listings ("sindex/<ns>").
var IndexGroup = GroupSpec{
	NameKeys: []string{"indexname", "index_name"},
	Attributes: []FieldSpec{
		F("ns"),
		F("set", "set_name"),
		F("bin", "bin_name"),
		F("type", "bin_type"),
		F("state"),
	},
}

// AggregatedRecord is one logical entity reconciled across nodes.
type AggregatedRecord struct {
	Name string
	// SummedFields holds counters (already divided by the effective
	// replication factor) and sizes.
	SummedFields map[string]int64
	MaxFields    map[string]int64
	Attributes   map[string]string
	// RespondingNodes is the number of sub-records that contributed.
	RespondingNodes int
}

// Int returns a summed or max field, or 0.
func (r AggregatedRecord) Int(key string) int64 {
	if v, ok := r.SummedFields[key]; ok {
		return v
	}
	return r.MaxFields[key]
}

// EffectiveReplicationFactor is min(configured, responding), floored at 1.
func EffectiveReplicationFactor(configured, responding int) int {
	rf := configured
	if responding < rf {
		rf = responding
	}
	if rf < 1 {
		return 1
	}
	return rf
}

// ReconcileNamedGroups reconciles set statistics reported by every node.
func ReconcileNamedGroups(responses []NodeResponse, replicationFactor int) []AggregatedRecord {
	return Reconcile(responses, replicationFactor, SetGroup)
}

// Reconcile groups the sub-records of every successful response by name and
// combines each group as described by group. Records are returned in first-seen
// order. A sub-record with no recognizable name is dropped.
func Reconcile(responses []NodeResponse, replicationFactor int, group GroupSpec) []AggregatedRecord {
	var order []string
	groups := make(map[string]*AggregatedRecord)

	for _, r := range responses {
		if !r.OK() {
			continue
		}
		for _, sub := range ParseSubRecords(r.Payload, DefaultRecordSep, DefaultInnerSep) {
			name, ok := Lookup(sub, group.NameKeys...)
			if !ok || name == "" {
				continue
			}
			g, seen := groups[name]
			if !seen {
				g = &AggregatedRecord{
					Name:         name,
					SummedFields: make(map[string]int64),
					MaxFields:    make(map[string]int64),
					Attributes:   make(map[string]string),
				}
				groups[name] = g
				order = append(order, name)
			}
			g.RespondingNodes++
			accumulate(g, sub, group)
		}
	}

	out := make([]AggregatedRecord, 0, len(order))
	for _, name := range order {
		g := groups[name]
		rf := int64(EffectiveReplicationFactor(replicationFactor, g.RespondingNodes))
		for _, f := range group.Counters {
			g.SummedFields[f.Key] /= rf
		}
		out = append(out, *g)
	}
	return out
}

func accumulate(g *AggregatedRecord, sub map[string]string, group GroupSpec) {
	for _, f := range group.Counters {
		v, _ := f.lookup(sub)
		g.SummedFields[f.Key] += ToInt(v, 0)
	}
	for _, f := range group.Sizes {
		v, _ := f.lookup(sub)
		g.SummedFields[f.Key] += ToInt(v, 0)
	}
	for _, f := range group.Marks {
		v, _ := f.lookup(sub)
		n := ToInt(v, 0)
		if cur, seen := g.MaxFields[f.Key]; !seen || n > cur {
			g.MaxFields[f.Key] = n
		}
	}
	for _, f := range group.Attributes {
		if _, seen := g.Attributes[f.Key]; seen {
			continue
		}
		if v, ok := f.lookup(sub); ok {
			g.Attributes[f.Key] = v
		}
	}
}

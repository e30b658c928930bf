package config

import (
	"sort"

	logx "arxivrelay/pkg/logx"
)

// SummarizeTopicsChange lists topic ids added, removed and modified between
// two loads, plus log fields. Destinations are env var names, never values.
func SummarizeTopicsChange(oldTF, newTF *TopicsFile) (added, removed, changed []string, attrs []logx.Field) {
	oldM := topicMap(oldTF)
	newM := topicMap(newTF)

	for id, nt := range newM {
		ot, ok := oldM[id]
		switch {
		case !ok:
			added = append(added, id)
		case ot != nt:
			changed = append(changed, id)
		}
	}
	for id := range oldM {
		if _, ok := newM[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)

	attrs = []logx.Field{
		logx.Int("topics", len(newM)),
		logx.Any("added", added),
		logx.Any("removed", removed),
		logx.Any("changed", changed),
	}
	return added, removed, changed, attrs
}

func topicMap(tf *TopicsFile) map[string]Topic {
	if tf == nil {
		return map[string]Topic{}
	}
	m := make(map[string]Topic, len(tf.Topics))
	for _, t := range tf.Topics {
		m[t.ID] = t
	}
	return m
}

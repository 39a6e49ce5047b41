package hardware

import "testing"

func TestLineMapsAreComplete(t *testing.T) {
	used := make(map[int]string)
	check := func(names []string, mappings map[string]LineMapping) {
		if len(names) != len(mappings) {
			t.Errorf("%d channels but %d mappings", len(names), len(mappings))
		}
		for _, name := range names {
			m, ok := mappings[name]
			if !ok {
				t.Errorf("channel %s has no line mapping", name)
				continue
			}
			if other, dup := used[m.Line]; dup {
				t.Errorf("line %d used by both %s and %s", m.Line, other, name)
			}
			used[m.Line] = name
		}
	}
	check(InputChannels, DiMappings)
	check(OutputChannels, DoMappings)
}

func TestInputPolarity(t *testing.T) {
	activeLow := map[string]bool{
		InLimitOpen:   true,
		InLimitClosed: false,
		InPhotocell:   false,
		InPushButton:  true,
		InRemoteOpen:  false,
	}
	for name, want := range activeLow {
		if got := DiMappings[name].ActiveLow; got != want {
			t.Errorf("%s: expected active low %v, got %v", name, want, got)
		}
	}
}

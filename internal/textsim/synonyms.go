package textsim

// synonymGroups are hand-curated clusters of terms that providers use
// interchangeably when describing electrical drawings. Two texts drawing from
// the same group count as partially agreeing even when the literal tokens
// differ.
var synonymGroups = [][]string{
	{"resistor", "resistance", "res"},
	{"capacitor", "cap", "capacitance", "condenser"},
	{"inductor", "coil", "choke", "inductance"},
	{"diode", "rectifier", "led"},
	{"transistor", "bjt", "mosfet", "fet"},
	{"ic", "chip", "integrated", "microcontroller", "mcu"},
	{"connector", "header", "jack", "plug", "terminal"},
	{"switch", "button", "pushbutton", "toggle"},
	{"wire", "trace", "conductor", "net"},
	{"ground", "gnd", "earth"},
	{"power", "supply", "vcc", "vdd", "voltage"},
	{"circuit", "schematic", "drawing", "diagram"},
	{"component", "part", "element", "device"},
	{"connected", "attached", "linked", "wired"},
	{"located", "positioned", "placed", "situated"},
	{"shows", "displays", "depicts", "illustrates", "contains"},
}

// groupIndex maps each synonym to its group id.
var groupIndex = func() map[string]int {
	idx := make(map[string]int)
	for gi, group := range synonymGroups {
		for _, term := range group {
			idx[term] = gi
		}
	}
	return idx
}()

// synonymOverlap measures how much two token sets share synonym groups:
// shared groups over total groups (Jaccard). The second return is false when
// neither text touches any group, so callers can leave the term out of their
// blend instead of penalizing non-electrical prose.
func synonymOverlap(a, b []string) (float64, bool) {
	ga := groupsOf(a)
	gb := groupsOf(b)
	if len(ga) == 0 && len(gb) == 0 {
		return 0, false
	}
	inter := 0
	for g := range ga {
		if gb[g] {
			inter++
		}
	}
	union := len(ga) + len(gb) - inter
	if union == 0 {
		return 0, true
	}
	return float64(inter) / float64(union), true
}

func groupsOf(tokens []string) map[int]bool {
	groups := make(map[int]bool)
	for _, t := range tokens {
		if gi, ok := groupIndex[t]; ok {
			groups[gi] = true
		}
	}
	return groups
}

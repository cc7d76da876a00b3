package session

// EngineInfo describes one engine variant's capability profile.
type EngineInfo struct {
	Name    string
	Mark    byte
	Unicode bool
}

// The fixed mark alphabet. One character per supported engine variant;
// the mark decides whether extended character-set token categories are
// usable (unicode engines) or token lists must stay within one byte per
// character.
var marks = map[byte]EngineInfo{
	'p': {Name: "pdftex", Mark: 'p', Unicode: false},
	'x': {Name: "xetex", Mark: 'x', Unicode: true},
	'l': {Name: "luatex", Mark: 'l', Unicode: true},
}

// LookupMark resolves a mark character to its engine profile.
func LookupMark(mark byte) (EngineInfo, bool) {
	info, ok := marks[mark]
	return info, ok
}

// MarkByName resolves an engine variant name to its profile.
func MarkByName(name string) (EngineInfo, bool) {
	for _, info := range marks {
		if info.Name == name {
			return info, true
		}
	}
	return EngineInfo{}, false
}

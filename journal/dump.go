package journal

import (
	"encoding/json"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/tidwall/pretty"
)

type entryView struct {
	Position int       `json:"position"`
	Created  time.Time `json:"created"`
	Day      string    `json:"day"`
	Tag      string    `json:"tag,omitempty"`
	Text     string    `json:"text"`
}

func viewOf(pos int, e *Entry) entryView {
	return entryView{
		Position: pos,
		Created:  e.Time(),
		Day:      e.DayString(),
		Tag:      e.TagString(),
		Text:     e.TextString(),
	}
}

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// dumpEntry returns a debug dump of entry at 1-based position
func dumpEntry(pos int, e *Entry) string {
	return spewConfig.Sdump(viewOf(pos, e))
}

// EntriesJSON returns entries as indented JSON. Positions start at 1.
func EntriesJSON(entries []Entry) ([]byte, error) {
	views := make([]entryView, len(entries))
	for i := range entries {
		views[i] = viewOf(i+1, &entries[i])
	}
	d, err := json.Marshal(views)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(d), nil
}

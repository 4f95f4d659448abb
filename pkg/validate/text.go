package validate

import (
	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/text"
)

// TextChecker decodes every message of the four text tables.
type TextChecker struct{}

func (c *TextChecker) Name() string { return "text" }

func (c *TextChecker) Check(db *ddb.Database) []Finding {
	col := &collector{prefix: "text"}
	dec := text.NewDecoder(db, nil, nil)

	for _, l := range []ddb.List{ddb.ListObjects, ddb.ListLocations, ddb.ListUserMessages, ddb.ListSystemMessages} {
		for n := 0; n < db.Count(l); n++ {
			msg, err := dec.Decode(l, uint8(n), false)
			if err != nil {
				col.add(CatText, SevError, l.String(), n, "%v", err)
				continue
			}
			if l == ddb.ListObjects && msg == "" {
				col.add(CatText, SevWarning, l.String(), n, "object has an empty name")
			}
		}
	}
	return col.findings
}

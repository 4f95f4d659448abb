package validate

import (
	"github.com/crystal-mush/godaad/pkg/ddb"
)

// requiredSysMsgs is one past the highest system message the run loop
// prints on its own ("time passes").
const requiredSysMsgs = 36

var offsetNames = [ddb.NumOffsets]string{
	"tokens", "process list", "object list", "location list",
	"user messages", "system messages", "connections", "vocabulary",
	"object locations", "object names", "object attributes", "extended attributes",
}

// HeaderChecker verifies that every header offset lands inside the image
// and that the pointer tables fit.
type HeaderChecker struct{}

func (c *HeaderChecker) Name() string { return "header" }

func (c *HeaderChecker) Check(db *ddb.Database) []Finding {
	col := &collector{prefix: "header"}
	buf := db.Buffer()

	if int(db.Header.FileLength) != buf.Len() {
		col.add(CatHeader, SevWarning, "", 0,
			"header declares %d bytes, image has %d", db.Header.FileLength, buf.Len())
	}

	h := db.Header
	for i, p := range h.Offsets() {
		if _, err := buf.Index(*p); err != nil {
			col.add(CatHeader, SevError, "", i, "%s offset 0x%04x is outside the image", offsetNames[i], *p)
		}
	}

	for _, l := range []ddb.List{ddb.ListObjects, ddb.ListLocations, ddb.ListUserMessages, ddb.ListSystemMessages, ddb.ListProcesses} {
		n := db.Count(l)
		if n == 0 {
			continue
		}
		if _, err := buf.Slice(db.TableAddr(l), 2*n); err != nil {
			col.add(CatHeader, SevError, l.String(), 0, "pointer table of %d entries runs past the image", n)
		}
	}

	sizes := []struct {
		name string
		addr uint16
		size int
	}{
		{"object locations", h.ObjLocLst, 1},
		{"object names", h.ObjNamePos, 2},
		{"object attributes", h.ObjAttrPos, 1},
		{"extended attributes", h.ObjExtrPos, 2},
	}
	for _, s := range sizes {
		if _, err := buf.Slice(s.addr, s.size*int(h.NumObjDsc)); err != nil {
			col.add(CatHeader, SevError, "", 0, "%s table of %d objects runs past the image", s.name, h.NumObjDsc)
		}
	}

	if h.NumSysMsg < requiredSysMsgs {
		col.add(CatHeader, SevWarning, "", 0,
			"only %d system messages, the interpreter prints up to %d", h.NumSysMsg, requiredSysMsgs-1)
	}
	return col.findings
}

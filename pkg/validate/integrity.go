package validate

import (
	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/gamedb"
)

// IntegrityChecker performs referential checks on the object tables:
// locations, vocabulary references and containment loops.
type IntegrityChecker struct{}

func (c *IntegrityChecker) Name() string { return "integrity" }

func (c *IntegrityChecker) Check(db *ddb.Database) []Finding {
	col := &collector{prefix: "integrity"}
	const list = "objects"

	var table gamedb.Table
	var flags gamedb.Flags
	if err := table.DecodeAll(db, &flags); err != nil {
		col.add(CatObjects, SevError, list, 0, "object tables do not decode: %v", err)
		return col.findings
	}

	hasWord := func(id uint8, t ddb.WordType) bool {
		_, ok := db.WordFor(id, t)
		return ok
	}
	numLoc := db.Count(ddb.ListLocations)
	objs := table.Objects

	// Location should be a room, a sentinel or a container.
	for i, o := range objs {
		loc := int(o.Location)
		if o.Location >= gamedb.NotCreated || loc < numLoc {
			continue
		}
		if loc < len(objs) && objs[loc].Attrs.IsContainer() {
			continue
		}
		col.add(CatObjects, SevError, list, i, "object %d location %d does not exist", i, loc)
	}

	// Noun and adjective should be in the vocabulary.
	for i, o := range objs {
		if o.Noun != gamedb.NullWord && !hasWord(o.Noun, ddb.Noun) {
			col.add(CatObjects, SevWarning, list, i, "object %d noun %d is not in the vocabulary", i, o.Noun)
		}
		if o.Adjective != gamedb.NullWord && !hasWord(o.Adjective, ddb.Adjective) {
			col.add(CatObjects, SevWarning, list, i, "object %d adjective %d is not in the vocabulary", i, o.Adjective)
		}
	}

	// A second object with the same words is never found by name.
	for i, o := range objs {
		if o.Noun == gamedb.NullWord {
			continue
		}
		if first := table.FindByNounAdjective(o.Noun, o.Adjective); int(first) != i {
			col.add(CatObjects, SevInfo, list, i, "object %d has the same noun and adjective as object %d", i, first)
		}
	}

	// Containment loops.
	for i := range objs {
		visited := make(map[int]bool)
		cur := int(objs[i].Location)
		for cur < len(objs) && objs[cur].Attrs.IsContainer() {
			if cur == i {
				col.add(CatObjects, SevWarning, list, i, "object %d is inside itself through its containers", i)
				break
			}
			if visited[cur] {
				break
			}
			visited[cur] = true
			cur = int(objs[cur].Location)
		}
	}

	return col.findings
}

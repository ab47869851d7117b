package s7

import (
	"sort"
)

// Planner limits for a Read Var job.
const (
	// MaxItemsPerRequest is the protocol limit on items in one request.
	MaxItemsPerRequest = 20

	// ItemHeaderSize is the estimated per-item overhead in bytes.
	ItemHeaderSize = 12

	// RequestHeaderSize is the fixed request overhead in bytes.
	RequestHeaderSize = 14
)

// Item is one tag to read.
type Item struct {
	Tag  string
	Desc *Descriptor
}

// Batch is a set of items packed into one physical request. All items
// share the same area and data block.
type Batch struct {
	Area     Area
	DBNumber int
	Items    []Item
}

// Requests returns the wire requests for the batch, in item order.
func (b *Batch) Requests() []Request {
	reqs := make([]Request, len(b.Items))
	for i, it := range b.Items {
		reqs[i] = it.Desc.Request()
	}
	return reqs
}

// EstimatedSize returns the on-wire size estimate of the batch,
// including the request header.
func (b *Batch) EstimatedSize() int {
	size := RequestHeaderSize
	for _, it := range b.Items {
		size += ItemSize(it.Desc)
	}
	return size
}

// ItemSize returns the estimated bytes one item contributes to a request.
func ItemSize(d *Descriptor) int {
	return ItemHeaderSize + d.PayloadSize()
}

type groupKey struct {
	area Area
	db   int
}

// Plan partitions items into batches that fit budget bytes and hold at most
// maxItems items each. Items are grouped by area and data block (groups in
// ascending order), sorted by start offset within a group, then packed
// greedily. An item too large for the budget still gets its own batch.
// Plan is deterministic and never drops or duplicates an item.
//
// maxItems <= 0 selects MaxItemsPerRequest. Larger values are taken as
// given; Conn and Simulator reject a multi-item read above their limit.
func Plan(items []Item, budget, maxItems int) []Batch {
	if maxItems <= 0 {
		maxItems = MaxItemsPerRequest
	}

	groups := make(map[groupKey][]Item)
	var keys []groupKey
	for _, it := range items {
		k := groupKey{area: it.Desc.Area, db: it.Desc.DBNumber}
		if it.Desc.Area != AreaDB {
			k.db = 0
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].area != keys[j].area {
			return keys[i].area < keys[j].area
		}
		return keys[i].db < keys[j].db
	})

	var batches []Batch
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Desc.Start < group[j].Desc.Start
		})

		cur := Batch{Area: k.area, DBNumber: k.db}
		size := 0
		for _, it := range group {
			isz := ItemSize(it.Desc)
			full := len(cur.Items) >= maxItems
			over := len(cur.Items) > 0 && size+isz+RequestHeaderSize > budget
			if full || over {
				batches = append(batches, cur)
				cur = Batch{Area: k.area, DBNumber: k.db}
				size = 0
			}
			cur.Items = append(cur.Items, it)
			size += isz
		}
		if len(cur.Items) > 0 {
			batches = append(batches, cur)
		}
	}
	return batches
}

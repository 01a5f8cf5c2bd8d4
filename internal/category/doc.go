// Package category implements the sparse, multi-dimensional record table at
// the core of the framework.
//
// A category addresses records by locator (for example board and channel).
// Each locator linearizes to a position in [0, DataSize). The index map is a
// roaring bitmap of occupied positions:
//
//	uncompressed:  slot(pos) = pos          records live at their position
//	compressed:    slot(pos) = Rank(pos)-1  records packed in [0, EntryCount)
//
// Compression packs the backing array in ascending position order and blocks
// further inserts until the category is cleared:
//
//	positions   5   9   12          slots after Compress
//	            |   |   |
//	objects [ . . . . . R . . . S . . T ]  ->  [ R S T . . . ]
//
// Records are values of a struct type T held in a fixed arena; Make resets
// the slot to the zero value before returning it.
package category

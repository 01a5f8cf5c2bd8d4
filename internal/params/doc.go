// Package params implements the runtime parameter database.
//
// Parameter containers are populated from named views: ordered lists of text
// lines taken from a section of a parameter file or supplied in memory.
//
//	# lookup of board/channel to module/channel
//	[ExampleLookup]
//	0x1000 0    0 0
//	0x1000 1    0 1
//
// A Database binds container names to lazily materialized Volatile handles
// and resolves them against its sources, most recently added first:
//
//	db.AddSource(ascii)
//	params.Register(db, "ExampleLookup", params.LookupBuilder[Mapping, *Mapping](0x1000, 0x1001, 64, "%v %v", "%d %d"))
//	db.InitContainers(runID)
//	lut, err := params.Get[*params.LookupTable[Mapping, *Mapping]](db, "ExampleLookup")
package params

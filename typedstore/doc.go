// Package typedstore is an append-only store of fixed-size binary records.
//
// Each kind of record lives in its own file named after the kind,
// inside Store.DataDir. A record is an index field (a machine word in
// native byte order, see [IndexSize]) followed by the payload bytes.
// Records are back to back, without header, padding or checksum, so
// record i (1-based) lives at offset (i-1)*recordSize.
//
// # Basic Usage
//
//	s := &typedstore.Store{
//	    DataDir: "./data",
//	}
//	err := typedstore.OpenStore(s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	type Point struct{ X, Y int32 }
//	points, err := typedstore.NewTable[Point](s, "point")
//	idx, err := points.Save(ctx, Point{1, 2})
//	p, err := points.Get(ctx, 1)
//
//	all, errFn, err := points.All(ctx)
//	for p := range all {
//	    // ...
//	}
//	err = errFn()
//
// # Registration and truncation
//
// The set of registered kinds is kept in memory and is lost when the
// process exits. The first Save of a kind that is not registered
// registers it, and registering creates or TRUNCATES the kind's file.
// A new process that starts by saving therefore starts from an empty
// file. Use Attach to register a kind while keeping what's on disk.
//
// Get, GetAll and Len require the kind to be registered by this Store
// even if its file exists on disk.
//
// # Thread Safety
//
// The registry is safe for concurrent use. Files are not: the store
// assumes a single writer.
package typedstore

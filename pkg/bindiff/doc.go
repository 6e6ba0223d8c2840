// Package bindiff matches the functions of two versions of a binary.
//
// Callers hand in the raw function records exported by a disassembler or
// analysis platform, normalize each binary into a Snapshot, then diff the two
// snapshots. Functions are paired in six phases of decreasing reliability
// (exact, name, md-index, spp, structural, fuzzy) and every function is
// paired at most once.
//
// Basic usage:
//
//	a, err := bindiff.Normalize(ctx, "libfoo-1.0", rawsA)
//	if err != nil {
//	    return err
//	}
//	b, err := bindiff.Normalize(ctx, "libfoo-1.1", rawsB)
//	if err != nil {
//	    return err
//	}
//
//	set, err := bindiff.Diff(ctx, a, b, *bindiff.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for _, m := range set.Results {
//	    fmt.Println(m.Type, m.A.Label(), m.B.Label(), m.Similarity)
//	}
//
// With logging and per-phase progress:
//
//	logger := zerolog.New(os.Stderr)
//	eng := bindiff.NewEngine(bindiff.EngineConfig{
//	    Logger: &logger,
//	    Progress: func(ev bindiff.ProgressEvent) {
//	        fmt.Println(ev.Phase, ev.Matched)
//	    },
//	})
//	set, err := eng.Diff(ctx, a, b, *bindiff.DefaultConfig())
//
// Diff never mutates its inputs and returns the same MatchSet for the same
// snapshots and configuration, whatever the worker count.
package bindiff

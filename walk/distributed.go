package walk

import (
	"sync"

	"github.com/notargets/gosph/nbrtree"
)

// RankContext is one simulated rank's slice of the global particle store:
// its own Scoped Finder (so it can never resolve an index it doesn't own)
// and the subset of owned indices it must drive to completion this pass.
// Standing in for an MPI rank: bit-for-bit cross-process reproducibility
// is not required here, which licenses goroutines over a disjoint
// partition as the idiomatic substitute; there is no real
// domain-decomposition tree, only the partition PartitionMap computed.
type RankContext struct {
	ID     int
	Finder *nbrtree.Scoped
	Active []int
}

// RemoteVisitor supplies the pass-specific logic RunWalkDistributed needs
// to drive the export/import protocol without itself knowing whether it
// is serving the density or the gradient pass.
type RemoteVisitor interface {
	// SearchRadius returns the radius a remote peer should test against
	// for local particle idx (h for density's asymmetric query, h_i+h_j's
	// max bound for gradient's symmetric one).
	SearchRadius(idx int) float64
	// BuildQuery packages local particle idx into the wire Query record.
	BuildQuery(idx int) Query
	// SecondaryPass runs neighbor_iter in SECONDARY mode against scoped's
	// own local particles for an imported query, returning the partial
	// Result the origin rank will fold in.
	SecondaryPass(scoped *nbrtree.Scoped, radius float64, q Query) Result
	// Accumulate folds an imported Result into targetIdx's running
	// accumulator under mode = PRIMARY_ACCUM.
	Accumulate(targetIdx int, res Result)
}

// RunWalkDistributed drives a two-barrier bulk-synchronous exchange
// across a fixed set of simulated ranks: each rank exports a
// Query for every one of its active particles to every peer rank (lacking
// a real domain tree to say which peer actually owns the relevant
// sub-volume, querying every peer is the conservative substitute — a peer
// that owns nothing in range contributes an empty Result, so the "every
// cross-rank pair visited exactly once" contract still holds, just without
// the bandwidth saving a real tree would give); peers resolve those
// queries against their own Scoped Finder and reply; origins fold the
// replies in with Accumulate. budgetBytes caps each MailBox the same way
// the intra-process one does.
func RunWalkDistributed(ranks []*RankContext, v RemoteVisitor, budgetBytes int) error {
	np := len(ranks)
	if np <= 1 {
		return nil
	}

	exportMB := NewMailBox[exportEnvelope](np, budgetBytes)
	var mu sync.Mutex
	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, rk := range ranks {
		rk := rk
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, idx := range rk.Active {
				radius := v.SearchRadius(idx)
				q := v.BuildQuery(idx)
				env := exportEnvelope{Origin: rk.ID, TargetIdx: idx, Radius: radius, Query: q}
				for _, peer := range ranks {
					if peer.ID == rk.ID {
						continue
					}
					if err := exportMB.Post(rk.ID, peer.ID, env); err != nil {
						record(err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	exportMB.DeliverAll()
	exportMB.ReceiveAll()

	importMB := NewMailBox[resultEnvelope](np, budgetBytes)
	wg = sync.WaitGroup{}
	for _, rk := range ranks {
		rk := rk
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, env := range exportMB.Inbox(rk.ID) {
				res := v.SecondaryPass(rk.Finder, env.Radius, env.Query)
				reply := resultEnvelope{TargetIdx: env.TargetIdx, Result: res}
				if err := importMB.Post(rk.ID, env.Origin, reply); err != nil {
					record(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	importMB.DeliverAll()
	importMB.ReceiveAll()

	wg = sync.WaitGroup{}
	for _, rk := range ranks {
		rk := rk
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, env := range importMB.Inbox(rk.ID) {
				v.Accumulate(env.TargetIdx, env.Result)
			}
		}()
	}
	wg.Wait()
	return firstErr
}

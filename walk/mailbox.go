package walk

import (
	"fmt"

	"github.com/notargets/gosph/sphfault"
)

// Sized lets MailBox account export/import traffic against a byte
// budget. Every query/result envelope exchanged between simulated ranks
// implements it.
type Sized interface {
	Size() int
}

// MailBox is the export/import staging area for a distributed tree-walk:
// each rank posts outgoing messages keyed by destination rank, then a
// single DeliverAll barrier flushes every rank's outbox onto the
// destination's channel, after which ReceiveAll drains it into that
// rank's inbox. It enforces BudgetBytes and returns a ResourceError the
// moment a single message alone cannot fit.
type MailBox[T Sized] struct {
	NP          int
	BudgetBytes int

	channels []chan []T
	outbox   []map[int][]T
	outBytes []map[int]int
	inbox    [][]T
}

func NewMailBox[T Sized](np, budgetBytes int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:          np,
		BudgetBytes: budgetBytes,
		channels:    make([]chan []T, np),
		outbox:      make([]map[int][]T, np),
		outBytes:    make([]map[int]int, np),
		inbox:       make([][]T, np),
	}
	for n := 0; n < np; n++ {
		mb.channels[n] = make(chan []T, np)
		mb.outbox[n] = make(map[int][]T)
		mb.outBytes[n] = make(map[int]int)
	}
	return mb
}

// Post queues msg from myRank to targetRank, flushing that destination's
// outbox the moment the budget would be exceeded so a slow consumer never
// blocks the poster's memory growth past BudgetBytes.
func (mb *MailBox[T]) Post(myRank, targetRank int, msg T) error {
	size := msg.Size()
	if size > mb.BudgetBytes {
		return &sphfault.ResourceError{BudgetBytes: mb.BudgetBytes, RequiredBytes: size}
	}
	if mb.outBytes[myRank][targetRank]+size > mb.BudgetBytes {
		mb.flushOne(myRank, targetRank)
	}
	mb.outbox[myRank][targetRank] = append(mb.outbox[myRank][targetRank], msg)
	mb.outBytes[myRank][targetRank] += size
	return nil
}

func (mb *MailBox[T]) flushOne(myRank, targetRank int) {
	batch := mb.outbox[myRank][targetRank]
	if len(batch) == 0 {
		return
	}
	mb.channels[targetRank] <- batch
	delete(mb.outbox[myRank], targetRank)
	delete(mb.outBytes[myRank], targetRank)
}

// DeliverAll flushes every rank's outbox. Call this at the collective
// barrier between the export phase and the import phase.
func (mb *MailBox[T]) DeliverAll() {
	for r := 0; r < mb.NP; r++ {
		for target := range mb.outbox[r] {
			mb.flushOne(r, target)
		}
	}
}

// ReceiveAll drains every rank's channel into its inbox. Must run after
// DeliverAll and before any rank reads Inbox.
func (mb *MailBox[T]) ReceiveAll() {
	for r := 0; r < mb.NP; r++ {
		for {
			select {
			case batch := <-mb.channels[r]:
				mb.inbox[r] = append(mb.inbox[r], batch...)
			default:
				goto next
			}
		}
	next:
	}
}

// Inbox returns and clears rank r's received messages.
func (mb *MailBox[T]) Inbox(r int) []T {
	msgs := mb.inbox[r]
	mb.inbox[r] = nil
	return msgs
}

func (mb *MailBox[T]) String() string {
	return fmt.Sprintf("MailBox[NP=%d, budget=%dB]", mb.NP, mb.BudgetBytes)
}

package scheduler

import "container/heap"

// delayQueue is a min-heap of jobs ordered by their runAt time. It is the
// in-process equivalent of a delayed-job sorted set; the dispatcher moves
// due jobs onto the ready queue.
type delayQueue []*job

func (q delayQueue) Len() int { return len(q) }

func (q delayQueue) Less(i, j int) bool { return q[i].runAt.Before(q[j].runAt) }

func (q delayQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *delayQueue) Push(x any) { *q = append(*q, x.(*job)) }

func (q *delayQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*delayQueue)(nil)

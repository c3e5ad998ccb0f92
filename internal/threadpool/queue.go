package threadpool

import (
	"sync"
)

// Job はワーカーが一度だけ実行する引数なしの処理
type Job func()

// queue は上限のない FIFO キュー
// sender と receiver の2つの端点からのみ操作する
type queue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []Job
	closed bool
}

// sender はキューの送信側。複数ゴルーチンから同時に使ってよい
type sender struct {
	q *queue
}

// receiver はキューの受信側。プール内に1つだけ存在する
type receiver struct {
	q *queue
}

// newChannel は送信側と受信側の組を作成する
func newChannel() (*sender, *receiver) {
	q := &queue{}
	q.ready = sync.NewCond(&q.mu)
	return &sender{q: q}, &receiver{q: q}
}

// send はジョブを末尾に追加する。ブロックしない
func (s *sender) send(job Job) error {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrPoolClosed
	}
	q.items = append(q.items, job)
	q.ready.Signal()
	return nil
}

// close は送信側を解放する。残りのジョブは受信側が取り出せる
func (s *sender) close() {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.ready.Broadcast()
}

// recv は次のジョブを待って取り出す
// 送信側が解放され、かつ空になった場合は ok=false を返す
func (r *receiver) recv() (job Job, ok bool) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return nil, false
		}
		q.ready.Wait()
	}

	job = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return job, true
}

// len は未処理ジョブ数を返す
func (r *receiver) len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items)
}

package threadpool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"hello-server/internal/events"
)

// errReceivePanic は受信中に panic したワーカー自身に返される
var errReceivePanic = errors.New("receive panicked")

// source は受信側の抽象
type source interface {
	recv() (Job, bool)
	len() int
}

// receiverGuard は唯一の受信側を全ワーカーで共有するためのロック付きハンドル
// ワーカーは同じポインタを保持し、受信側そのものは複製しない
type receiverGuard struct {
	mu       sync.Mutex
	rx       source
	poisoned atomic.Bool // 受信待ちでも読めるよう mu の外に置く
}

func newReceiverGuard(rx source) *receiverGuard {
	return &receiverGuard{rx: rx}
}

// next はロックを取得して次のジョブを受信する
// ロック保持中に panic した場合はロックを汚染状態にする
func (g *receiverGuard) next() (job Job, ok bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned.Load() {
		return nil, false, ErrPoisoned
	}

	done := false
	defer func() {
		if !done {
			g.poisoned.Store(true)
		}
	}()

	job, ok = g.rx.recv()
	done = true
	return job, ok, nil
}

// isPoisoned は汚染状態を返す
func (g *receiverGuard) isPoisoned() bool {
	return g.poisoned.Load()
}

// pending は未処理ジョブ数を返す
// 受信待ちのワーカーがロックを保持したままでも読めるように g.mu は取らない
func (g *receiverGuard) pending() int {
	return g.rx.len()
}

// worker はプール生成時に一度だけ作られる常駐ゴルーチン
type worker struct {
	id int

	mu     sync.Mutex
	handle chan struct{} // ゴルーチン終了時に close される。join で一度だけ取り出す
}

// newWorker はワーカーを作成し、ループを回すゴルーチンを起動する
func newWorker(id int, rx *receiverGuard, p *Pool) *worker {
	done := make(chan struct{})
	w := &worker{
		id:     id,
		handle: done,
	}

	go func() {
		defer close(done)
		w.run(rx, p)
	}()

	return w
}

// run はキューが閉じられるまでジョブを受信して実行する
func (w *worker) run(rx *receiverGuard, p *Pool) {
	src := events.WorkerSource(w.id)
	reason := "disconnected"

	p.bus.Publish(events.NewWorkerStartedEvent(w.id))
	defer func() {
		p.bus.Publish(events.NewWorkerStoppedEvent(w.id, reason))
	}()

	for {
		job, ok, err := w.receive(rx)
		switch {
		case errors.Is(err, errReceivePanic):
			reason = "panicked"
			p.log.Error(src, "Worker %d %v; lock is now poisoned.", w.id, err)
			return
		case errors.Is(err, ErrPoisoned):
			if p.policy == PoisonFatal {
				panic(fmt.Sprintf("threadpool: worker %d: %v", w.id, err))
			}
			reason = "poisoned"
			p.log.Warn(src, "Worker %d found the lock poisoned; shutting down.", w.id)
			return
		case !ok:
			p.log.Debug(src, "Worker %d disconnected; shutting down.", w.id)
			return
		}

		p.log.Debug(src, "Worker %d got a job; executing.", w.id)
		p.runJob(w.id, job)
	}
}

// receive は受信中の panic を回収して errReceivePanic に変換する
func (w *worker) receive(rx *receiverGuard) (job Job, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errReceivePanic, r)
		}
	}()
	return rx.next()
}

// take はスレッドハンドルを取り出す。2回目以降は nil
func (w *worker) take() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := w.handle
	w.handle = nil
	return h
}

// join はワーカーの終了を待つ。ハンドルが取り出し済みなら false
func (w *worker) join() bool {
	h := w.take()
	if h == nil {
		return false
	}
	<-h
	return true
}

package threadpool

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"hello-server/internal/events"
	"hello-server/internal/logger"
)

// PoisonPolicy は受信側ロックが汚染されたときのワーカーの振る舞い
type PoisonPolicy int

const (
	// PoisonFatal は汚染を検出したワーカーが panic する（プロセスごと停止する）
	PoisonFatal PoisonPolicy = iota
	// PoisonTreatAsClosed は汚染をキューのクローズとみなしてワーカーを終了する
	PoisonTreatAsClosed
)

func (p PoisonPolicy) String() string {
	switch p {
	case PoisonFatal:
		return "fatal"
	case PoisonTreatAsClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParsePoisonPolicy は設定値をパースする。空文字列は PoisonFatal
func ParsePoisonPolicy(s string) (PoisonPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fatal":
		return PoisonFatal, nil
	case "closed":
		return PoisonTreatAsClosed, nil
	default:
		return PoisonFatal, fmt.Errorf("unknown poison policy: %q", s)
	}
}

// Config はスレッドプールの設定
type Config struct {
	Size         int                            // ワーカー数（1以上）
	PoisonPolicy PoisonPolicy                   // ロック汚染時の振る舞い
	PanicHandler func(workerID int, err error) // ジョブの panic 通知（任意）
	Logger       *logger.Logger                 // nil なら logger.Default
	Events       *events.Bus                    // nil ならイベントを発行しない
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Size:         4,
		PoisonPolicy: PoisonFatal,
		Logger:       logger.Default,
	}
}

// Stats はプールの現在の状態
type Stats struct {
	Size          int    `json:"size"`
	ActiveWorkers int    `json:"active_workers"`
	PendingJobs   int    `json:"pending_jobs"`
	SubmittedJobs uint64 `json:"submitted_jobs"`
	CompletedJobs uint64 `json:"completed_jobs"`
	PanickedJobs  uint64 `json:"panicked_jobs"`
	Poisoned      bool   `json:"poisoned"`
	Closed        bool   `json:"closed"`
}

// Pool は固定数のワーカーと共有キューを管理する
type Pool struct {
	workers []*worker
	tx      atomic.Pointer[sender] // Close で解放される
	rx      *receiverGuard

	closeOnce sync.Once

	active    atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64

	policy       PoisonPolicy
	panicHandler func(workerID int, err error)
	log          *logger.Logger
	bus          *events.Bus
}

// New は size 個のワーカーを持つプールを作成する
// size が 0 以下の場合は panic する
func New(size int) *Pool {
	p, err := Build(size)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// Build は size 個のワーカーを持つプールを作成する
// size が 0 以下の場合は KindBadArgument の *CreationError を返す
func Build(size int) (*Pool, error) {
	cfg := DefaultConfig()
	cfg.Size = size
	return BuildWithConfig(cfg)
}

// BuildWithConfig は設定を指定してプールを作成する
func BuildWithConfig(cfg Config) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, newCreationError(KindBadArgument, "size is smaller or equal 0 (got %d)", cfg.Size)
	}

	tx, rx := newChannel()
	p := newPool(cfg, tx, rx)

	p.log.Info("pool", "Thread pool started with %d workers", cfg.Size)
	return p, nil
}

// newPool は検証済みの設定と送受信の端点からプールを組み立てる
func newPool(cfg Config, tx *sender, rx source) *Pool {
	log := cfg.Logger
	if log == nil {
		log = logger.Default
	}

	p := &Pool{
		policy:       cfg.PoisonPolicy,
		panicHandler: cfg.PanicHandler,
		log:          log,
		bus:          cfg.Events,
	}
	p.tx.Store(tx)
	p.createWorkers(cfg.Size, rx)
	return p
}

// createWorkers は同じ受信側ガードを共有するワーカーを id 順に作成する
func (p *Pool) createWorkers(size int, rx source) {
	guard := newReceiverGuard(rx)
	p.rx = guard
	p.workers = make([]*worker, 0, size)
	for id := 0; id < size; id++ {
		id := id
		p.workers = append(p.workers, newWorker(id, guard, p))
	}
}

// Execute はジョブをキューに追加する
// Close 開始後に呼ぶと panic する
func (p *Pool) Execute(job Job) {
	if err := p.Submit(job); err != nil {
		panic(fmt.Sprintf("threadpool: execute: %v", err))
	}
}

// Submit はジョブをキューに追加する。Execute のエラーを返す版
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	tx := p.tx.Load()
	if tx == nil {
		return ErrPoolClosed
	}
	if err := tx.send(job); err != nil {
		return err
	}

	p.submitted.Add(1)
	return nil
}

// Close は送信側を解放し、全ワーカーの終了を待つ
// 実行中・待機中のジョブはすべて処理される。複数回呼んでもよい
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if tx := p.tx.Swap(nil); tx != nil {
			tx.close()
		}

		for _, w := range p.workers {
			p.log.Info("pool", "Shutting down worker %d", w.id)
			w.join()
		}

		p.bus.Publish(events.NewPoolClosedEvent())
		p.log.Info("pool", "Thread pool stopped")
	})
}

// runJob はジョブを実行し、panic をこのワーカー内で回収する
func (p *Pool) runJob(id int, job Job) {
	p.active.Add(1)
	defer p.active.Add(-1)

	defer func() {
		r := recover()
		if r == nil {
			p.completed.Add(1)
			return
		}

		err := panicError(r)
		p.panicked.Add(1)
		p.log.Error(events.WorkerSource(id), "Job panicked: %v", err)
		p.bus.Publish(events.NewJobPanickedEvent(id, err))
		if p.panicHandler != nil {
			p.panicHandler(id, err)
		}
	}()

	job()
}

// Size はワーカー数を返す
func (p *Pool) Size() int {
	return len(p.workers)
}

// WorkerIDs はワーカーの id を生成順に返す
func (p *Pool) WorkerIDs() []int {
	ids := make([]int, len(p.workers))
	for i, w := range p.workers {
		ids[i] = w.id
	}
	return ids
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	return Stats{
		Size:          len(p.workers),
		ActiveWorkers: int(p.active.Load()),
		PendingJobs:   p.rx.pending(),
		SubmittedJobs: p.submitted.Load(),
		CompletedJobs: p.completed.Load(),
		PanickedJobs:  p.panicked.Load(),
		Poisoned:      p.rx.isPoisoned(),
		Closed:        p.tx.Load() == nil,
	}
}

package threadpool

import (
	"errors"
	"fmt"
)

var (
	// ErrBadArgument は CreationError の KindBadArgument と一致する
	ErrBadArgument = errors.New("bad argument")
	// ErrPoolClosed はクローズ済みプールへの投入を表す
	ErrPoolClosed = errors.New("thread pool is closed")
	// ErrNilJob は nil ジョブの投入を表す
	ErrNilJob = errors.New("job is nil")
	// ErrPoisoned は受信側ロックが汚染されていることを表す
	ErrPoisoned = errors.New("receiver lock is poisoned")
	// ErrJobPanic は error でも string でもない値で panic したジョブを表す
	ErrJobPanic = errors.New("job panicked")
)

// ErrorKind は生成エラーの分類
type ErrorKind int

const (
	// KindBadArgument はサイズなどの引数不正
	KindBadArgument ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadArgument:
		return "bad argument"
	default:
		return "unknown"
	}
}

// CreationError はプール生成の失敗理由
type CreationError struct {
	Kind    ErrorKind
	Message string
}

func newCreationError(kind ErrorKind, format string, args ...any) *CreationError {
	return &CreationError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("thread pool creation failed (%s): %s", e.Kind, e.Message)
}

// Is は errors.Is で分類ごとのセンチネルと照合できるようにする
func (e *CreationError) Is(target error) bool {
	return e.Kind == KindBadArgument && target == ErrBadArgument
}

// panicError は recover した値を error に変換する
func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("%w: %w", ErrJobPanic, v)
	case string:
		return fmt.Errorf("%w: %s", ErrJobPanic, v)
	default:
		return ErrJobPanic
	}
}

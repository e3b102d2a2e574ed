package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/freelance-core/internal/logger"
)

// SafeGo запускает горутину с перехватом panic. Используется для фоновой
// рассылки уведомлений, чтобы паника в обработчике не валила процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext — то же с контекстом.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		if logger.Log != nil {
			logger.Log.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
		}
	}
}

package httpmw

import (
	"context"
	"net/http"
	"sync"

	"github.com/keithlinneman/folio/internal/log"
)

// spyLogger records calls; With accumulates fields onto a shared record.
type spyLogger struct {
	log.Logger
	mu     sync.Mutex
	fields []any
	infos  []spyEntry
	errors []spyEntry
}

type spyEntry struct {
	msg string
	err error
	kv  []any
}

func newSpyLogger() *spyLogger { return &spyLogger{Logger: log.Nop()} }

func (s *spyLogger) With(kv ...any) log.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields = append(s.fields, kv...)
	return s
}

func (s *spyLogger) Info(_ context.Context, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, spyEntry{msg: msg, kv: kv})
}

func (s *spyLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, spyEntry{msg: msg, err: err, kv: kv})
}

// field returns the value for key in kv pairs.
func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

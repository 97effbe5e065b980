package runtime

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// HealthHandler answers liveness probes.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadyHandler runs every check in parallel, each bounded by timeout, and
// answers 503 listing the failures when any of them errors.
func ReadyHandler(timeout time.Duration, checks ...ReadyCheck) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			mu       sync.Mutex
			wg       sync.WaitGroup
			failures []string
		)
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			wg.Add(1)
			go func(check ReadyCheck) {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(r.Context(), timeout)
				defer cancel()
				if err := check.Check(ctx); err != nil {
					name := check.Name
					if name == "" {
						name = "dependency"
					}
					mu.Lock()
					failures = append(failures, name+": "+err.Error())
					mu.Unlock()
				}
			}(check)
		}
		wg.Wait()

		if len(failures) > 0 {
			sort.Strings(failures)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

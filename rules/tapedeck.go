//go:build ruleguard

// Package gorules defines project linter rules, run through gocritic's
// ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// ModuleLogger flags direct printing from library packages. Everything under
// internal/ logs through its module logger; only cmd/ writes to stdout.
func ModuleLogger(m dsl.Matcher) {
	m.Match(
		`fmt.Print($*_)`,
		`fmt.Printf($*_)`,
		`fmt.Println($*_)`,
		`log.Print($*_)`,
		`log.Printf($*_)`,
		`log.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("use the package logger (GetLogger or logger.Global().Module) instead of printing")
}

// ErrorField prefers the typed error field so every error lands under the
// same key.
func ErrorField(m dsl.Matcher) {
	m.Match(`logger.Any("error", $err)`, `logger.String("error", $err.Error())`).
		Where(m["err"].Type.Implements("error")).
		Report("use logger.Error($err)").
		Suggest("logger.Error($err)")
}

// DetachedContext flags root contexts in the transport packages; the worker
// and session lifetimes must derive from the caller's context.
func DetachedContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().PkgPath.Matches(`/internal/tape$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("derive from the caller's context instead of a root context")
}

// TestingContext suggests t.Context() over root contexts in tests.
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() in tests")
}

// TimeSince detects time.Now().Sub(t).
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t)").
		Suggest("time.Since($t)")
}

// WaitGroupGo detects the manual Add/Done pattern.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern").
		Suggest("$wg.Go(func() { $body })")
}

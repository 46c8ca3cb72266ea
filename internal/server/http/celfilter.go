package httpserver

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/strand/internal/commitlog"
)

// celFilter wraps a compiled CEL program evaluated per record on the tail
// endpoint. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("partition", cel.IntType),
		cel.Variable("offset", cel.IntType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("key", cel.StringType),
		cel.Variable("text", cel.StringType),
		// Parsed JSON payload (map/list/values) for field filtering; null when
		// the value is not valid JSON.
		cel.Variable("json", cel.DynType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a record. Evaluation errors
// drop the record rather than the connection.
func (f celFilter) Eval(rec commitlog.Record, part int) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(rec.Value, &jsonObj)
	hdrs := headerStrings(rec.Headers)
	if hdrs == nil {
		hdrs = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"partition": int64(part),
		"offset":    rec.Offset,
		"ts_ms":     rec.Timestamp,
		"size":      int64(len(rec.Value)),
		"key":       string(rec.Key),
		"text":      string(rec.Value),
		"json":      jsonObj,
		"headers":   hdrs,
		"now_ms":    time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

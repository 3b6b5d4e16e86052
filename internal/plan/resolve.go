package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

var stdin io.Reader = os.Stdin

// Resolve turns a CLI input (file path, "-" for stdin, or "" for interactive
// paste) into a plan. JSON input is parsed as-is; SQL input is explained
// through ex, which may be nil when no database is configured.
func Resolve(ctx context.Context, input string, ex *Explainer, label string) (ExplainOutput, error) {
	data, err := readInput(input, label)
	if err != nil {
		return ExplainOutput{}, err
	}

	switch detectType(data, input) {
	case "json":
		return ParseDocument(data)
	case "sql":
		query, err := CheckQuery(string(data))
		if err != nil {
			return ExplainOutput{}, err
		}
		if ex == nil || ex.ConnStr == "" {
			return ExplainOutput{}, fmt.Errorf("SQL input requires a database connection")
		}
		return ex.Explain(ctx, query, DefaultOptions())
	case "text":
		return ExplainOutput{}, fmt.Errorf(`text format not supported - use JSON format:

EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) <your query>

Then provide the complete JSON output.`)
	default:
		return ExplainOutput{}, fmt.Errorf("unable to detect %sinput type: expected JSON plan, SQL query, or .json/.sql file", label)
	}
}

// ReadQuery returns the SQL text of input when it is a SQL query, for callers
// that need the query itself (what-if measurement, history).
func ReadQuery(input string) (string, bool) {
	if input == "" || input == "-" {
		return "", false
	}
	data, err := os.ReadFile(input)
	if err != nil || detectType(data, input) != "sql" {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func readInput(input string, label string) ([]byte, error) {
	switch input {
	case "":
		return readInteractive(label)
	case "-":
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(input)
	}
}

func readInteractive(label string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "Paste %sEXPLAIN (FORMAT JSON) output or SQL query", label)
	if runtime.GOOS == "windows" {
		fmt.Fprint(os.Stderr, " (Ctrl+Z, Enter to submit)\n")
	} else {
		fmt.Fprint(os.Stderr, " (Ctrl+D to submit)\n")
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))

	if (strings.HasPrefix(trimmed, "[") ||
		strings.HasPrefix(trimmed, "{")) &&
		!json.Valid(data) {
		return nil, fmt.Errorf("input appears truncated; for large inputs use: pgguard analyze <file>")
	}

	return data, nil
}

func detectType(data []byte, filename string) string {
	switch {
	case strings.HasSuffix(filename, ".json"):
		return "json"
	case strings.HasSuffix(filename, ".sql"):
		return "sql"
	case strings.HasSuffix(filename, ".txt"):
		return "text"
	}

	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return "json"
	}

	if strings.Contains(trimmed, "(cost=") {
		return "text"
	}

	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "EXPLAIN", "VALUES", "TABLE"} {
		if strings.HasPrefix(upper, kw) {
			return "sql"
		}
	}

	return "unknown"
}

// Package datatools registers the built-in data tool pack: JSON
// parsing and serialization, CSV parsing, and record transformation and
// filtering driven by gjson path expressions.
package datatools

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/nounverse/verbs/pkg/tool"
)

// Register adds the data tool pack to the registry.
func Register(registry *tool.Registry) error {
	if registry == nil {
		return errors.New("registry is required")
	}

	tools := []tool.Definition{
		jsonParseTool(),
		jsonStringifyTool(),
		csvParseTool(),
		transformTool(),
		filterTool(),
	}

	for _, def := range tools {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", def.ID, err)
		}
	}
	return nil
}

func jsonParseTool() tool.Definition {
	return tool.Definition{
		ID:          "data.json.parse",
		Name:        "Parse JSON",
		Description: "Parse a JSON document. Malformed input is reported in the result, not as an invocation failure.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"data", "json"},
		Parameters: []tool.ParameterSpec{
			{Name: "text", Type: tool.TypeString, Description: "JSON document to parse", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			text, _ := args["text"].(string)

			var data interface{}
			if err := json.Unmarshal([]byte(text), &data); err != nil {
				return map[string]interface{}{
					"valid": false,
					"error": err.Error(),
				}, nil
			}
			return map[string]interface{}{
				"valid": true,
				"data":  data,
			}, nil
		},
	}
}

func jsonStringifyTool() tool.Definition {
	return tool.Definition{
		ID:          "data.json.stringify",
		Name:        "Stringify JSON",
		Description: "Serialize a value to a JSON string.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"data", "json"},
		Parameters: []tool.ParameterSpec{
			{Name: "value", Type: tool.TypeAny, Description: "Value to serialize", Required: true},
			{Name: "pretty", Type: tool.TypeBoolean, Description: "Indent the output", Default: false},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			pretty, _ := args["pretty"].(bool)

			var (
				data []byte
				err  error
			)
			if pretty {
				data, err = json.MarshalIndent(args["value"], "", "  ")
			} else {
				data, err = json.Marshal(args["value"])
			}
			if err != nil {
				return nil, fmt.Errorf("stringify: %w", err)
			}

			return map[string]interface{}{
				"text":  string(data),
				"bytes": len(data),
			}, nil
		},
	}
}

func csvParseTool() tool.Definition {
	return tool.Definition{
		ID:          "data.csv.parse",
		Name:        "Parse CSV",
		Description: "Parse CSV text into records, optionally using the first row as the header.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"data", "csv"},
		Parameters: []tool.ParameterSpec{
			{Name: "text", Type: tool.TypeString, Description: "CSV text to parse", Required: true},
			{Name: "delimiter", Type: tool.TypeString, Description: "Field delimiter", Default: ","},
			{Name: "header", Type: tool.TypeBoolean, Description: "Treat the first row as column names", Default: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			text, _ := args["text"].(string)
			delimiter, _ := args["delimiter"].(string)
			header, _ := args["header"].(bool)

			reader := csv.NewReader(strings.NewReader(text))
			if delimiter != "" {
				reader.Comma = []rune(delimiter)[0]
			}

			rows, err := reader.ReadAll()
			if err != nil {
				return nil, fmt.Errorf("parse csv: %w", err)
			}

			if !header {
				out := make([]interface{}, 0, len(rows))
				for _, row := range rows {
					cells := make([]interface{}, len(row))
					for i, cell := range row {
						cells[i] = cell
					}
					out = append(out, cells)
				}
				return map[string]interface{}{
					"rows":  out,
					"count": len(out),
				}, nil
			}

			if len(rows) == 0 {
				return map[string]interface{}{
					"columns": []interface{}{},
					"records": []interface{}{},
					"count":   0,
				}, nil
			}

			columns := make([]interface{}, len(rows[0]))
			for i, c := range rows[0] {
				columns[i] = c
			}

			records := make([]interface{}, 0, len(rows)-1)
			for _, row := range rows[1:] {
				record := make(map[string]interface{}, len(row))
				for i, cell := range row {
					if i < len(rows[0]) {
						record[rows[0][i]] = cell
					}
				}
				records = append(records, record)
			}

			return map[string]interface{}{
				"columns": columns,
				"records": records,
				"count":   len(records),
			}, nil
		},
	}
}

func transformTool() tool.Definition {
	return tool.Definition{
		ID:          "data.transform",
		Name:        "Transform records",
		Description: "Transform records: set a value at a path on each record, extract a path from each record, or both (set runs first).",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"data", "records"},
		Parameters: []tool.ParameterSpec{
			{Name: "records", Type: tool.TypeArray, Description: "Records to transform", Required: true},
			{Name: "extract", Type: tool.TypeString, Description: "Path to extract from each record"},
			{Name: "set", Type: tool.TypeObject, Description: "Object with path and value to set on each record"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			records, err := toRecords(args["records"])
			if err != nil {
				return nil, err
			}

			extract, _ := args["extract"].(string)
			setSpec, hasSet := args["set"].(map[string]interface{})

			var setPath string
			var setValue interface{}
			if hasSet {
				setPath, _ = setSpec["path"].(string)
				if setPath == "" {
					return nil, fmt.Errorf("set.path is required")
				}
				setValue = setSpec["value"]
			}

			out := make([]interface{}, 0, len(records))
			for i, raw := range records {
				if hasSet {
					updated, err := sjson.SetBytes(raw, setPath, setValue)
					if err != nil {
						return nil, fmt.Errorf("record %d: set %s: %w", i, setPath, err)
					}
					raw = updated
				}

				if extract != "" {
					out = append(out, gjson.GetBytes(raw, extract).Value())
					continue
				}

				var record interface{}
				if err := json.Unmarshal(raw, &record); err != nil {
					return nil, fmt.Errorf("record %d: %w", i, err)
				}
				out = append(out, record)
			}

			return map[string]interface{}{
				"records": out,
				"count":   len(out),
			}, nil
		},
	}
}

func filterTool() tool.Definition {
	return tool.Definition{
		ID:          "data.filter",
		Name:        "Filter records",
		Description: "Keep the records whose field matches a condition. The result always carries a records array, even when empty.",
		Audience:    tool.AudienceBoth,
		Idempotent:  true,
		Tags:        []string{"data", "records"},
		Parameters: []tool.ParameterSpec{
			{Name: "records", Type: tool.TypeArray, Description: "Records to filter", Required: true},
			{Name: "field", Type: tool.TypeString, Description: "Field path to test", Required: true},
			{Name: "op", Type: tool.TypeString, Description: "Comparison operator", Default: "eq",
				Enum: []interface{}{"eq", "neq", "gt", "lt", "gte", "lte", "contains", "exists"}},
			{Name: "value", Type: tool.TypeAny, Description: "Value to compare against"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			records, err := toRecords(args["records"])
			if err != nil {
				return nil, err
			}

			field, _ := args["field"].(string)
			op, _ := args["op"].(string)
			want, err := jsonNormalize(args["value"])
			if err != nil {
				return nil, fmt.Errorf("value: %w", err)
			}

			out := make([]interface{}, 0, len(records))
			for i, raw := range records {
				res := gjson.GetBytes(raw, field)
				ok, err := matches(res, op, want)
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", i, err)
				}
				if !ok {
					continue
				}

				var record interface{}
				if err := json.Unmarshal(raw, &record); err != nil {
					return nil, fmt.Errorf("record %d: %w", i, err)
				}
				out = append(out, record)
			}

			return map[string]interface{}{
				"records": out,
				"count":   len(out),
			}, nil
		},
	}
}

// toRecords marshals each element once so gjson/sjson can walk it by
// path.
func toRecords(value interface{}) ([][]byte, error) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("records must be an array")
	}
	out := make([][]byte, 0, len(raw))
	for i, rec := range raw {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// jsonNormalize round-trips a Go value through JSON so comparisons see
// the same shapes gjson produces (float64 numbers, untyped maps).
func jsonNormalize(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(res gjson.Result, op string, want interface{}) (bool, error) {
	switch op {
	case "", "eq":
		return res.Exists() && equalJSON(res.Value(), want), nil
	case "neq":
		return !res.Exists() || !equalJSON(res.Value(), want), nil
	case "exists":
		return res.Exists(), nil
	case "gt", "lt", "gte", "lte":
		wantNum, ok := want.(float64)
		if !ok {
			return false, fmt.Errorf("op %q needs a numeric value", op)
		}
		if !res.Exists() || res.Type != gjson.Number {
			return false, nil
		}
		switch op {
		case "gt":
			return res.Num > wantNum, nil
		case "lt":
			return res.Num < wantNum, nil
		case "gte":
			return res.Num >= wantNum, nil
		default:
			return res.Num <= wantNum, nil
		}
	case "contains":
		if res.IsArray() {
			for _, item := range res.Array() {
				if equalJSON(item.Value(), want) {
					return true, nil
				}
			}
			return false, nil
		}
		return strings.Contains(res.String(), fmt.Sprint(want)), nil
	default:
		return false, fmt.Errorf("unknown op %q", op)
	}
}

func equalJSON(a, b interface{}) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

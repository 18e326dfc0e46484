package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/store"
	"github.com/agentlib/workgraph/graph/tool"
)

var errNoExtractor = errors.New("intake: extractor tool is required")

// ApplicationType is the document type written by the generate node.
const ApplicationType = "individual business registration"

func organize(categories []Category) graph.NodeFunc[*graph.State] {
	return func(_ context.Context, s *graph.State) (*graph.State, error) {
		sc := s.Scope(Namespace)
		v, _ := sc.Get(KeyFiles)
		files := stringSlice(v)
		if len(files) == 0 {
			s.AddError("no files uploaded")
			return s, nil
		}

		organized := make(map[string][]string, len(categories)+1)
		for _, c := range categories {
			organized[c.Name] = []string{}
		}
		organized[CategoryOther] = []string{}

		for _, f := range files {
			name := categorize(f, categories)
			if name == CategoryOther {
				s.AddWarning("unrecognized file %q", f)
			}
			organized[name] = append(organized[name], f)
		}
		sc.Set(KeyOrganized, organized)
		return s, nil
	}
}

func categorize(file string, categories []Category) string {
	lower := strings.ToLower(file)
	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return c.Name
			}
		}
	}
	return CategoryOther
}

func extract(t tool.Tool, fields map[string]string) graph.NodeFunc[*graph.State] {
	return func(ctx context.Context, s *graph.State) (*graph.State, error) {
		sc := s.Scope(Namespace)
		organized, _ := sc.Get(KeyOrganized)
		licenses := categoryFiles(organized, CategoryLicense)
		if len(licenses) == 0 {
			s.AddError("no business license among the uploads")
			return s, nil
		}
		if len(licenses) > 1 {
			s.AddWarning("%d license files uploaded, using %q", len(licenses), licenses[0])
		}

		out, err := t.Call(ctx, map[string]any{"file": licenses[0], "category": CategoryLicense})
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			s.AddError("extract %s: %v", licenses[0], err)
			return s, nil
		}

		doc, err := extractionJSON(out)
		if err != nil {
			s.AddError("extract %s: %v", licenses[0], err)
			return s, nil
		}

		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		info := make(map[string]string, len(fields))
		for _, name := range names {
			r := gjson.Get(doc, fields[name])
			if !r.Exists() || r.String() == "" {
				s.AddWarning("license field %s not found", name)
				continue
			}
			info[name] = r.String()
		}
		if len(info) == 0 {
			s.AddError("extract %s: no license fields recognized", licenses[0])
			return s, nil
		}
		sc.Set(KeyLicenseInfo, info)
		return s, nil
	}
}

// extractionJSON returns the JSON document inside a tool result: the
// "body" of an HTTP response, or the result itself.
func extractionJSON(out map[string]any) (string, error) {
	if code, ok := out["status_code"].(int); ok && code >= 400 {
		return "", fmt.Errorf("extraction service returned status %d", code)
	}
	if body, ok := out["body"].(string); ok {
		if !gjson.Valid(body) {
			return "", errors.New("extraction response is not valid JSON")
		}
		return body, nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode extraction result: %w", err)
	}
	return string(raw), nil
}

func generate(now func() time.Time) graph.NodeFunc[*graph.State] {
	return func(_ context.Context, s *graph.State) (*graph.State, error) {
		sc := s.Scope(Namespace)
		v, _ := sc.Get(KeyLicenseInfo)
		info := stringMap(v)
		for _, required := range []string{"name", "shop_name"} {
			if info[required] == "" {
				s.AddError("cannot generate application: %s is missing", required)
			}
		}
		if s.HasErrors() {
			return s, nil
		}

		sc.Set(KeyApplication, map[string]any{
			"type":         ApplicationType,
			"content":      info,
			"generated_at": now().UTC().Format(time.DateOnly),
		})
		return s, nil
	}
}

func remember(st store.Store, tags []string) graph.NodeFunc[*graph.State] {
	return func(ctx context.Context, s *graph.State) (*graph.State, error) {
		if st == nil {
			s.AddWarning("no memory store configured, record not saved")
			return s, nil
		}

		sc := s.Scope(Namespace)
		v, _ := sc.Get(KeyLicenseInfo)
		info := stringMap(v)

		rec, err := st.Put(ctx, Summarize(info, tags))
		if err != nil {
			return s, fmt.Errorf("store memory record: %w", err)
		}
		sc.Set(KeyMemoryID, rec.ID)
		return s, nil
	}
}

// Summarize turns extracted license fields into a memory record.
func Summarize(info map[string]string, tags []string) store.Record {
	shop := orUnknown(info["shop_name"])
	return store.Record{
		Topic:   "Business registration - " + shop,
		Summary: fmt.Sprintf("%s applies to open %s", orUnknown(info["name"]), shop),
		KeyPoints: []string{
			"Shop name: " + shop,
			"Address: " + orUnknown(info["address"]),
			"Business scope: " + orUnknown(info["business_scope"]),
		},
		Tags: append([]string(nil), tags...),
	}
}

func report(_ context.Context, s *graph.State) (*graph.State, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "intake stopped with %d error(s):", len(s.Errors))
	for _, e := range s.Errors {
		b.WriteString("\n- " + e)
	}
	s.Scope(Namespace).Set(KeyReport, b.String())
	return s, nil
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// stringSlice accepts []string and the []any produced by a JSON clone.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringMap(v any) map[string]string {
	switch vv := v.(type) {
	case map[string]string:
		return vv
	case map[string]any:
		out := make(map[string]string, len(vv))
		for k, x := range vv {
			if s, ok := x.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return map[string]string{}
}

func categoryFiles(organized any, category string) []string {
	switch o := organized.(type) {
	case map[string][]string:
		return o[category]
	case map[string]any:
		return stringSlice(o[category])
	}
	return nil
}
